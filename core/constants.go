package core

import (
	"errors"
	"fmt"
)

// ErrIO marks read and write failures on a connection
var ErrIO = errors.New("connection I/O failure")

// ErrServerClosed is returned by Serve after Close
var ErrServerClosed = errors.New("server closed")

// I/O operations reported in IOError.Op
const (
	OpRead  = "read"
	OpWrite = "write"
	OpClose = "close"
)

// IOError is a failed read or write on one connection
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIO) match any IOError
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
