package http

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidRequest       = errors.New("invalid HTTP request")
	ErrEmptyRequest         = fmt.Errorf("%w: empty request line", ErrInvalidRequest)
	ErrMalformedRequestLine = fmt.Errorf("%w: malformed request line", ErrInvalidRequest)
	ErrInvalidEncoding      = fmt.Errorf("%w: request is not valid UTF-8", ErrInvalidRequest)
)

var crlf = []byte("\r\n")

// ParseRequest parses the request line of data.
//
// The line ends at the first CRLF, or at the end of data when there is none.
// It splits on single spaces into METHOD PATH PROTO; PROTO keeps the rest of
// the line. Headers and body are ignored.
func ParseRequest(data []byte) (*Request, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	line := data
	if idx := bytes.Index(data, crlf); idx != -1 {
		line = data[:idx]
	}
	if len(line) == 0 {
		return nil, ErrEmptyRequest
	}

	// Find first space (end of METHOD)
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return nil, ErrMalformedRequestLine
	}

	// Find second space (end of PATH)
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		return nil, ErrMalformedRequestLine
	}
	sp2 += sp1 + 1

	// Strings are copied: the read buffer goes back to its pool after the exchange
	req := &Request{
		Method: string(line[:sp1]),
		Path:   string(line[sp1+1 : sp2]),
		Proto:  string(line[sp2+1:]),
	}
	if req.Method == "" || req.Path == "" || req.Proto == "" {
		return nil, ErrEmptyRequest
	}

	return req, nil
}
