//go:build !unix

package core

import "syscall"

func controlListener(network, address string, c syscall.RawConn) error {
	return nil
}
