//go:build !unix

package tcp

import "syscall"

// On Windows SO_REUSEADDR allows port hijacking, so it is left unset.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
