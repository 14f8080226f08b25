//go:build unix

package tcp

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrControl enables SO_REUSEADDR before bind so a restarted server
// can rebind while old connections sit in TIME_WAIT.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	if serr != nil {
		return fmt.Errorf("setsockopt SO_REUSEADDR: %w", serr)
	}
	return nil
}
