// Package poller provides the readiness-notification engine used by the
// polling dispatch strategy: a connection is registered once and its
// callback fires when the peer has sent data or hung up.
package poller

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

var (
	ErrClosed            = errors.New("poller is closed")
	ErrAlreadyRegistered = errors.New("connection already registered")
)

// Conn is a connection that exposes its OS descriptor.
// *net.TCPConn and *tcp.Connection both satisfy it.
type Conn = interface {
	syscall.Conn
	io.Closer
}

type entry struct {
	conn    Conn
	onReady func()
}

// descriptor extracts the raw fd. The poller owns the connection while it
// is registered, so the fd stays valid until the callback fires or Close.
func descriptor(c Conn) (int, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("syscall conn: %w", err)
	}
	fd := -1
	if err := rc.Control(func(s uintptr) { fd = int(s) }); err != nil {
		return -1, fmt.Errorf("control: %w", err)
	}
	return fd, nil
}
