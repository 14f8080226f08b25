package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/yamhttp/internal/ctxkeys"
)

// Connection is one accepted network connection. Ownership moves from the
// Server to the Dispatcher and finally to the ConnectionHandler, which must
// Close it.
type Connection struct {
	net.Conn

	id         string
	peer       Endpoint
	acceptedAt time.Time
	ctx        context.Context

	closeOnce sync.Once
	closeErr  error
}

func newConnection(c net.Conn) *Connection {
	id := uuid.NewString()
	peer := EndpointFromAddr(c.RemoteAddr())

	ctx := ctxkeys.WithConnID(context.Background(), id)
	ctx = ctxkeys.WithPeer(ctx, peer.String())

	return &Connection{
		Conn:       c,
		id:         id,
		peer:       peer,
		acceptedAt: time.Now(),
		ctx:        ctx,
	}
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Peer returns the remote endpoint.
func (c *Connection) Peer() Endpoint { return c.peer }

// AcceptedAt returns when the connection was accepted. The gap to the
// handler start is the dispatch wait reported on the handler span.
func (c *Connection) AcceptedAt() time.Time { return c.acceptedAt }

// Context carries the connection ID, the peer and, when tracing is on,
// the handler span.
func (c *Connection) Context() context.Context { return c.ctx }

// Close closes the underlying connection once; later calls return the
// first result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// SyscallConn exposes the raw descriptor so the connection can be
// registered with a readiness engine.
func (c *Connection) SyscallConn() (syscall.RawConn, error) {
	sc, ok := c.Conn.(syscall.Conn)
	if !ok {
		return nil, errors.New("tcp: underlying connection has no descriptor")
	}
	return sc.SyscallConn()
}
