package tcp

import (
	"context"
	"errors"
	"io"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/BaSui01/yamhttp/internal/pool"
	"github.com/BaSui01/yamhttp/internal/poller"
	"github.com/BaSui01/yamhttp/types"
)

// ConnectionHandler processes one accepted connection and must close it.
type ConnectionHandler func(conn *Connection)

// Dispatcher hands an accepted connection to worker execution. A non-nil
// error means the connection was refused; the Server then closes it.
type Dispatcher interface {
	Dispatch(conn *Connection, h ConnectionHandler) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(conn *Connection, h ConnectionHandler) error

// Dispatch calls f(conn, h).
func (f DispatcherFunc) Dispatch(conn *Connection, h ConnectionHandler) error {
	return f(conn, h)
}

// =============================================================================
// Worker pool
// =============================================================================

// Executor schedules tasks for concurrent execution without blocking the
// caller indefinitely. *pool.GoroutinePool satisfies it.
type Executor interface {
	Submit(ctx context.Context, task func(ctx context.Context) error) error
}

// PoolDispatcher posts one task per connection to an Executor.
type PoolDispatcher struct {
	exec Executor
}

// NewPoolDispatcher creates a worker-pool dispatch strategy.
func NewPoolDispatcher(exec Executor) *PoolDispatcher {
	return &PoolDispatcher{exec: exec}
}

// Dispatch submits the handler invocation as a task.
func (d *PoolDispatcher) Dispatch(conn *Connection, h ConnectionHandler) error {
	err := d.exec.Submit(conn.Context(), func(ctx context.Context) error {
		h(conn)
		return nil
	})
	if err != nil {
		return types.NewError(types.ErrCodeDispatchRejected, "worker pool refused connection").WithCause(err)
	}
	return nil
}

// =============================================================================
// Readiness polling
// =============================================================================

// PollConn is what a Registrar needs from a connection.
type PollConn = interface {
	syscall.Conn
	io.Closer
}

// Registrar arms a one-shot readiness callback. *poller.Poller satisfies it.
type Registrar interface {
	Register(c PollConn, onReady func()) error
}

// PolledDispatcher defers the handler until the connection is readable.
type PolledDispatcher struct {
	reg Registrar
}

// NewPolledDispatcher creates a polling dispatch strategy.
func NewPolledDispatcher(reg Registrar) *PolledDispatcher {
	return &PolledDispatcher{reg: reg}
}

// Dispatch registers the connection with the readiness engine.
func (d *PolledDispatcher) Dispatch(conn *Connection, h ConnectionHandler) error {
	if err := d.reg.Register(conn, func() { h(conn) }); err != nil {
		return types.NewError(types.ErrCodeDispatchRejected, "poller refused connection").WithCause(err)
	}
	return nil
}

// =============================================================================
// Rate limiting
// =============================================================================

// RateLimitedDispatcher refuses connections once the token bucket is empty
// and forwards the rest to next.
type RateLimitedDispatcher struct {
	next    Dispatcher
	limiter *rate.Limiter
}

// NewRateLimitedDispatcher wraps next with an rps/burst token bucket.
func NewRateLimitedDispatcher(next Dispatcher, rps float64, burst int) *RateLimitedDispatcher {
	return &RateLimitedDispatcher{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Dispatch forwards to next if a token is available.
func (d *RateLimitedDispatcher) Dispatch(conn *Connection, h ConnectionHandler) error {
	if !d.limiter.Allow() {
		return types.NewError(types.ErrCodeRateLimited, "accept rate limit exceeded").WithRetryable(true)
	}
	return d.next.Dispatch(conn, h)
}

// rejectReason maps a dispatch error to a low-cardinality metric label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, pool.ErrPoolFull):
		return "pool_full"
	case errors.Is(err, pool.ErrPoolClosed):
		return "pool_closed"
	case errors.Is(err, poller.ErrClosed):
		return "poller_closed"
	case types.IsErrorCode(err, types.ErrCodeRateLimited):
		return "rate_limited"
	default:
		return "dispatch_error"
	}
}
