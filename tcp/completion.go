package tcp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/BaSui01/yamhttp/types"
)

// Completion resolves exactly once, when the accept loop has exited: with
// nil after a planned Stop, or with the accept failure that ended the loop.
type Completion struct {
	done     chan struct{}
	resolved atomic.Bool
	err      error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolve panics when called twice; a second resolution is a loop bug.
func (c *Completion) resolve(err error) {
	if !c.resolved.CompareAndSwap(false, true) {
		panic("tcp: completion resolved twice")
	}
	c.err = err
	close(c.done)
}

// Done is closed once the accept loop has exited.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns the loop's terminal error, or nil if the loop is still
// running or stopped as planned.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the accept loop exits.
func (c *Completion) Wait() error {
	<-c.done
	return c.err
}

// WaitContext is Wait bounded by ctx. An expired deadline is reported as a
// TIMEOUT error, distinct from the loop's own failure.
func (c *Completion) WaitContext(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.NewTimeoutError("accept loop still running", ctx.Err())
		}
		return fmt.Errorf("wait for accept loop: %w", ctx.Err())
	}
}
