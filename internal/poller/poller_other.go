//go:build !linux

package poller

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Poller on non-Linux platforms hands the connection straight to a
// goroutine; the Go runtime netpoller parks the handler's first Read
// until the peer sends data.
type Poller struct {
	mu      sync.RWMutex
	closed  bool
	pending atomic.Int64
	logger  *zap.Logger
}

// New creates a Poller.
func New(logger *zap.Logger) (*Poller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{logger: logger.With(zap.String("component", "poller"))}, nil
}

// Register schedules onReady.
func (p *Poller) Register(c Conn, onReady func()) error {
	if _, err := descriptor(c); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	p.pending.Add(1)
	go func() {
		p.pending.Add(-1)
		onReady()
	}()
	return nil
}

// Pending returns the number of callbacks scheduled but not yet started.
func (p *Poller) Pending() int {
	return int(p.pending.Load())
}

// Close refuses further registrations.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
