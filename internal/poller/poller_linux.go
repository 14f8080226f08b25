//go:build linux

package poller

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const maxEvents = 128

// Poller is an epoll-backed readiness engine. Each registration is
// one-shot: the fd is removed from the interest set before its callback
// runs on a fresh goroutine.
type Poller struct {
	epfd   int
	wakefd int

	mu      sync.Mutex
	pending map[int]entry
	closed  bool

	done   chan struct{}
	logger *zap.Logger
}

// New creates the epoll instance and starts the wait loop.
func New(logger *zap.Logger) (*Poller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add wakeup: %w", err)
	}

	p := &Poller{
		epfd:    epfd,
		wakefd:  wakefd,
		pending: make(map[int]entry),
		done:    make(chan struct{}),
		logger:  logger.With(zap.String("component", "poller")),
	}
	go p.loop()
	return p, nil
}

// Register arms a one-shot read-readiness watch on c.
func (p *Poller) Register(c Conn, onReady func()) error {
	fd, err := descriptor(c)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if _, dup := p.pending[fd]; dup {
		return ErrAlreadyRegistered
	}

	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add: %w", err)
	}
	p.pending[fd] = entry{conn: c, onReady: onReady}
	return nil
}

// Pending returns the number of registrations still waiting for readiness.
func (p *Poller) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Poller) loop() {
	defer close(p.done)

	events := make([]unix.EpollEvent, maxEvents)
	for {
		n, err := unix.EpollWait(p.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			p.logger.Error("epoll_wait failed", zap.Error(err))
			return
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wakefd {
				return
			}

			p.mu.Lock()
			e, ok := p.pending[fd]
			if ok {
				delete(p.pending, fd)
				if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
					p.logger.Debug("epoll_ctl del failed", zap.Int("fd", fd), zap.Error(err))
				}
			}
			p.mu.Unlock()

			if ok {
				go e.onReady()
			}
		}
	}
}

// Close stops the wait loop and closes every connection still registered.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// eventfd counter increment; any non-zero 8-byte value wakes the loop.
	if _, err := unix.Write(p.wakefd, []byte{1, 0, 0, 0, 0, 0, 0, 1}); err != nil {
		p.logger.Warn("eventfd write failed", zap.Error(err))
	}
	<-p.done

	p.mu.Lock()
	for fd, e := range p.pending {
		delete(p.pending, fd)
		e.conn.Close()
	}
	p.mu.Unlock()

	unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
