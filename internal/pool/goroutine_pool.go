// Package pool provides the bounded goroutine pool used as the task executor
// for pool-based connection dispatch, and buffer pooling for response encoding.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// spawnHandoff bounds how long Submit waits for a freshly spawned worker to
// reach its receive. With QueueSize 0 this is the only way a task reaches
// a new worker.
const spawnHandoff = 100 * time.Millisecond

// Task represents a unit of work. It is an alias so that callers outside
// this package can satisfy executor interfaces with plain func literals.
type Task = func(ctx context.Context) error

// GoroutinePool manages a pool of worker goroutines fed from a bounded queue.
// Submit blocks at most spawnHandoff, and only right after it started a new
// worker; a saturated pool is reported as ErrPoolFull.
type GoroutinePool struct {
	maxWorkers  int
	taskQueue   chan queuedTask
	workerCount atomic.Int32
	activeCount atomic.Int32
	closed      atomic.Bool
	closeMu     sync.RWMutex
	wg          sync.WaitGroup

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	idleTimeout  time.Duration
	panicHandler func(any)
	logger       *zap.Logger
}

type queuedTask struct {
	task Task
	ctx  context.Context
}

// GoroutinePoolConfig configures the pool.
type GoroutinePoolConfig struct {
	MaxWorkers   int           `yaml:"max_workers" json:"max_workers"`
	QueueSize    int           `yaml:"queue_size" json:"queue_size"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	PanicHandler func(any)     `yaml:"-" json:"-"`
}

// DefaultGoroutinePoolConfig returns sensible defaults.
func DefaultGoroutinePoolConfig() GoroutinePoolConfig {
	return GoroutinePoolConfig{
		MaxWorkers:  100,
		QueueSize:   1000,
		IdleTimeout: 60 * time.Second,
	}
}

// NewGoroutinePool creates a new goroutine pool.
func NewGoroutinePool(config GoroutinePoolConfig, logger *zap.Logger) *GoroutinePool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultGoroutinePoolConfig().IdleTimeout
	}
	return &GoroutinePool{
		maxWorkers:   config.MaxWorkers,
		taskQueue:    make(chan queuedTask, config.QueueSize),
		idleTimeout:  config.IdleTimeout,
		panicHandler: config.PanicHandler,
		logger:       logger.With(zap.String("component", "goroutine_pool")),
	}
}

// Submit queues a task. When no queue slot is free and the pool is below
// MaxWorkers, it spawns a worker and hands the task over with a bounded wait.
func (p *GoroutinePool) Submit(ctx context.Context, task Task) error {
	// closeMu keeps Close from closing the queue under a concurrent send.
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	qt := queuedTask{task: task, ctx: ctx}

	select {
	case p.taskQueue <- qt:
		p.ensureWorker()
		return nil
	default:
		// Queue full, try to spawn new worker
		if p.trySpawnWorker() && p.handoff(qt) {
			return nil
		}
		p.rejected.Add(1)
		return ErrPoolFull
	}
}

// handoff waits for a worker to take qt. The worker spawned just before has
// not necessarily reached its receive yet.
func (p *GoroutinePool) handoff(qt queuedTask) bool {
	timer := time.NewTimer(spawnHandoff)
	defer timer.Stop()

	select {
	case p.taskQueue <- qt:
		return true
	case <-timer.C:
		return false
	}
}

func (p *GoroutinePool) ensureWorker() {
	if p.workerCount.Load() < int32(p.maxWorkers) {
		p.trySpawnWorker()
	}
}

func (p *GoroutinePool) trySpawnWorker() bool {
	for {
		current := p.workerCount.Load()
		if current >= int32(p.maxWorkers) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker()
			return true
		}
	}
}

func (p *GoroutinePool) worker() {
	defer p.wg.Done()
	defer p.workerCount.Add(-1)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case qt, ok := <-p.taskQueue:
			if !ok {
				return
			}

			p.activeCount.Add(1)
			err := p.executeTask(qt)
			p.activeCount.Add(-1)

			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}

			timer.Reset(p.idleTimeout)

		case <-timer.C:
			// Idle timeout, exit if we have more than minimum workers
			if p.workerCount.Load() > 1 {
				return
			}
			timer.Reset(p.idleTimeout)
		}
	}
}

func (p *GoroutinePool) executeTask(qt queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return qt.task(qt.ctx)
}

// Close stops accepting tasks, drains the queue and waits for all workers.
func (p *GoroutinePool) Close() {
	p.closeMu.Lock()
	if p.closed.Swap(true) {
		p.closeMu.Unlock()
		return
	}
	close(p.taskQueue)
	p.closeMu.Unlock()
	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *GoroutinePool) Stats() GoroutinePoolStats {
	return GoroutinePoolStats{
		Workers:   int(p.workerCount.Load()),
		Active:    int(p.activeCount.Load()),
		Queued:    len(p.taskQueue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// GoroutinePoolStats contains pool statistics.
type GoroutinePoolStats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}
