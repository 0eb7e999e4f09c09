package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Pool runs submitted jobs on a fixed set of goroutines. With a single
// worker it is a serial execution context: jobs run one at a time in
// submission order.
type Pool struct {
	logger *zap.Logger
	count  int
	jobs   chan func()
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	stop     chan struct{}
	stopOnce sync.Once
}

func NewPool(logger *zap.Logger, count int) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{
		logger: logger,
		count:  count,
		jobs:   make(chan func(), 64),
		stop:   make(chan struct{}),
	}
}

// Start launches the workers. Cancelling ctx stops the pool as Stop does:
// queued jobs still run and later submissions are rejected.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Info("Starting worker pool", zap.Int("workers", p.count))
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.stop:
		}
	}()
}

// Submit queues fn. It blocks while the queue is full and returns false once
// the pool is stopped.
func (p *Pool) Submit(fn func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case <-p.stop:
		return false
	default:
	}

	select {
	case p.jobs <- fn:
		return true
	case <-p.stop:
		return false
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	// release blocked submitters before taking the write lock
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for fn := range p.jobs {
		p.run(id, fn)
	}
}

func (p *Pool) run(id int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				zap.Int("worker", id),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	fn()
}
