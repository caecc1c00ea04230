package orchestration

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/codescope-io/codescope/pkg/utils"
)

// Pool bounds the number of concurrently executing scan tasks system-wide.
// Submit never blocks the caller: jobs wait on a weighted semaphore in their
// own goroutine until a worker slot frees up.
type Pool struct {
	sem     *semaphore.Weighted
	metrics *utils.Metrics
	logger  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewPool(workers int, metrics *utils.Metrics, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		metrics: metrics,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules job for execution and returns immediately. Jobs submitted
// after Shutdown are dropped.
func (p *Pool) Submit(job func()) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.QueueDepth.Inc()
	}
	go func() {
		defer p.wg.Done()
		err := p.sem.Acquire(p.ctx, 1)
		if p.metrics != nil {
			p.metrics.QueueDepth.Dec()
		}
		if err != nil {
			return
		}
		defer p.sem.Release(1)
		job()
	}()
	return true
}

// Shutdown stops accepting jobs, releases queued ones, and waits for running
// workers until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
