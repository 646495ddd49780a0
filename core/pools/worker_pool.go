package pools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a one-shot unit of work. Whatever it captures belongs to the worker
// that runs it.
type Job func()

var (
	ErrInvalidConfiguration = errors.New("invalid worker pool configuration")
	ErrDispatchClosed       = errors.New("dispatch queue closed")
	ErrNilJob               = errors.New("nil job")
)

// Observer receives worker lifecycle events. Calls happen on worker goroutines
// and must not block.
type Observer interface {
	JobStarted(worker int)
	JobFinished(worker int, d time.Duration)
	JobPanicked(worker int, v any)
}

// Option configures a WorkerPool
type Option func(*WorkerPool)

// WithLogger sets the logger used for recovered job panics
func WithLogger(l *slog.Logger) Option {
	return func(p *WorkerPool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers an observer for job events
func WithObserver(o Observer) Option {
	return func(p *WorkerPool) {
		p.observer = o
	}
}

// WorkerPool runs jobs on a fixed set of workers fed by one shared queue
type WorkerPool struct {
	size     int
	queue    *Queue[Job]
	workers  []*worker
	wg       sync.WaitGroup
	done     chan struct{}
	logger   *slog.Logger
	observer Observer

	// Statistics
	stats struct {
		submitted atomic.Uint64
		completed atomic.Uint64
		panicked  atomic.Uint64
		busy      atomic.Int64
	}
}

// worker is a goroutine running the dequeue-then-execute loop
type worker struct {
	id        int
	pool      *WorkerPool
	completed atomic.Uint64
}

// NewWorkerPool starts size workers blocked on an empty queue
func NewWorkerPool(size int, opts ...Option) (*WorkerPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: size must be at least 1, got %d", ErrInvalidConfiguration, size)
	}

	p := &WorkerPool{
		size:    size,
		queue:   NewQueue[Job](),
		workers: make([]*worker, size),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		w := &worker{id: i, pool: p}
		p.workers[i] = w
		go w.run()
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	return p, nil
}

// Execute hands job to the next idle worker. It never waits for the job.
func (p *WorkerPool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	p.stats.submitted.Add(1)
	if err := p.queue.Push(job); err != nil {
		p.stats.submitted.Add(^uint64(0))
		return ErrDispatchClosed
	}
	return nil
}

// run is the main loop for a worker goroutine
func (w *worker) run() {
	defer w.pool.wg.Done()

	for {
		d, ok := w.pool.queue.Pop()
		if !ok {
			return // Closed and drained
		}
		w.execute(d.Value)
		w.completed.Add(1)
		w.pool.stats.completed.Add(1)
	}
}

// execute runs one job. A panic is recovered here so the worker survives.
func (w *worker) execute(job Job) {
	p := w.pool
	p.stats.busy.Add(1)
	defer p.stats.busy.Add(-1)

	if p.observer != nil {
		p.observer.JobStarted(w.id)
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.stats.panicked.Add(1)
			p.logger.Error("job panicked",
				"worker", w.id,
				"panic", r,
				"stack", string(debug.Stack()))
			if p.observer != nil {
				p.observer.JobPanicked(w.id, r)
			}
		}
		if p.observer != nil {
			p.observer.JobFinished(w.id, time.Since(start))
		}
	}()

	job()
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return p.size
}

// Close stops accepting jobs. Queued jobs still run, then workers exit.
func (p *WorkerPool) Close() {
	p.queue.Close()
}

// Wait blocks until every worker has exited or ctx is done
func (p *WorkerPool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns pool statistics
func (p *WorkerPool) Stats() WorkerPoolStats {
	perWorker := make([]uint64, len(p.workers))
	for i, w := range p.workers {
		perWorker[i] = w.completed.Load()
	}

	return WorkerPoolStats{
		NumWorkers:     p.size,
		BusyWorkers:    int(p.stats.busy.Load()),
		TasksSubmitted: p.stats.submitted.Load(),
		TasksCompleted: p.stats.completed.Load(),
		TasksPanicked:  p.stats.panicked.Load(),
		TasksPending:   uint64(p.queue.Len()),
		PerWorker:      perWorker,
		Closed:         p.queue.Closed(),
	}
}

// WorkerPoolStats contains pool statistics
type WorkerPoolStats struct {
	NumWorkers     int
	BusyWorkers    int
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksPanicked  uint64
	TasksPending   uint64
	PerWorker      []uint64
	Closed         bool
}
