package ingest

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool. During an index build a
// job tokenizes one entry's text and hands the result to the batch writer.
type Job func(ctx context.Context) error

// WorkerPool runs jobs on a fixed number of goroutines. It parallelizes the
// CPU-bound part of indexing (morphological analysis) while database writes
// stay serialized behind the BatchWriter.
type WorkerPool struct {
	jobs    chan Job
	errs    chan error
	wg      sync.WaitGroup
	workers int
	closeMu sync.Mutex
	closed  bool
}

// NewWorkerPool creates a pool with the given worker count and queue depth.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		errs:    make(chan error, queue),
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is canceled or Close is
// called.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil {
						select {
						case p.errs <- err:
						default:
							// Error channel full; later failures are dropped
							// rather than stalling the workers.
						}
					}
				}
			}
		}()
	}
}

// Submit enqueues a job, blocking while the queue is full. Returns
// ErrPoolClosed after Close, including when Close races a blocked Submit.
func (p *WorkerPool) Submit(job Job) (err error) {
	defer func() {
		// Close may shut the jobs channel while a Submit is blocked on it.
		if recover() != nil {
			err = ErrPoolClosed
		}
	}()
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return ErrPoolClosed
	}
	p.closeMu.Unlock()
	p.jobs <- job
	return nil
}

// SubmitCtx enqueues a job but returns promptly when ctx is canceled while
// the queue is full.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrPoolClosed
		}
	}()
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return ErrPoolClosed
	}
	p.closeMu.Unlock()
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued work to drain.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
	close(p.errs)
}

// Errors reports job failures. The channel closes once Close has drained
// the pool, so ranging over it after Close collects every retained error.
func (p *WorkerPool) Errors() <-chan error {
	return p.errs
}

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is a typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
