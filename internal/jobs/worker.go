// small contract description
// inputs: enqueued jobs, handlers map
// outputs: handler invocations; failures are logged and dropped
// error modes: full queue, unknown type, handler errors
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type WorkerPool struct {
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	queue       chan *Job
	nextID      atomic.Int64

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewWorkerPool(handlers map[string]Handler, logger *slog.Logger, workerCount, queueSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		queue:       make(chan *Job, queueSize),
	}
}

// Start launches the worker goroutines. Cancelling ctx aborts in-flight
// handlers; Stop still has to be called to drain and join the workers.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop refuses new jobs, lets the workers finish what is queued and waits for them.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.queue {
		if ctx.Err() != nil {
			p.logger.Warn("context canceled, dropping job", "worker", id, "job_id", job.ID, "type", job.Type)
			continue
		}
		h := p.handlers[job.Type]
		start := time.Now()
		if err := h(ctx, job); err != nil {
			p.logger.Error("job failed", "worker", id, "job_id", job.ID, "type", job.Type, "err", err)
			continue
		}
		p.logger.Debug("job done", "worker", id, "job_id", job.ID, "type", job.Type, "took", time.Since(start))
	}
	p.logger.Info("worker stopping", "id", id)
}

// Enqueue hands a job to the workers without blocking.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any) (int64, error) {
	if _, ok := p.handlers[typ]; !ok {
		return 0, ErrNoHandler
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return 0, ErrStopped
	}

	j := &Job{ID: p.nextID.Add(1), Type: typ, Payload: payload, Created: time.Now()}
	select {
	case p.queue <- j:
		return j.ID, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
		return 0, ErrQueueFull
	}
}
