// Package worker drains the run queue and executes formation jobs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
	abortGrace          = 5 * time.Second
)

// Job statuses reported to metrics.
const (
	statusDone      = "done"
	statusFailed    = "failed"
	statusAbandoned = "abandoned"
)

// errShutdown is the error recorded on runs dropped by a hard stop.
const errShutdown = "not processed: shutdown"

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Runner executes one formation job and returns the finished run body.
type Runner interface {
	Execute(ctx context.Context, job model.Job) (*model.Run, error)
}

// RunStore persists run state transitions.
type RunStore interface {
	Get(ctx context.Context, id string) (*model.Run, error)
	Save(ctx context.Context, run *model.Run) error
}

// Worker processes jobs until its context ends or the queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	store  RunStore
	name   string
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, runner Runner, store RunStore, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  queue,
		runner: runner,
		store:  store,
		name:   "worker",
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue is closed and drained or ctx ends.
// After a hard stop the running job is cancelled and every job still
// delivered is marked failed instead of executed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-jobCtx.Done():
		}
	}()

	for job := range w.queue.Dequeue(ctx) {
		if jobCtx.Err() != nil {
			w.abandon(ctx, job)
			continue
		}
		if err := w.process(jobCtx, job); err != nil {
			w.logger.Error(ctx, "job failed", logger.String("run_id", job.RunID), logger.Error(err))
		}
	}
}

// Shutdown waits for the worker to finish the jobs left in its queue; the
// caller closes the queue first. When ctx ends the worker is stopped hard
// and given abortGrace to fail its remaining runs.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
	}

	w.once.Do(func() { close(w.stop) })
	w.logger.Warn(ctx, "shutdown timed out, abandoning queued runs")

	grace := time.NewTimer(abortGrace)
	defer grace.Stop()
	select {
	case <-w.done:
	case <-grace.C:
	}
	return fmt.Errorf("shutdown timed out: %w", ctx.Err())
}

// abandon marks a run that will not be executed as failed.
func (w *InMemoryWorker) abandon(ctx context.Context, job model.Job) { //nolint:gocritic // hugeParam: jobs travel by value
	ctx = context.WithoutCancel(ctx)
	metrics.RecordJobProcessed(statusAbandoned, 0)

	run, err := w.store.Get(ctx, job.RunID)
	if err != nil {
		metrics.RecordStoreError("get")
		w.logger.Error(ctx, "abandoned run not found", logger.String("run_id", job.RunID), logger.Error(err))
		return
	}
	run.Status = model.RunFailed
	run.Error = errShutdown
	run.FinishedAt = w.now()
	if err := w.store.Save(ctx, run); err != nil {
		metrics.RecordStoreError("save")
		w.logger.Error(ctx, "saving abandoned run failed", logger.String("run_id", job.RunID), logger.Error(err))
	}
}

// process moves a run through running to done or failed.
func (w *InMemoryWorker) process(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := w.now()
	status := statusFailed
	storeCtx := context.WithoutCancel(ctx)
	defer func() {
		metrics.RecordJobProcessed(status, float64(time.Since(start).Milliseconds()))
	}()

	run, err := w.store.Get(storeCtx, job.RunID)
	if err != nil {
		metrics.RecordStoreError("get")
		return fmt.Errorf("load run %s: %w", job.RunID, err)
	}
	run.Status = model.RunRunning
	if err := w.store.Save(storeCtx, run); err != nil {
		metrics.RecordStoreError("save")
		return fmt.Errorf("mark run %s running: %w", job.RunID, err)
	}

	result, execErr := w.runner.Execute(ctx, job)
	if execErr != nil {
		run.Status = model.RunFailed
		run.Error = execErr.Error()
	} else {
		result.ID = run.ID
		result.CreatedAt = run.CreatedAt
		result.Status = model.RunDone
		run = result
		status = statusDone
	}
	run.FinishedAt = w.now()

	if err := w.store.Save(storeCtx, run); err != nil {
		metrics.RecordStoreError("save")
		status = statusFailed
		return fmt.Errorf("save run %s: %w", job.RunID, err)
	}
	if execErr != nil {
		return execErr
	}
	w.logger.Debug(ctx, "job done",
		logger.String("run_id", job.RunID),
		logger.Int("teams", len(run.Teams)),
		logger.Duration("queued", start.Sub(job.EnqueuedAt)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool. A non-positive count means one worker per CPU.
func NewPool(workerCount int, queue Queue, runner Runner, store RunStore, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, runner, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Runs
// still queued when the timeout expires end up failed.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}
