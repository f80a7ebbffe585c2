package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/infrastructure/metrics"
	"github.com/Ponesicek/s4chat/internal/infrastructure/observability"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

// Job is a unit of deferred work executed off the request path.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Dispatcher runs submitted jobs on a fixed pool of workers fed by a bounded
// queue. Submission is non-blocking; a full queue rejects the job so request
// handlers never stall on background capacity.
type Dispatcher struct {
	queue   chan Job
	workers int
}

func NewDispatcher(cfg *config.Config) *Dispatcher {
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	queueLen := cfg.WorkerQueueLen
	if queueLen <= 0 {
		queueLen = 64
	}
	return &Dispatcher{
		queue:   make(chan Job, queueLen),
		workers: workers,
	}
}

// Submit enqueues a job. It reports an error when the queue is full.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	select {
	case d.queue <- job:
		metrics.QueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeConflict, "worker queue is full", nil, "")
	}
}

// Enqueue schedules a named job on the pool.
func (d *Dispatcher) Enqueue(ctx context.Context, name string, run func(ctx context.Context)) error {
	return d.Submit(ctx, Job{Name: name, Run: run})
}

// Start runs the worker pool until the context is cancelled. Jobs already
// running are allowed to finish.
func (d *Dispatcher) Start(ctx context.Context) error {
	log := logger.Component("worker")
	log.Info().Int("workers", d.workers).Int("queue_len", cap(d.queue)).Msg("starting worker pool")

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-d.queue:
					metrics.QueueDepth.Set(float64(len(d.queue)))
					d.runJob(ctx, job)
				}
			}
		})
	}
	return group.Wait()
}

func (d *Dispatcher) runJob(ctx context.Context, job Job) {
	jobCtx, span := observability.StartSpan(ctx, "s4chat", "worker."+job.Name)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log := logger.Component("worker")
			log.Error().
				Interface("panic", r).
				Str("job", job.Name).
				Msg("job panicked")
		}
	}()

	job.Run(jobCtx)
}
