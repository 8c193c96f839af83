// Package refresher revalidates cached collections in the background.
package refresher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/socialhub/client/internal/transport"
)

// ErrClosed is returned when scheduling work after Shutdown.
var ErrClosed = errors.New("refresher closed")

// Job revalidates one resource.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Recorder observes job outcomes and queue depth. *metrics.Metrics
// satisfies it.
type Recorder interface {
	Revalidated(job, result string)
	QueueDepth(delta int)
}

// Config controls the concurrency characteristics of the refresher.
type Config struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single job.
	Timeout time.Duration
}

// Refresher runs revalidation jobs on a fixed pool of workers. A failed job
// is logged and leaves the cached data as it was.
type Refresher struct {
	metrics Recorder
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts the worker pool.
func New(cfg Config, metrics Recorder, logger *slog.Logger) *Refresher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Refresher{
		metrics: metrics,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan Job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules job. It blocks while the queue is full.
func (r *Refresher) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrClosed
	default:
	}

	r.queueDepth(1)
	select {
	case <-ctx.Done():
		r.queueDepth(-1)
		return ctx.Err()
	case <-r.ctx.Done():
		r.queueDepth(-1)
		return ErrClosed
	case r.jobs <- job:
		return nil
	}
}

// Every enqueues jobs immediately and then once per interval until ctx ends
// or the refresher shuts down.
func (r *Refresher) Every(ctx context.Context, interval time.Duration, jobs ...Job) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, job := range jobs {
			if err := r.Enqueue(ctx, job); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.ctx.Done():
			return ErrClosed
		case <-ticker.C:
		}
	}
}

// Shutdown stops accepting jobs and waits for the workers to exit. Queued
// jobs that have not started are dropped.
func (r *Refresher) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Refresher) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.jobs:
			r.queueDepth(-1)
			r.handleJob(job)
		}
	}
}

func (r *Refresher) handleJob(job Job) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		r.record(job.Name, "ok")
		r.logger.Debug("revalidated", "job", job.Name, "elapsed", time.Since(start))
	case errors.Is(err, transport.ErrAuthorizationDenied):
		r.record(job.Name, "denied")
		r.logger.Error("revalidation denied", "job", job.Name, "error", err)
	case errors.Is(err, context.Canceled):
		r.record(job.Name, "canceled")
	default:
		r.record(job.Name, "stale")
		r.logger.Warn("revalidation failed, serving stale data", "job", job.Name, "error", err)
	}
}

func (r *Refresher) record(job, result string) {
	if r.metrics != nil {
		r.metrics.Revalidated(job, result)
	}
}

func (r *Refresher) queueDepth(delta int) {
	if r.metrics != nil {
		r.metrics.QueueDepth(delta)
	}
}
