package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/store"
)

const (
	// DefaultConcurrency is the number of jobs run at once.
	DefaultConcurrency = 4
	// DefaultPollInterval is how often Run checks for ready jobs.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxRetries is how many times a failing job is retried before
	// it is marked dead.
	DefaultMaxRetries = 5
	// DefaultLease is how long a claimed job is hidden from other runners.
	DefaultLease = 10 * time.Minute
)

type settings struct {
	concurrency  int
	pollInterval time.Duration
	maxRetries   int
	lease        time.Duration
	logger       log.Logger
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*settings)

// WithConcurrency sets the maximum number of jobs run at once.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPollInterval sets how often Run looks for ready jobs.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMaxRetries sets how many retries a job gets before it is marked
// dead. Zero buries a job on its first failure.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithLease sets how long a claimed job stays hidden from other runners.
func WithLease(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

type handler[C any] func(ctx context.Context, env C, data []byte) error

// Runner claims jobs from a Queue and runs them against a shared
// environment.
type Runner[C any] struct {
	settings
	queue    Queue
	env      C
	handlers map[string]handler[C]
}

// Summary counts the outcomes of one RunPending pass.
type Summary struct {
	Succeeded int
	Retried   int
	Dead      int
}

// Total is the number of jobs that ran.
func (s Summary) Total() int {
	return s.Succeeded + s.Retried + s.Dead
}

// NewRunner creates a runner with no registered job types.
func NewRunner[C any](q Queue, env C, opts ...Option) *Runner[C] {
	r := &Runner[C]{
		settings: settings{
			concurrency:  DefaultConcurrency,
			pollInterval: DefaultPollInterval,
			maxRetries:   DefaultMaxRetries,
			lease:        DefaultLease,
			logger:       log.Default(),
			now:          time.Now,
		},
		queue:    q,
		env:      env,
		handlers: make(map[string]handler[C]),
	}
	for _, opt := range opts {
		opt(&r.settings)
	}
	return r
}

// Env returns the environment jobs run against.
func (r *Runner[C]) Env() C {
	return r.env
}

// RunPending runs ready jobs until the queue has none left. Job failures
// are recorded in the queue and counted in the summary; only queue errors
// and cancellation are returned.
func (r *Runner[C]) RunPending(ctx context.Context) (Summary, error) {
	var total Summary
	for {
		jobs, err := r.queue.ClaimJobs(ctx, r.now(), r.concurrency, r.lease)
		if err != nil {
			return total, fmt.Errorf("failed to claim jobs: %w", err)
		}
		if len(jobs) == 0 {
			return total, nil
		}

		summary, err := r.runBatch(ctx, jobs)
		total.Succeeded += summary.Succeeded
		total.Retried += summary.Retried
		total.Dead += summary.Dead
		if err != nil {
			return total, err
		}
	}
}

// Run polls the queue until ctx is cancelled.
func (r *Runner[C]) Run(ctx context.Context) error {
	r.logger.Info("Worker started", "concurrency", r.concurrency, "poll_interval", r.pollInterval)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunPending(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("Failed to run pending jobs", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("Worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner[C]) runBatch(ctx context.Context, jobs []store.Job) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, job := range jobs {
		g.Go(func() error {
			outcome, err := r.runJob(ctx, job)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSucceeded:
				summary.Succeeded++
			case outcomeRetried:
				summary.Retried++
			case outcomeDead:
				summary.Dead++
			}
			return nil
		})
	}
	err := g.Wait()
	return summary, err
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeRetried
	outcomeDead
)

// runJob runs one job and records the result in the queue. The returned
// error is a queue failure; job failures are reported through the outcome.
func (r *Runner[C]) runJob(ctx context.Context, job store.Job) (outcome, error) {
	logger := r.logger.With("job_id", job.ID, "job", job.Type)

	h, ok := r.handlers[job.Type]
	if !ok {
		msg := fmt.Sprintf("no handler registered for job type %q", job.Type)
		logger.Error("Unknown job type")
		return outcomeDead, r.queue.BuryJob(ctx, job.ID, msg)
	}

	start := r.now()
	err := r.call(ctx, h, job)
	if err == nil {
		logger.Debug("Job succeeded", "duration", r.now().Sub(start))
		return outcomeSucceeded, r.queue.CompleteJob(ctx, job.ID)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Shutting down; the lease will expire and the job runs again.
		return outcomeRetried, ctx.Err()
	}

	if job.Retries >= r.maxRetries {
		logger.Error("Job failed permanently", "retries", job.Retries, "error", err)
		return outcomeDead, r.queue.BuryJob(ctx, job.ID, err.Error())
	}
	next := r.now().Add(Backoff(job.Retries))
	logger.Warn("Job failed, will retry", "retries", job.Retries, "run_after", next, "error", err)
	return outcomeRetried, r.queue.RetryJob(ctx, job.ID, err.Error(), next)
}

func (r *Runner[C]) call(ctx context.Context, h handler[C], job store.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return h(ctx, r.env, job.Data)
}
