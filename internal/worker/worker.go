// Package worker runs persisted background jobs.
//
// Jobs are plain structs serialized as JSON. A job type is registered once
// with Register and enqueued with Enqueue; a Runner claims ready jobs from
// the queue and runs them on a bounded number of goroutines, retrying
// failures with exponential backoff until they are marked dead.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tsukumogami/squatwatch/internal/store"
)

// Named is anything with a job name. JobName must not depend on the
// receiver's fields; it is called on the zero value at registration.
type Named interface {
	JobName() string
}

// Job is a unit of background work that runs against an environment of
// type C.
type Job[C any] interface {
	Named
	Run(ctx context.Context, env C) error
}

// Prioritized jobs are claimed before jobs with a lower priority.
type Prioritized interface {
	Priority() int
}

// Queue is the persistent job storage a Runner works against.
type Queue interface {
	EnqueueJob(ctx context.Context, jobType string, data []byte, priority int) (string, error)
	ClaimJobs(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]store.Job, error)
	CompleteJob(ctx context.Context, id string) error
	RetryJob(ctx context.Context, id, lastError string, runAfter time.Time) error
	BuryJob(ctx context.Context, id, lastError string) error
}

// Enqueuer is the part of Queue needed to add jobs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType string, data []byte, priority int) (string, error)
}

// Enqueue serializes job and adds it to the queue, returning the job ID.
func Enqueue(ctx context.Context, q Enqueuer, job Named) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s job: %w", job.JobName(), err)
	}
	priority := 0
	if p, ok := job.(Prioritized); ok {
		priority = p.Priority()
	}
	id, err := q.EnqueueJob(ctx, job.JobName(), data, priority)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s job: %w", job.JobName(), err)
	}
	return id, nil
}

// Register makes r able to run jobs of type J. Registering the same job
// name twice replaces the earlier handler.
func Register[J Job[C], C any](r *Runner[C]) {
	var zero J
	r.handlers[zero.JobName()] = func(ctx context.Context, env C, data []byte) error {
		var job J
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to decode %s job: %w", zero.JobName(), err)
		}
		return job.Run(ctx, env)
	}
}

// Backoff returns how long to wait before retrying a job that has failed
// retries times before: 2^retries minutes, capped at one hour.
func Backoff(retries int) time.Duration {
	if retries >= 6 {
		return time.Hour
	}
	return min(time.Duration(1<<retries)*time.Minute, time.Hour)
}
