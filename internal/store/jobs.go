package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	// JobPending jobs are waiting to run or to be retried.
	JobPending JobStatus = "pending"
	// JobDead jobs exhausted their retries and are kept for inspection.
	JobDead JobStatus = "dead"
)

// Job is a row of the background_jobs table.
type Job struct {
	ID        string
	Type      string
	Data      []byte
	Priority  int
	Retries   int
	LastError string
	Status    JobStatus
	CreatedAt time.Time
	RunAfter  time.Time
}

// EnqueueJob stores a new pending job that is ready to run immediately and
// returns its ID.
func (s *Store) EnqueueJob(ctx context.Context, jobType string, data []byte, priority int) (string, error) {
	id := uuid.NewString()
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO background_jobs (id, job_type, data, priority, created_at, run_after)
		VALUES (?, ?, ?, ?, ?, ?)`, id, jobType, string(data), priority, now, now)
	if err != nil {
		return "", queryError("enqueue job", jobType, err)
	}
	return id, nil
}

// ClaimJobs leases up to limit ready jobs until now+lease and returns them
// highest priority first, then oldest first. A leased job is not handed out
// again until the lease expires, so a crashed worker's jobs come back.
func (s *Store) ClaimJobs(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE background_jobs SET locked_until = ?
		WHERE id IN (
			SELECT id FROM background_jobs
			WHERE status = 'pending' AND run_after <= ? AND locked_until <= ?
			ORDER BY priority DESC, created_at ASC, id ASC
			LIMIT ?
		)
		RETURNING id, job_type, data, priority, retries, last_error, status, created_at, run_after`,
		now.Add(lease).UnixMilli(), now.UnixMilli(), now.UnixMilli(), limit)
	if err != nil {
		return nil, queryError("claim jobs", "", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, queryError("scan claimed job", "", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("iterate claimed jobs", "", err)
	}

	// RETURNING does not preserve the subquery order.
	slices.SortFunc(jobs, func(a, b Job) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return jobs, nil
}

// CompleteJob removes a job that ran successfully.
func (s *Store) CompleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM background_jobs WHERE id = ?`, id); err != nil {
		return queryError("complete job", id, err)
	}
	return nil
}

// RetryJob records a failure and schedules the job to run again at
// runAfter.
func (s *Store) RetryJob(ctx context.Context, id, lastError string, runAfter time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE background_jobs
		SET retries = retries + 1, last_error = ?, run_after = ?, locked_until = 0
		WHERE id = ?`, lastError, runAfter.UnixMilli(), id)
	if err != nil {
		return queryError("retry job", id, err)
	}
	return nil
}

// BuryJob records a final failure and marks the job dead.
func (s *Store) BuryJob(ctx context.Context, id, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE background_jobs
		SET retries = retries + 1, last_error = ?, status = 'dead', locked_until = 0
		WHERE id = ?`, lastError, id)
	if err != nil {
		return queryError("bury job", id, err)
	}
	return nil
}

// GetJob loads a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_type, data, priority, retries, last_error, status, created_at, run_after
		FROM background_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, &StoreError{Type: ErrTypeNotFound, Key: id, Message: "job not found"}
	}
	if err != nil {
		return Job{}, queryError("load job", id, err)
	}
	return job, nil
}

// CountJobs returns the number of jobs in each status.
func (s *Store) CountJobs(ctx context.Context) (map[JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM background_jobs GROUP BY status`)
	if err != nil {
		return nil, queryError("count jobs", "", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var (
			status JobStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, queryError("scan job count", "", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("iterate job counts", "", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job                 Job
		data                string
		createdAt, runAfter int64
	)
	if err := row.Scan(&job.ID, &job.Type, &data, &job.Priority, &job.Retries, &job.LastError,
		&job.Status, &createdAt, &runAfter); err != nil {
		return Job{}, err
	}
	job.Data = []byte(data)
	job.CreatedAt = time.UnixMilli(createdAt)
	job.RunAfter = time.UnixMilli(runAfter)
	return job, nil
}
