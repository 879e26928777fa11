// Package queue implements the Postgres-backed job queue the workers consume
// and the pipelines schedule follow-up work through. Claiming uses
// FOR UPDATE SKIP LOCKED so concurrent workers never double-claim; retry and
// dead-lettering happen at this layer, independently of the in-pipeline
// retry wrapper, which handles single-step transient failures in-process.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Job statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusDead    = "dead"
)

// ErrNoJobs is returned by Claim when no job is ready.
var ErrNoJobs = errors.New("queue: no jobs available")

// Job is one row in the jobs table.
type Job struct {
	ID          uuid.UUID
	Queue       string
	Operation   string
	Payload     json.RawMessage
	Status      string
	Attempt     int
	MaxAttempts int
	LastError   string
	AvailableAt time.Time
	CreatedAt   time.Time
}

// Queue provides enqueue/claim/complete operations over a connection pool.
type Queue struct {
	pool        *pgxpool.Pool
	maxAttempts int
	backoff     time.Duration
	lease       time.Duration
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxAttempts sets how many times a job may run before dead-lettering.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) { q.maxAttempts = n }
}

// WithRetryBackoff sets the base delay before a failed job becomes available
// again. The actual delay scales linearly with the attempt number.
func WithRetryBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

// WithLease sets how long a running job stays locked before Claim treats it
// as abandoned and hands it to another worker. A crashed worker's jobs
// therefore resurface after at most one lease.
func WithLease(d time.Duration) Option {
	return func(q *Queue) { q.lease = d }
}

// New returns a Queue on the given pool.
func New(pool *pgxpool.Pool, opts ...Option) *Queue {
	q := &Queue{pool: pool, maxAttempts: 3, backoff: 30 * time.Second, lease: 5 * time.Minute}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add enqueues a job. The payload is stored as JSON.
func (q *Queue) Add(ctx context.Context, queueName, operation string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal payload for %s: %w", operation, err)
	}

	var id uuid.UUID
	err = q.pool.QueryRow(ctx,
		`INSERT INTO jobs (queue, operation, payload, max_attempts)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		queueName, operation, data, q.maxAttempts,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue %s: %w", operation, err)
	}
	return id, nil
}

// Claim atomically takes the oldest ready job on queueName for workerName.
// A job counts as ready when it is pending and due, or when it has sat in
// running past the lease (its worker is presumed dead). Returns ErrNoJobs
// when nothing is ready.
func (q *Queue) Claim(ctx context.Context, queueName, workerName string) (*Job, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	expired := time.Now().Add(-q.lease)

	var job Job
	err = tx.QueryRow(ctx,
		`SELECT id, queue, operation, payload, status, attempt, max_attempts, last_error, available_at, created_at
		 FROM jobs
		 WHERE queue = $1
		   AND ((status = $2 AND available_at <= NOW()) OR (status = $3 AND locked_at < $4))
		 ORDER BY created_at
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		queueName, StatusPending, StatusRunning, expired,
	).Scan(&job.ID, &job.Queue, &job.Operation, &job.Payload, &job.Status,
		&job.Attempt, &job.MaxAttempts, &job.LastError, &job.AvailableAt, &job.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoJobs
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, attempt = attempt + 1, locked_by = $2, locked_at = NOW(), updated_at = NOW()
		 WHERE id = $3`,
		StatusRunning, workerName, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock job %s: %w", job.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	job.Status = StatusRunning
	job.Attempt++
	return &job, nil
}

// Complete acknowledges a successfully processed job.
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, locked_by = NULL, updated_at = NOW() WHERE id = $2`,
		StatusDone, jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	return nil
}

// Fail records a job failure. Jobs with attempts remaining return to pending
// with a linear backoff; exhausted jobs are dead-lettered.
func (q *Queue) Fail(ctx context.Context, job *Job, jobErr error) error {
	status := StatusPending
	availableAt := time.Now().Add(q.backoff * time.Duration(job.Attempt))
	if job.Attempt >= job.MaxAttempts {
		status = StatusDead
		availableAt = time.Now()
	}

	_, err := q.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, last_error = $2, available_at = $3, locked_by = NULL, updated_at = NOW()
		 WHERE id = $4`,
		status, jobErr.Error(), availableAt, job.ID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	return nil
}

// Release returns a claimed job to pending without counting the attempt
// against it, for graceful shutdown mid-claim.
func (q *Queue) Release(ctx context.Context, job *Job) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $1, attempt = attempt - 1, locked_by = NULL, updated_at = NOW()
		 WHERE id = $2`,
		StatusPending, job.ID)
	if err != nil {
		return fmt.Errorf("failed to release job %s: %w", job.ID, err)
	}
	return nil
}
