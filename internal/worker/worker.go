// Package worker binds the job queue to the pipeline executor: one worker
// loop per job type claims jobs, builds the pipeline, runs it, and acks or
// fails the job. Queue-level retry here is the outer layer, distinct from the
// in-pipeline retry wrapper: the wrapper retries a single step quickly
// in-process; the queue retries the whole job later, possibly on another
// process.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recipe-importer/internal/jobs"
	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/queue"
	"github.com/jonathan/recipe-importer/internal/types"
)

// JobSource is the queue surface a worker consumes. *queue.Queue satisfies it.
type JobSource interface {
	Claim(ctx context.Context, queueName, workerName string) (*queue.Job, error)
	Complete(ctx context.Context, jobID uuid.UUID) error
	Fail(ctx context.Context, job *queue.Job, jobErr error) error
	Release(ctx context.Context, job *queue.Job) error
}

// settleTimeout bounds the queue writes that settle a finished job. Settling
// runs on a context detached from the job context so that a shutdown which
// cancels the pipeline mid-flight cannot also cancel the write that records
// the outcome.
const settleTimeout = 10 * time.Second

// Worker consumes one queue. Jobs run strictly one at a time per Worker;
// concurrency comes from running multiple Workers on the same queue.
type Worker struct {
	name      string
	queueName string
	source    JobSource
	pipelines *jobs.Pipelines
	deps      jobs.Deps
	exec      *pipeline.Executor
	log       *observability.Logger
	poll      time.Duration
}

// New returns a Worker named name consuming queueName.
func New(name, queueName string, source JobSource, pipelines *jobs.Pipelines, deps jobs.Deps, poll time.Duration) *Worker {
	if poll <= 0 {
		poll = time.Second
	}
	log := deps.Log
	if log == nil {
		log = observability.Default()
	}
	return &Worker{
		name:      name,
		queueName: queueName,
		source:    source,
		pipelines: pipelines,
		deps:      deps,
		exec:      pipeline.NewExecutor(log),
		log:       log.WithPrefix(fmt.Sprintf("[worker %s] ", name)),
		poll:      poll,
	}
}

// Run claims and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infof("consuming queue %s", w.queueName)
	for {
		job, err := w.source.Claim(ctx, w.queueName, w.name)
		if err != nil {
			if errors.Is(err, queue.ErrNoJobs) {
				if err := sleep(ctx, w.poll); err != nil {
					return nil
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.log.Errorf("failed to claim job: %v", err)
			if err := sleep(ctx, w.poll); err != nil {
				return nil
			}
			continue
		}

		w.process(ctx, job)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// process runs one job's pipeline and settles it with the queue.
func (w *Worker) process(ctx context.Context, job *queue.Job) {
	actx := w.actionContext(job)

	actions, initial, err := w.pipelines.Build(job.Operation, job.Payload)
	if err != nil {
		// A payload that cannot even be decoded will never succeed; fail it
		// through to dead-lettering.
		w.log.Errorf("job %s: %v", job.ID, err)
		w.settleFailure(ctx, job, actx, err)
		return
	}

	if _, err := w.exec.Run(ctx, actx, actions, initial); err != nil {
		w.settleFailure(ctx, job, actx, err)
		return
	}

	sctx, cancel := settleContext(ctx)
	defer cancel()
	if err := w.source.Complete(sctx, job.ID); err != nil {
		w.log.Errorf("failed to complete job %s: %v", job.ID, err)
	}
}

// settleFailure reports the failure to the queue and, when the job has
// exhausted its attempts, marks the import failed so users are not left with
// a forever-pending import. A failure caused by shutdown releases the job
// instead, so the interrupted attempt is not charged against the job.
func (w *Worker) settleFailure(ctx context.Context, job *queue.Job, actx *pipeline.ActionContext, jobErr error) {
	sctx, cancel := settleContext(ctx)
	defer cancel()

	if ctx.Err() != nil {
		if err := w.source.Release(sctx, job); err != nil {
			w.log.Errorf("failed to release job %s: %v", job.ID, err)
		}
		return
	}

	if err := w.source.Fail(sctx, job, jobErr); err != nil {
		w.log.Errorf("failed to mark job %s failed: %v", job.ID, err)
		return
	}
	if job.Attempt < job.MaxAttempts {
		return
	}

	w.log.Errorf("job %s dead-lettered after %d attempts: %v", job.ID, job.Attempt, jobErr)
	if actx.ImportID == uuid.Nil {
		return
	}
	if err := w.deps.Repo.SetImportStatus(sctx, actx.ImportID, types.ImportFailed, actx.NoteID, jobErr.Error()); err != nil {
		w.log.Errorf("failed to mark import %s failed: %v", actx.ImportID, err)
	}
	if err := w.deps.Notifier.Notify(sctx, types.StatusEvent{
		ImportID: actx.ImportID,
		NoteID:   actx.NoteID,
		Status:   types.ImportFailed,
		Message:  jobErr.Error(),
		Context:  job.Operation,
	}); err != nil {
		w.log.Errorf("failed to broadcast failure for import %s: %v", actx.ImportID, err)
	}
}

// settleContext detaches from ctx's cancellation while keeping its values, so
// settle writes survive worker shutdown.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// actionContext builds the immutable per-job metadata handed to every action.
func (w *Worker) actionContext(job *queue.Job) *pipeline.ActionContext {
	var meta struct {
		ImportID uuid.UUID  `json:"import_id"`
		NoteID   *uuid.UUID `json:"note_id"`
	}
	// Best effort: a payload without these fields still gets a context.
	_ = json.Unmarshal(job.Payload, &meta)

	return &pipeline.ActionContext{
		JobID:      job.ID,
		Queue:      job.Queue,
		Operation:  job.Operation,
		Worker:     w.name,
		Attempt:    job.Attempt,
		RetryCount: job.Attempt - 1,
		StartedAt:  time.Now(),
		ImportID:   meta.ImportID,
		NoteID:     meta.NoteID,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pool runs a configurable number of Workers per queue under one errgroup.
type Pool struct {
	source    JobSource
	deps      jobs.Deps
	pipelines *jobs.Pipelines
	workers   map[string]int
	poll      time.Duration
}

// NewPool returns a Pool running `workers[queue]` workers for each queue in
// the map. Queues absent from the map get one worker.
func NewPool(source JobSource, deps jobs.Deps, workers map[string]int, poll time.Duration) *Pool {
	return &Pool{
		source:    source,
		deps:      deps,
		pipelines: jobs.NewPipelines(deps),
		workers:   workers,
		poll:      poll,
	}
}

// Run starts every worker and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	queues := []string{
		jobs.QueueNote,
		jobs.QueueImage,
		jobs.QueueIngredient,
		jobs.QueueInstruction,
		jobs.QueueCategorize,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, queueName := range queues {
		n := p.workers[queueName]
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			w := New(fmt.Sprintf("%s-%d", queueName, i), queueName, p.source, p.pipelines, p.deps, p.poll)
			g.Go(func() error { return w.Run(ctx) })
		}
	}
	return g.Wait()
}
