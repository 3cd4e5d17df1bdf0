package worker

import (
	"context"
	"log"
	"time"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/bobarin/storyboard/internal/queue"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const dequeueTimeout = 5 * time.Second

// Runner renders scene media. Implemented by the orchestrator.
type Runner interface {
	RunSceneMedia(ctx context.Context, kind models.JobType, projectID, sceneID string) error
}

// JobLog records job progress. Optional.
type JobLog interface {
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
}

type Worker struct {
	broker queue.Broker
	runner Runner
	jobs   JobLog

	dequeueTimeout time.Duration
}

// New builds a worker. jobs may be nil when no job log is configured.
func New(broker queue.Broker, runner Runner, jobs JobLog) *Worker {
	return &Worker{
		broker:         broker,
		runner:         runner,
		jobs:           jobs,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start consumes both media queues with the given number of consumers each
// and blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	log.Printf("[Worker] Started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error { return w.processQueue(gctx, queue.QueueSceneVideo) })
		g.Go(func() error { return w.processQueue(gctx, queue.QueueSceneAudio) })
	}

	err := g.Wait()
	log.Println("[Worker] Shutting down...")
	return err
}

func (w *Worker) processQueue(ctx context.Context, queueName string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		job, err := w.broker.Dequeue(ctx, queueName, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Worker] Error dequeuing from %s: %v", queueName, err)
			continue
		}
		if job == nil {
			continue
		}

		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	log.Printf("[Worker] Processing job %s (type: %s, project: %s, scene: %s)", job.ID, job.Type, job.ProjectID, job.SceneID)

	w.setStatus(ctx, job.ID, models.JobStatusRunning)

	if err := w.runner.RunSceneMedia(ctx, job.Type, job.ProjectID, job.SceneID); err != nil {
		log.Printf("[Worker] Job %s failed: %v", job.ID, err)
		if w.jobs != nil {
			if err := w.jobs.UpdateJobError(ctx, job.ID, err.Error()); err != nil {
				log.Printf("[Worker] Failed to record job error: %v", err)
			}
		}
		return
	}

	log.Printf("[Worker] Job %s completed successfully", job.ID)
	w.setStatus(ctx, job.ID, models.JobStatusSucceeded)
}

func (w *Worker) setStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) {
	if w.jobs == nil {
		return
	}
	if err := w.jobs.UpdateJobStatus(ctx, id, status); err != nil {
		log.Printf("[Worker] Failed to update job status: %v", err)
	}
}
