// Package worker turns queued task messages into job runs and records their
// outcome.
package worker

import (
	"context"
	"errors"
	"spendsage-server/src/models"
	"spendsage-server/src/queue"
	"spendsage-server/src/services"
	"time"

	"go.uber.org/zap"
)

// JobRunner executes a task and returns its artifact reference, if any.
type JobRunner interface {
	Run(ctx context.Context, task *models.BackgroundTask) (*string, error)
}

type Processor struct {
	tasks *services.TaskService
	jobs  JobRunner
	log   *zap.Logger
}

func NewProcessor(tasks *services.TaskService, jobs JobRunner, log *zap.Logger) *Processor {
	return &Processor{tasks: tasks, jobs: jobs, log: log.Named("worker")}
}

// Handle runs the task named by msg. A nil return acknowledges the message;
// an error asks the queue to deliver it again. Job failures are recorded on
// the task and acknowledged.
func (p *Processor) Handle(ctx context.Context, msg *queue.TaskMessage) error {
	log := p.log.With(zap.String("task_id", msg.TaskID), zap.String("task_type", msg.TaskType))

	task, err := p.tasks.Lookup(ctx, msg.TaskID)
	if errors.Is(err, services.ErrNotFound) {
		log.Warn("dropping message for unknown task")
		return nil
	}
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		log.Info("task already finished", zap.String("status", string(task.Status)))
		return nil
	}
	if task.UserID != msg.UserID || task.TaskType != msg.TaskType {
		log.Warn("message disagrees with task record, using record",
			zap.Int64("record_user_id", task.UserID),
			zap.String("record_task_type", task.TaskType))
	}

	start := time.Now()
	resultFile, jobErr := p.jobs.Run(ctx, task)
	if jobErr != nil && ctx.Err() != nil {
		// Shutting down; leave the task PENDING for redelivery.
		return ctx.Err()
	}

	status := models.TaskSuccess
	if jobErr != nil {
		status = models.TaskFailed
		log.Error("job failed", zap.Error(jobErr), zap.Duration("took", time.Since(start)))
	}

	res, err := p.tasks.Complete(context.WithoutCancel(ctx), task.TaskID, status, resultFile)
	if err != nil {
		log.Error("failed to record task outcome", zap.Error(err))
		return err
	}
	if res == services.CompleteApplied {
		log.Info("task finished", zap.String("status", string(status)), zap.Duration("took", time.Since(start)))
	}
	return nil
}
