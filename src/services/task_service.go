package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/queue"
	"spendsage-server/src/store"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompleteResult reports what a Complete call did.
type CompleteResult int

const (
	CompleteApplied CompleteResult = iota
	CompleteAlreadyTerminal
	CompleteNotFound
)

func (r CompleteResult) String() string {
	switch r {
	case CompleteApplied:
		return "applied"
	case CompleteAlreadyTerminal:
		return "already_terminal"
	case CompleteNotFound:
		return "not_found"
	}
	return "unknown"
}

var taskTypes = map[string]bool{
	models.TaskTypeExport:         true,
	models.TaskTypeAnomalyScan:    true,
	models.TaskTypeCategorize:     true,
	models.TaskTypeBudgetForecast: true,
	models.TaskTypePlaidSync:      true,
}

type TaskService struct {
	store      store.Store
	publisher  TaskPublisher
	resultRoot string
	log        *zap.Logger
	newID      func() string
	now        func() time.Time
}

func NewTaskService(s store.Store, publisher TaskPublisher, resultRoot string, log *zap.Logger) *TaskService {
	return &TaskService{
		store:      s,
		publisher:  publisher,
		resultRoot: resultRoot,
		log:        log.Named("tasks"),
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}
}

// Enqueue records a PENDING task for p and publishes it once the record is
// committed. If publishing fails the task is completed as FAILED and
// ErrDispatch is returned alongside it.
func (s *TaskService) Enqueue(ctx context.Context, p access.Principal, taskType string) (*models.BackgroundTask, error) {
	if !taskTypes[taskType] {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	var task *models.BackgroundTask
	err := s.store.Update(ctx, func(r store.Repository) error {
		var err error
		task, err = r.CreateTask(ctx, access.Scope(p), &models.BackgroundTask{
			TaskID:   s.newID(),
			TaskType: taskType,
		})
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		s.log.Error("task id collision", zap.Int64("user_id", p.UserID), zap.String("task_type", taskType))
		return nil, ErrTaskIDCollision
	}
	if err != nil {
		return nil, err
	}

	msg := queue.NewTaskMessage(task.TaskID, task.TaskType, p.UserID)
	if err := s.publisher.PublishTask(ctx, msg); err != nil {
		s.log.Error("failed to publish task, marking failed", zap.String("task_id", task.TaskID), zap.Error(err))
		if _, cerr := s.Complete(context.WithoutCancel(ctx), task.TaskID, models.TaskFailed, nil); cerr != nil {
			return nil, fmt.Errorf("%w: %v (and mark failed: %v)", ErrDispatch, err, cerr)
		}
		failed, gerr := s.Get(context.WithoutCancel(ctx), p, task.ID)
		if gerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrDispatch, err)
		}
		return failed, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	s.log.Info("enqueued task",
		zap.Int64("user_id", p.UserID),
		zap.String("task_id", task.TaskID),
		zap.String("task_type", task.TaskType))
	return task, nil
}

func (s *TaskService) List(ctx context.Context, p access.Principal) ([]models.BackgroundTask, error) {
	var out []models.BackgroundTask
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListTasks(ctx, access.Scope(p))
		return err
	})
	return out, err
}

func (s *TaskService) Get(ctx context.Context, p access.Principal, id int64) (*models.BackgroundTask, error) {
	var out *models.BackgroundTask
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.GetTask(ctx, access.Scope(p).ByID(id))
		return err
	})
	return out, err
}

// Lookup is the worker's unscoped read by external task id.
func (s *TaskService) Lookup(ctx context.Context, taskID string) (*models.BackgroundTask, error) {
	var out *models.BackgroundTask
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		out, err = r.GetTaskByTaskID(ctx, taskID)
		return err
	})
	return out, err
}

// Complete applies the terminal transition for taskID at most once. Calls
// against a finished or unknown task are no-ops and report why.
func (s *TaskService) Complete(ctx context.Context, taskID string, status models.TaskStatus, resultFile *string) (CompleteResult, error) {
	if !status.Terminal() {
		return 0, fmt.Errorf("complete with non-terminal status %q", status)
	}
	if status != models.TaskSuccess {
		resultFile = nil
	}

	result := CompleteApplied
	err := s.store.Update(ctx, func(r store.Repository) error {
		applied, err := r.CompleteTask(ctx, taskID, status, resultFile, s.now())
		if err != nil || applied {
			return err
		}
		_, err = r.GetTaskByTaskID(ctx, taskID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result = CompleteNotFound
			return nil
		case err != nil:
			return err
		}
		result = CompleteAlreadyTerminal
		return nil
	})
	if err != nil {
		return 0, err
	}

	if result != CompleteApplied {
		s.log.Warn("ignored task completion", zap.String("task_id", taskID), zap.String("status", string(status)), zap.Stringer("result", result))
	} else {
		s.log.Info("completed task", zap.String("task_id", taskID), zap.String("status", string(status)))
	}
	return result, nil
}

// ResultPath resolves the artifact of p's successful task on disk.
func (s *TaskService) ResultPath(ctx context.Context, p access.Principal, id int64) (string, error) {
	task, err := s.Get(ctx, p, id)
	if err != nil {
		return "", err
	}
	if task.Status != models.TaskSuccess || task.ResultFile == nil {
		return "", ErrNotFound
	}
	root, err := filepath.Abs(s.resultRoot)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, filepath.FromSlash(*task.ResultFile))
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return path, nil
}
