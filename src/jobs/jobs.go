// Package jobs holds the worker-side implementations of each background
// task type. A job reads and writes only the rows of the task's owner.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"time"

	"go.uber.org/zap"
)

var ErrUnknownTaskType = errors.New("unknown task type")

// Runner executes one task and returns the artifact path relative to the
// export directory, or nil when the job produces none.
type Runner struct {
	store     store.Store
	syncer    TransactionSyncer
	exportDir string
	log       *zap.Logger
	now       func() time.Time
}

// NewRunner returns a Runner. syncer may be nil, in which case plaid_sync
// tasks fail.
func NewRunner(s store.Store, syncer TransactionSyncer, exportDir string, log *zap.Logger) *Runner {
	return &Runner{
		store:     s,
		syncer:    syncer,
		exportDir: exportDir,
		log:       log.Named("jobs"),
		now:       time.Now,
	}
}

// WithClock overrides the clock used by date-sensitive jobs.
func (j *Runner) WithClock(now func() time.Time) *Runner {
	j.now = now
	return j
}

func (j *Runner) Run(ctx context.Context, task *models.BackgroundTask) (*string, error) {
	p := access.Principal{UserID: task.UserID}
	switch task.TaskType {
	case models.TaskTypeExport:
		return j.Export(ctx, p, task.TaskID)
	case models.TaskTypeAnomalyScan:
		_, err := j.ScanAnomalies(ctx, p)
		return nil, err
	case models.TaskTypeCategorize:
		_, err := j.Categorize(ctx, p)
		return nil, err
	case models.TaskTypeBudgetForecast:
		_, err := j.ForecastBudgets(ctx, p)
		return nil, err
	case models.TaskTypePlaidSync:
		_, err := j.SyncPlaid(ctx, p)
		return nil, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.TaskType)
}
