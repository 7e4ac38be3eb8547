package db

import (
	"context"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"time"
)

const taskColumns = `id, user_id, task_id, task_type, status, result_file, created_at, completed_at`

func scanTask(row interface{ Scan(...any) error }) (*models.BackgroundTask, error) {
	var t models.BackgroundTask
	err := row.Scan(&t.ID, &t.UserID, &t.TaskID, &t.TaskType, &t.Status, &t.ResultFile, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *Repo) CreateTask(ctx context.Context, f access.Filter, t *models.BackgroundTask) (*models.BackgroundTask, error) {
	query := `
		INSERT INTO background_tasks (user_id, task_id, task_type, status)
		VALUES ($1, $2, $3, 'PENDING')
		RETURNING ` + taskColumns
	return scanTask(r.q.QueryRow(ctx, query, f.OwnerID, t.TaskID, t.TaskType))
}

func (r *Repo) ListTasks(ctx context.Context, f access.Filter) ([]models.BackgroundTask, error) {
	where, args := f.SQL(1)
	query := `SELECT ` + taskColumns + ` FROM background_tasks WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.BackgroundTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *Repo) GetTask(ctx context.Context, f access.Filter) (*models.BackgroundTask, error) {
	if f.ID == nil {
		return nil, store.ErrNotFound
	}
	where, args := f.SQL(1)
	return scanTask(r.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM background_tasks WHERE `+where, args...))
}

func (r *Repo) GetTaskByTaskID(ctx context.Context, taskID string) (*models.BackgroundTask, error) {
	return scanTask(r.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM background_tasks WHERE task_id = $1`, taskID))
}

// CompleteTask is a compare-and-set on status: of two concurrent callers only
// one sees a PENDING row.
func (r *Repo) CompleteTask(ctx context.Context, taskID string, status models.TaskStatus, resultFile *string, at time.Time) (bool, error) {
	query := `
		UPDATE background_tasks
		SET status = $1, result_file = $2, completed_at = $3
		WHERE task_id = $4 AND status = 'PENDING'`
	tag, err := r.q.Exec(ctx, query, status, resultFile, at, taskID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
