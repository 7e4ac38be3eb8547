package models

import "time"

type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailed  TaskStatus = "FAILED"
)

// Terminal reports whether no further transition is permitted from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailed
}

const (
	TaskTypeExport         = "export"
	TaskTypeAnomalyScan    = "anomaly_scan"
	TaskTypeCategorize     = "categorize"
	TaskTypeBudgetForecast = "budget_forecast"
	TaskTypePlaidSync      = "plaid_sync"
)

type BackgroundTask struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"-"`
	TaskID      string     `json:"task_id"`
	TaskType    string     `json:"task_type"`
	Status      TaskStatus `json:"status"`
	ResultFile  *string    `json:"result_file"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
