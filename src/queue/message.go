// Package queue carries task messages from the API to the worker, over
// RabbitMQ or an in-process channel.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TaskMessage announces a PENDING background task to the worker.
type TaskMessage struct {
	TaskID     string    `json:"task_id"`
	TaskType   string    `json:"task_type"`
	UserID     int64     `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewTaskMessage(taskID, taskType string, userID int64) TaskMessage {
	return TaskMessage{
		TaskID:     taskID,
		TaskType:   taskType,
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (m TaskMessage) Validate() error {
	switch {
	case m.TaskID == "":
		return errors.New("missing task_id")
	case m.TaskType == "":
		return errors.New("missing task_type")
	case m.UserID <= 0:
		return errors.New("missing user_id")
	}
	return nil
}

func (m TaskMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TaskMessageFromJSON(data []byte) (*TaskMessage, error) {
	var m TaskMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode task message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task message: %w", err)
	}
	return &m, nil
}

// Handler processes one message. Returning nil acknowledges it; an error
// puts it back on the queue.
type Handler func(ctx context.Context, msg *TaskMessage) error

// Queue is implemented by Client and Local.
type Queue interface {
	PublishTask(ctx context.Context, msg TaskMessage) error
	ConsumeTasks(ctx context.Context, handler Handler) error
	Close() error
}
