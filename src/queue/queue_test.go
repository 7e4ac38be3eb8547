package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaskMessageFromJSON(t *testing.T) {
	msg := NewTaskMessage("abc", "export", 3)
	body, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := TaskMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.TaskID)
	assert.Equal(t, int64(3), got.UserID)

	_, err = TaskMessageFromJSON([]byte(`{"task_type":"export","user_id":3}`))
	assert.ErrorContains(t, err, "missing task_id")

	_, err = TaskMessageFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestLocalDeliversAndRequeues(t *testing.T) {
	q := NewLocal(4, 1, zap.NewNop())
	q.requeueDelay = 10 * time.Millisecond
	require.NoError(t, q.PublishTask(context.Background(), NewTaskMessage("t1", "export", 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var attempts atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = q.ConsumeTasks(ctx, func(_ context.Context, msg *TaskMessage) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient")
			}
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("message was not redelivered")
	}
	assert.Equal(t, int32(2), attempts.Load())
}

func TestLocalPublishRejectsWhenFull(t *testing.T) {
	q := NewLocal(1, 1, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, q.PublishTask(ctx, NewTaskMessage("t1", "export", 1)))
	assert.ErrorIs(t, q.PublishTask(ctx, NewTaskMessage("t2", "export", 1)), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}
