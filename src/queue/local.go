package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrQueueFull = errors.New("queue: local buffer full")

// Local is an in-process queue for single-binary deployments and tests.
// Messages do not survive a restart.
type Local struct {
	ch           chan TaskMessage
	concurrency  int
	requeueDelay time.Duration
	log          *zap.Logger
}

var _ Queue = (*Local)(nil)

func NewLocal(buffer, concurrency int, log *zap.Logger) *Local {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Local{
		ch:           make(chan TaskMessage, buffer),
		concurrency:  concurrency,
		requeueDelay: time.Second,
		log:          log.Named("local-queue"),
	}
}

// PublishTask never blocks; a full buffer is reported as ErrQueueFull.
func (q *Local) PublishTask(ctx context.Context, msg TaskMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *Local) ConsumeTasks(ctx context.Context, handler Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case msg := <-q.ch:
					if err := handler(ctx, &msg); err != nil {
						q.log.Error("failed to handle message", zap.Error(err), zap.String("task_id", msg.TaskID))
						q.requeue(ctx, msg)
					}
				}
			}
		})
	}
	return g.Wait()
}

func (q *Local) requeue(ctx context.Context, msg TaskMessage) {
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(q.requeueDelay):
			select {
			case q.ch <- msg:
			case <-ctx.Done():
			}
		}
	}()
}

// Len reports the number of buffered messages.
func (q *Local) Len() int {
	return len(q.ch)
}

func (q *Local) Close() error {
	return nil
}
