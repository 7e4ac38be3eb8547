package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client publishes and consumes task messages on a durable direct exchange.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	concurrency  int
	log          *zap.Logger
}

var _ Queue = (*Client)(nil)

func NewClient(url, exchangeName, queueName string, concurrency int, log *zap.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		concurrency:  concurrency,
		log:          log.Named("amqp"),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// At most one unacked delivery per consumer goroutine.
	if err := c.channel.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func (c *Client) PublishTask(ctx context.Context, msg TaskMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.TaskID,
			Type:         msg.TaskType,
			Timestamp:    msg.EnqueuedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.log.Debug("published task message",
		zap.String("task_id", msg.TaskID),
		zap.String("task_type", msg.TaskType),
		zap.String("exchange", c.exchangeName),
		zap.String("queue", c.queueName))
	return nil
}

// ConsumeTasks blocks until ctx is done or the channel closes, running
// handler on up to concurrency deliveries at once.
func (c *Client) ConsumeTasks(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (manual ack below)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log.Info("started consuming task messages", zap.String("queue", c.queueName), zap.Int("concurrency", c.concurrency))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case delivery, ok := <-msgs:
					if !ok {
						return fmt.Errorf("message channel closed")
					}
					c.deliver(ctx, delivery, handler)
				}
			}
		})
	}
	return g.Wait()
}

func (c *Client) deliver(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	msg, err := TaskMessageFromJSON(delivery.Body)
	if err != nil {
		c.log.Error("rejecting malformed message", zap.Error(err))
		_ = delivery.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.log.Error("failed to handle message", zap.Error(err), zap.String("task_id", msg.TaskID))
		_ = delivery.Nack(false, true) // reject and requeue
		return
	}

	_ = delivery.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
