package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	apperrors "blog-graph/backend/pkg/errors"
	"blog-graph/backend/pkg/logger"
)

// Handler processes one event. A returned error sends the message through
// the retry queue, and after MaxRetries to the dead-letter queue.
type Handler func(ctx context.Context, ev *BlogEvent) error

// Consumer drains one queue, one message at a time
type Consumer struct {
	ch      *amqp091.Channel
	queue   string
	handler Handler
	logger  *zap.Logger
}

// NewConsumer creates a Consumer; it sets prefetch to 1 on ch
func NewConsumer(ch *amqp091.Channel, queueName string, handler Handler) (*Consumer, error) {
	if err := ch.Qos(1, 0, true); err != nil {
		return nil, apperrors.NewQueueUnavailable(queueName, err)
	}
	return &Consumer{
		ch:      ch,
		queue:   queueName,
		handler: handler,
		logger:  logger.Named("consumer"),
	}, nil
}

// Run consumes until ctx is done or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queue,
		fmt.Sprintf("%s_consumer", c.queue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return apperrors.NewQueueUnavailable(c.queue, err)
	}

	c.logger.Info("Listening for messages", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping consumer", zap.String("queue", c.queue))
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("Message channel closed", zap.String("queue", c.queue))
				return apperrors.NewQueueUnavailable(c.queue, fmt.Errorf("delivery channel closed"))
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()

	ev, err := DecodeEvent(msg.Body)
	if err != nil {
		// A malformed message will never succeed; park it directly.
		c.logger.Error("Dropping malformed message to DLQ", zap.Error(err))
		c.forward(msg, c.queue+"_dlq", msg.Headers)
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		c.logger.Error("Error processing message",
			zap.String("queue", c.queue),
			zap.String("slug", ev.Slug),
			zap.Error(err),
		)
		c.handleProcessingError(msg)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message", zap.Error(err))
	}
	c.logger.Info("Message processed successfully",
		zap.String("queue", c.queue),
		zap.String("slug", ev.Slug),
		zap.Duration("duration", time.Since(start)),
	)
}

func (c *Consumer) handleProcessingError(msg amqp091.Delivery) {
	target, retries := nextHop(c.queue, msg.Headers)

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if target != c.queue+"_dlq" {
		headers["x-retries"] = int32(retries)
	}
	c.forward(msg, target, headers)
}

// forward republishes the body to target and acks the original; on publish
// failure the original is requeued instead.
func (c *Consumer) forward(msg amqp091.Delivery, target string, headers amqp091.Table) {
	err := c.ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		c.logger.Error("Failed to forward message", zap.String("target", target), zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	c.logger.Info("Message forwarded", zap.String("target", target))
	_ = msg.Ack(false)
}
