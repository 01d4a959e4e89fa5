// Package queue carries blog change events from the CRUD layer to the
// processing worker over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	apperrors "blog-graph/backend/pkg/errors"
	"blog-graph/backend/pkg/logger"
)

// Event kinds
const (
	EventCreated = "created"
	EventUpdated = "updated"
)

// Retry policy shared by every processing queue
const (
	MaxRetries   = 10
	RetryDelayMs = 10000
)

// BlogEvent announces that a blog was written and needs (re)processing
type BlogEvent struct {
	Slug  string `json:"slug"`
	Event string `json:"event"`
}

// Validate checks the event fields
func (e *BlogEvent) Validate() error {
	if strings.TrimSpace(e.Slug) == "" {
		return fmt.Errorf("event slug cannot be empty")
	}
	switch e.Event {
	case EventCreated, EventUpdated:
		return nil
	default:
		return fmt.Errorf("unknown event %q", e.Event)
	}
}

// DecodeEvent parses and validates a message body
func DecodeEvent(body []byte) (*BlogEvent, error) {
	var ev BlogEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode blog event: %w", err)
	}
	if ev.Event == "" {
		ev.Event = EventUpdated
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Dial connects to the broker
func Dial(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, apperrors.NewQueueUnavailable("broker", err)
	}
	return conn, nil
}

// SetupQueues declares each queue with its dead-letter queue and a retry
// queue whose expired messages are routed back to the main queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return apperrors.NewQueueUnavailable(name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return apperrors.NewQueueUnavailable(dlqName, err)
		}

		retryName := name + "_retry"
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(RetryDelayMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return apperrors.NewQueueUnavailable(retryName, err)
		}
	}
	return nil
}

// Publisher sends blog events to one queue
type Publisher struct {
	mu     sync.Mutex
	ch     *amqp091.Channel
	queue  string
	logger *zap.Logger
}

// NewPublisher creates a Publisher on an open channel
func NewPublisher(ch *amqp091.Channel, queueName string) *Publisher {
	return &Publisher{ch: ch, queue: queueName, logger: logger.Named("queue")}
}

// Enqueue publishes a persistent event
func (p *Publisher) Enqueue(ctx context.Context, ev BlogEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal blog event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return apperrors.NewQueueUnavailable(p.queue, err)
	}

	p.logger.Debug("Blog event enqueued",
		zap.String("queue", p.queue),
		zap.String("slug", ev.Slug),
		zap.String("event", ev.Event),
	)
	return nil
}

// retryCount reads the x-retries header; brokers may hand it back as any integer width
func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// nextHop decides where a failed delivery goes next
func nextHop(queueName string, headers amqp091.Table) (target string, retries int) {
	retries = retryCount(headers)
	if retries >= MaxRetries {
		return queueName + "_dlq", retries
	}
	return queueName + "_retry", retries + 1
}
