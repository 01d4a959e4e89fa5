package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/pipeline"
	"blog-graph/backend/internal/queue"
	"blog-graph/backend/internal/render"
	"blog-graph/backend/internal/snapshot"
	"blog-graph/backend/pkg/config"
	apperrors "blog-graph/backend/pkg/errors"
)

// stopTimeout bounds StopAll
const stopTimeout = 5 * time.Second

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// ServiceManager opens the external services a process needs (Neo4j,
// Postgres, RabbitMQ, S3) from one Config and closes them in reverse order.
type ServiceManager struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.Mutex
	closers []closer
	amqp    *amqp091.Connection
}

// NewServiceManager creates a new service manager
func NewServiceManager(cfg *config.Config, logger *zap.Logger) *ServiceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceManager{cfg: cfg, logger: logger}
}

func (sm *ServiceManager) track(name string, fn func(ctx context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, closer{name: name, fn: fn})
}

// StartGraphStore connects to Neo4j and ensures the uniqueness constraints
func (sm *ServiceManager) StartGraphStore(ctx context.Context) (*graph.Repository, error) {
	repo, err := graph.Open(ctx, graph.Options{
		URI:      sm.cfg.Neo4jURI,
		User:     sm.cfg.Neo4jUser,
		Password: sm.cfg.Neo4jPassword,
		Database: sm.cfg.Neo4jDatabase,
	})
	if err != nil {
		return nil, err
	}
	sm.track("neo4j", repo.Close)

	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	sm.logger.Info("Graph store ready", zap.String("uri", sm.cfg.Neo4jURI))
	return repo, nil
}

// StartBlogSource connects to the Postgres blog table
func (sm *ServiceManager) StartBlogSource(ctx context.Context) (*blogsource.PostgresSource, error) {
	if sm.cfg.DatabaseURL == "" {
		return nil, apperrors.NewConfigMissingRequired("DATABASE_URL")
	}
	src, err := blogsource.NewPostgresSource(ctx, sm.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	sm.track("postgres", func(context.Context) error {
		src.Close()
		return nil
	})
	sm.logger.Info("Blog source ready")
	return src, nil
}

// StartQueue dials the broker once and declares the processing queue with
// its retry and dead-letter companions. Later calls reuse the connection.
func (sm *ServiceManager) StartQueue() error {
	if !sm.cfg.QueueEnabled() {
		return apperrors.NewConfigMissingRequired("RABBITMQ_URL")
	}
	sm.mu.Lock()
	if sm.amqp != nil {
		sm.mu.Unlock()
		return nil
	}
	sm.mu.Unlock()

	conn, err := queue.Dial(sm.cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return apperrors.NewQueueUnavailable(sm.cfg.ProcessQueue, err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, []string{sm.cfg.ProcessQueue}); err != nil {
		_ = conn.Close()
		return err
	}

	sm.mu.Lock()
	sm.amqp = conn
	sm.mu.Unlock()
	sm.track("rabbitmq", func(context.Context) error { return conn.Close() })
	sm.logger.Info("Processing queue ready", zap.String("queue", sm.cfg.ProcessQueue))
	return nil
}

// Channel opens a fresh channel on the broker connection
func (sm *ServiceManager) Channel() (*amqp091.Channel, error) {
	if err := sm.StartQueue(); err != nil {
		return nil, err
	}
	sm.mu.Lock()
	conn := sm.amqp
	sm.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, apperrors.NewQueueUnavailable(sm.cfg.ProcessQueue, err)
	}
	return ch, nil
}

// Publisher returns a publisher for the processing queue
func (sm *ServiceManager) Publisher() (*queue.Publisher, error) {
	ch, err := sm.Channel()
	if err != nil {
		return nil, err
	}
	return queue.NewPublisher(ch, sm.cfg.ProcessQueue), nil
}

// Consumer returns a consumer of the processing queue that feeds handler
func (sm *ServiceManager) Consumer(handler queue.Handler) (*queue.Consumer, error) {
	ch, err := sm.Channel()
	if err != nil {
		return nil, err
	}
	return queue.NewConsumer(ch, sm.cfg.ProcessQueue, handler)
}

// StartSnapshots builds the S3 publisher for graph snapshots
func (sm *ServiceManager) StartSnapshots(ctx context.Context) (*snapshot.Publisher, error) {
	if !sm.cfg.SnapshotsEnabled() {
		return nil, apperrors.NewConfigMissingRequired("AWS_BUCKET")
	}
	client, err := snapshot.NewS3Client(ctx, sm.cfg)
	if err != nil {
		return nil, err
	}
	return snapshot.NewPublisher(client, sm.cfg.AWSBucket, ""), nil
}

// Processor wires the tuned builder to store and source
func (sm *ServiceManager) Processor(store graph.Store, source blogsource.Source) *pipeline.Processor {
	return pipeline.NewProcessor(store, source,
		pipeline.WithBuilder(pipeline.BuilderFromTuning(sm.cfg.Tuning)),
		pipeline.WithConcurrency(sm.cfg.BatchConcurrency),
	)
}

// RenderSettings derives sampling and layout settings from the tuning file
func (sm *ServiceManager) RenderSettings() render.Settings {
	return render.SettingsFromTuning(sm.cfg.Tuning)
}

// HTMLOptions derives the interactive page settings from the tuning file
func (sm *ServiceManager) HTMLOptions() render.HTMLOptions {
	opts := render.DefaultHTMLOptions()
	if ms := sm.cfg.Tuning.Viewer.SearchDebounceMs; ms > 0 {
		opts.SearchDebounceMs = ms
	}
	return opts
}

// StopAll closes every started service, newest first. It gives up after
// stopTimeout and reports the first close error.
func (sm *ServiceManager) StopAll(ctx context.Context) error {
	sm.mu.Lock()
	closers := sm.closers
	sm.closers = nil
	sm.amqp = nil
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			c := closers[i]
			if err := c.fn(ctx); err != nil {
				sm.logger.Warn("Failed to stop service", zap.String("service", c.name), zap.Error(err))
				if first == nil {
					first = fmt.Errorf("failed to stop %s: %w", c.name, err)
				}
				continue
			}
			sm.logger.Debug("Service stopped", zap.String("service", c.name))
		}
		done <- first
	}()

	select {
	case err := <-done:
		sm.logger.Info("All services stopped")
		return err
	case <-ctx.Done():
		sm.logger.Warn("Services did not stop gracefully")
		return apperrors.NewContextCancelled("stop services", ctx.Err())
	}
}
