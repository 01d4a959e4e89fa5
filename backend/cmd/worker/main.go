package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/pipeline"
	"blog-graph/backend/internal/queue"
	"blog-graph/backend/internal/services"
	"blog-graph/backend/pkg/config"
	"blog-graph/backend/pkg/logger"
)

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting processing worker...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.QueueEnabled() {
		log.Fatal("RABBITMQ_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sm := services.NewServiceManager(cfg, log.Named("services"))
	defer func() {
		if err := sm.StopAll(context.Background()); err != nil {
			log.Error("Failed to stop services", zap.Error(err))
		}
	}()

	store, err := sm.StartGraphStore(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	source, err := sm.StartBlogSource(ctx)
	if err != nil {
		log.Fatal("Failed to connect to blog database", zap.Error(err))
	}

	consumer, err := sm.Consumer(newHandler(sm.Processor(store, source), store, cfg.PruneMissingBlogs, log))
	if err != nil {
		log.Fatal("Failed to start consumer", zap.Error(err))
	}

	if err := consumer.Run(ctx); err != nil {
		log.Error("Consumer stopped", zap.Error(err))
	}
	log.Info("Worker exited")
}

// newHandler processes each event's blog. A blog that no longer exists in
// the source is acked; with prune set it is also removed from the graph.
func newHandler(p *pipeline.Processor, store graph.Store, prune bool, log *zap.Logger) queue.Handler {
	return func(ctx context.Context, ev *queue.BlogEvent) error {
		res, err := p.ProcessBlog(ctx, ev.Slug)
		if err == nil {
			log.Debug("Blog event handled",
				zap.String("slug", ev.Slug),
				zap.String("event", ev.Event),
				zap.Int("nodes", res.Nodes),
				zap.Int("relationships", res.Relationships),
			)
			return nil
		}

		var notFound blogsource.ErrBlogNotFound
		if !errors.As(err, &notFound) {
			return err
		}
		if !prune {
			log.Warn("Blog not found in source, leaving graph unchanged", zap.String("slug", ev.Slug))
			return nil
		}

		removed, rmErr := store.RemoveBlog(ctx, ev.Slug)
		var missing graph.ErrNodeNotFound
		switch {
		case errors.As(rmErr, &missing):
			log.Warn("Blog not found in source or graph", zap.String("slug", ev.Slug))
			return nil
		case rmErr != nil:
			return rmErr
		}
		log.Info("Blog gone from source, removed from graph",
			zap.String("slug", ev.Slug),
			zap.Int("entities_removed", removed.EntitiesRemoved),
		)
		return nil
	}
}
