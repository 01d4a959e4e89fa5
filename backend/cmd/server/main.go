package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-graph/backend/internal/api"
	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/services"
	"blog-graph/backend/pkg/config"
	"blog-graph/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	sm := services.NewServiceManager(cfg, log.Named("services"))

	store, err := sm.StartGraphStore(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}

	var source blogsource.Source
	if pg, err := sm.StartBlogSource(ctx); err != nil {
		log.Warn("Blog source unavailable, process-blog will find no blogs", zap.Error(err))
		source = blogsource.NewStaticSource()
	} else {
		source = pg
	}

	var enqueuer api.Enqueuer
	if cfg.QueueEnabled() {
		pub, err := sm.Publisher()
		if err != nil {
			log.Warn("Processing queue unavailable, async processing disabled", zap.Error(err))
		} else {
			enqueuer = pub
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(sm, store, source, enqueuer, log)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sm.StopAll(context.Background()); err != nil {
		log.Error("Failed to stop services", zap.Error(err))
	}

	log.Info("Server exited")
}

func setupRouter(sm *services.ServiceManager, store graph.Store, source blogsource.Source, enqueuer api.Enqueuer, log *zap.Logger) *gin.Engine {
	return api.NewRouter(api.Deps{
		Store:     store,
		Processor: sm.Processor(store, source),
		Enqueuer:  enqueuer,
		Render:    sm.RenderSettings(),
		HTML:      sm.HTMLOptions(),
		Logger:    log.Named("http"),
	})
}
