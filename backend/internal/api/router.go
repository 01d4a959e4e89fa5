// Package api exposes the graph over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/pipeline"
	"blog-graph/backend/internal/queue"
	"blog-graph/backend/internal/render"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// Enqueuer hands blog events to the processing worker
type Enqueuer interface {
	Enqueue(ctx context.Context, ev queue.BlogEvent) error
}

// Deps are the collaborators the handlers need
type Deps struct {
	Store     graph.Store
	Processor *pipeline.Processor
	// Enqueuer is optional; without it ?async=true is rejected
	Enqueuer Enqueuer
	Render   render.Settings
	HTML     render.HTMLOptions
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Render.Layout.Width == 0 {
		d.Render = render.DefaultSettings()
	}
	h := &Handler{deps: d, logger: d.Logger}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(d.Logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/graph-data", h.GraphData)
		api.POST("/import-data", h.ImportData)
		api.POST("/process-blog", h.ProcessBlog)
		api.GET("/process-blog", h.ProcessAll)
		api.GET("/graph.svg", h.GraphSVG)
		api.GET("/graph.html", h.GraphHTML)
	}

	return router
}

// requestID tags every request with an id, reusing the caller's if present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
