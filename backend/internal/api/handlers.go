package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/queue"
	"blog-graph/backend/internal/render"
	apperrors "blog-graph/backend/pkg/errors"
)

// Handler serves the graph endpoints
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

// GraphData serves GET /api/graph-data.
//
//	?type=tags  -> {"tags": [...]}
//	?tag=<tag>  -> nodes and relationships of one category
//	otherwise   -> the whole graph (?all=true is accepted for compatibility)
func (h *Handler) GraphData(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("type") == "tags" {
		tags, err := h.deps.Store.Tags(ctx)
		if err != nil {
			h.fail(c, "Failed to fetch tags", err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"tags": tags})
		return
	}

	data, err := h.fetch(ctx, c.Query("tag"))
	if err != nil {
		h.fail(c, "Failed to fetch graph data", err)
		return
	}
	c.JSON(http.StatusOK, data.Normalize())
}

func (h *Handler) fetch(ctx context.Context, tag string) (*models.GraphData, error) {
	tag = strings.TrimSpace(tag)
	if tag != "" {
		return h.deps.Store.QueryByTag(ctx, tag)
	}
	return h.deps.Store.QueryAll(ctx)
}

// ImportData serves POST /api/import-data
func (h *Handler) ImportData(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.deps.Store.Import(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to import data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Data imported successfully",
		"nodes_written": res.NodesWritten,
		"edges_written": res.EdgesWritten,
		"skipped":       res.SkippedCount(),
	})
}

// ProcessBlog serves POST /api/process-blog. With ?async=true the blog is
// queued for the worker and 202 is returned immediately.
func (h *Handler) ProcessBlog(c *gin.Context) {
	var req struct {
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := (&models.Blog{Slug: req.Slug}).Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if c.Query("async") == "true" {
		if h.deps.Enqueuer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Processing queue is not configured"})
			return
		}
		ev := queue.BlogEvent{Slug: req.Slug, Event: queue.EventUpdated}
		if err := h.deps.Enqueuer.Enqueue(ctx, ev); err != nil {
			h.fail(c, "Failed to enqueue blog", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "slug": req.Slug})
		return
	}

	res, err := h.deps.Processor.ProcessBlog(ctx, req.Slug)
	if err != nil {
		var notFound blogsource.ErrBlogNotFound
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		var invalid models.ErrInvalidBlog
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
			return
		}
		h.fail(c, "Failed to process blog", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Blog processed successfully",
		"result":  res,
	})
}

// ProcessAll serves GET /api/process-blog
func (h *Handler) ProcessAll(c *gin.Context) {
	results, err := h.deps.Processor.ProcessAll(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to process blogs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Batch processing completed",
		"results": results,
	})
}

// GraphSVG serves GET /api/graph.svg?tag=
func (h *Handler) GraphSVG(c *gin.Context) {
	sim, title, ok := h.prepare(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	opts := render.DefaultSVGOptions()
	opts.Title = title
	if err := render.SVG(&buf, sim, opts); err != nil {
		h.fail(c, "Failed to render graph", err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// GraphHTML serves GET /api/graph.html?tag=
func (h *Handler) GraphHTML(c *gin.Context) {
	sim, title, ok := h.prepare(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	opts := h.deps.HTML
	opts.Title = title
	if err := render.HTML(&buf, sim, opts); err != nil {
		h.fail(c, "Failed to render graph", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) prepare(c *gin.Context) (*layout.Simulation, string, bool) {
	tag := strings.TrimSpace(c.Query("tag"))
	scope, title := "all", "Knowledge graph"
	if tag != "" {
		scope, title = "tag:"+tag, "Knowledge graph · "+tag
	}

	data, err := h.fetch(c.Request.Context(), tag)
	if err != nil {
		h.fail(c, "Failed to fetch graph data", err)
		return nil, "", false
	}
	sim, _, err := render.Prepare(data, scope, h.deps.Render)
	if err != nil {
		h.fail(c, "Nothing to render", err)
		return nil, "", false
	}
	return sim, title, true
}

// fail logs err and answers with a status derived from its category
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsErrorType(err, apperrors.ErrorTypeEmpty):
		status = http.StatusNotFound
	case apperrors.IsErrorType(err, apperrors.ErrorTypeStore),
		apperrors.IsErrorType(err, apperrors.ErrorTypeQueue):
		status = http.StatusServiceUnavailable
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		status = http.StatusRequestTimeout
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}
