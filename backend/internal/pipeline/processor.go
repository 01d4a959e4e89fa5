package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/pkg/logger"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of processing one blog
type Result struct {
	Slug          string `json:"slug"`
	Status        string `json:"status"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Skipped       int    `json:"skipped,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Processor loads blogs, builds their fragments and writes them to the store
type Processor struct {
	builder     *Builder
	store       graph.Store
	source      blogsource.Source
	concurrency int
	logger      *zap.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithBuilder replaces the default Builder
func WithBuilder(b *Builder) Option {
	return func(p *Processor) { p.builder = b }
}

// WithConcurrency bounds how many blogs ProcessAll handles at once
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor
func NewProcessor(store graph.Store, source blogsource.Source, opts ...Option) *Processor {
	p := &Processor{
		builder:     NewBuilder(nil, nil),
		store:       store,
		source:      source,
		concurrency: 4,
		logger:      logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessBlog loads one blog by slug and writes its fragment. An unknown
// slug returns blogsource.ErrBlogNotFound.
func (p *Processor) ProcessBlog(ctx context.Context, slug string) (*Result, error) {
	blog, err := p.source.GetBlog(ctx, slug)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, blog)
}

// Process writes the fragment of an already loaded blog
func (p *Processor) Process(ctx context.Context, blog *models.Blog) (*Result, error) {
	if err := blog.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	fragment := p.builder.Build(blog)
	written, err := p.store.WriteGraph(ctx, fragment.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to write graph for %s: %w", blog.Slug, err)
	}

	p.logger.Info("Blog processed",
		zap.String("slug", blog.Slug),
		zap.Int("entities", len(fragment.Entities)),
		zap.Int("nodes", written.NodesWritten),
		zap.Int("relationships", written.EdgesWritten),
		zap.Int("skipped", written.SkippedCount()),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		Slug:          blog.Slug,
		Status:        StatusSuccess,
		Nodes:         len(fragment.Graph.Nodes),
		Relationships: len(fragment.Graph.Relationships),
		Skipped:       written.SkippedCount(),
	}, nil
}

// ProcessAll reprocesses every blog with bounded concurrency. A failing blog
// is reported in its Result and never stops the batch; the returned error is
// only set when the blog list itself cannot be loaded.
func (p *Processor) ProcessAll(ctx context.Context) ([]Result, error) {
	blogs, err := p.source.ListBlogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}

	results := make([]Result, len(blogs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range blogs {
		i := i
		g.Go(func() error {
			res, err := p.Process(gctx, &blogs[i])
			if err != nil {
				p.logger.Error("Failed to process blog",
					zap.String("slug", blogs[i].Slug),
					zap.Error(err),
				)
				results[i] = Result{Slug: blogs[i].Slug, Status: StatusError, Error: err.Error()}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Status == StatusError {
			failed++
		}
	}
	p.logger.Info("Batch processing finished",
		zap.Int("blogs", len(blogs)),
		zap.Int("failed", failed),
	)
	return results, nil
}
