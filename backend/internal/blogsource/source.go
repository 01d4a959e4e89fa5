// Package blogsource reads blog records owned by the CRUD layer.
package blogsource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
	"blog-graph/backend/pkg/logger"
)

// Source yields blogs by slug or in full
type Source interface {
	GetBlog(ctx context.Context, slug string) (*models.Blog, error)
	ListBlogs(ctx context.Context) ([]models.Blog, error)
}

// PostgresSource reads the "Blog" table
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSource opens a pool against databaseURL and pings it
func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeSource, "failed to create blog source pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeSource, "blog database unreachable", err)
	}
	return NewPostgresSourceFromPool(pool), nil
}

// NewPostgresSourceFromPool wraps an existing pool
func NewPostgresSourceFromPool(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool, logger: logger.Named("blogsource")}
}

// Close releases the pool
func (s *PostgresSource) Close() {
	s.pool.Close()
}

const blogColumns = `slug, title, COALESCE(content, ''), COALESCE(tag, ''), COALESCE(description, '')`

// GetBlog loads one blog or returns ErrBlogNotFound
func (s *PostgresSource) GetBlog(ctx context.Context, slug string) (*models.Blog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+blogColumns+` FROM "Blog" WHERE slug = $1`, slug)

	var b models.Blog
	if err := row.Scan(&b.Slug, &b.Title, &b.Content, &b.Tag, &b.Summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlogNotFound{Slug: slug}
		}
		return nil, fmt.Errorf("failed to load blog %s: %w", slug, err)
	}
	return &b, nil
}

// ListBlogs loads every blog ordered by slug
func (s *PostgresSource) ListBlogs(ctx context.Context) ([]models.Blog, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+blogColumns+` FROM "Blog" ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}

	blogs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Blog, error) {
		var b models.Blog
		err := row.Scan(&b.Slug, &b.Title, &b.Content, &b.Tag, &b.Summary)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan blogs: %w", err)
	}

	s.logger.Debug("Blogs listed", zap.Int("count", len(blogs)))
	return blogs, nil
}

// StaticSource serves a fixed set of blogs from memory
type StaticSource struct {
	mu    sync.RWMutex
	blogs map[string]models.Blog
}

// NewStaticSource builds a source from blogs; later duplicates win
func NewStaticSource(blogs ...models.Blog) *StaticSource {
	s := &StaticSource{blogs: make(map[string]models.Blog, len(blogs))}
	for _, b := range blogs {
		s.blogs[b.Slug] = b
	}
	return s
}

// Put adds or replaces a blog
func (s *StaticSource) Put(b models.Blog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blogs[b.Slug] = b
}

func (s *StaticSource) GetBlog(ctx context.Context, slug string) (*models.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blogs[slug]
	if !ok {
		return nil, ErrBlogNotFound{Slug: slug}
	}
	return &b, nil
}

func (s *StaticSource) ListBlogs(ctx context.Context) ([]models.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Blog, 0, len(s.blogs))
	for _, b := range s.blogs {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Errors

type ErrBlogNotFound struct {
	Slug string
}

func (e ErrBlogNotFound) Error() string {
	return fmt.Sprintf("blog not found: %s", e.Slug)
}

var (
	_ Source = (*PostgresSource)(nil)
	_ Source = (*StaticSource)(nil)
)
