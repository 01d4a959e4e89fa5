package viewer

import (
	"context"
	"fmt"
	"math"

	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
)

// State of a viewer session
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRendering
	StateInteracting
	StateEmpty
	StateError
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRendering:
		return "rendering"
	case StateInteracting:
		return "interacting"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Query selects the graph to show; a blank Tag means the whole graph
type Query struct {
	Tag string
}

func (q Query) scope() string {
	if q.Tag == "" {
		return "all"
	}
	return "tag:" + q.Tag
}

// Fetcher loads graph data for a query
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*models.GraphData, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, q Query) (*models.GraphData, error)

func (f FetcherFunc) Fetch(ctx context.Context, q Query) (*models.GraphData, error) {
	return f(ctx, q)
}

// StoreFetcher reads straight from a graph store
type StoreFetcher struct {
	Store graph.Store
}

func (f StoreFetcher) Fetch(ctx context.Context, q Query) (*models.GraphData, error) {
	if q.Tag != "" {
		return f.Store.QueryByTag(ctx, q.Tag)
	}
	return f.Store.QueryAll(ctx)
}

// Navigator opens a blog article
type Navigator interface {
	Navigate(url string)
}

// Tooltip describes the hovered node at its screen position
type Tooltip struct {
	NodeID  string
	Label   string
	Type    models.NodeType
	Summary string
	X, Y    float64
}

// Overlay owns the elements drawn outside the graph canvas
type Overlay interface {
	ShowTooltip(t Tooltip)
	HideTooltip()
	// Remove detaches every overlay element; called once on Dispose
	Remove()
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

type noopOverlay struct{}

func (noopOverlay) ShowTooltip(Tooltip) {}
func (noopOverlay) HideTooltip()        {}
func (noopOverlay) Remove()             {}

// Zoom limits
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Transform maps world coordinates to the screen: screen = world*K + (X, Y)
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the unscaled, unshifted transform
func Identity() Transform {
	return Transform{K: 1}
}

// ToWorld converts a screen point to world coordinates
func (t Transform) ToWorld(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// ToScreen converts a world point to screen coordinates
func (t Transform) ToScreen(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// ZoomAt scales by factor around the screen point (sx, sy), which stays put
func (t Transform) ZoomAt(factor, sx, sy float64) Transform {
	k := math.Max(MinZoom, math.Min(MaxZoom, t.K*factor))
	wx, wy := t.ToWorld(sx, sy)
	return Transform{K: k, X: sx - wx*k, Y: sy - wy*k}
}

// Translate shifts by a screen-space delta
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{K: t.K, X: t.X + dx, Y: t.Y + dy}
}

func fetchError(q Query, err error) error {
	if apperrors.IsErrorType(err, apperrors.ErrorTypeFetch) {
		return err
	}
	return apperrors.NewFetchFailure(q.scope(), err)
}
