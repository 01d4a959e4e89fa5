package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
)

func TestMemoryStore_MergeSemantics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.WriteGraph(ctx, sampleGraph(""))
	require.NoError(t, err)
	assert.Equal(t, 3, first.NodesWritten)
	assert.Equal(t, 3, first.EdgesWritten)
	require.Equal(t, 1, first.SkippedCount())
	assert.Equal(t, "edge", first.Skipped[0].Kind)

	_, err = store.WriteGraph(ctx, sampleGraph(""))
	require.NoError(t, err)
	nodes, edges := store.Counts()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 3, edges)

	// title is fixed on create, summary and category follow the latest write
	require.NoError(t, store.UpsertNode(ctx, models.Node{
		ID:         "blog-flexbox",
		Label:      "Renamed",
		Type:       models.NodeTypeBlog,
		Properties: models.NodeProperties{Title: "Renamed", URL: "/blog/flexbox", Summary: "new", Category: "Layout"},
	}))
	data, err := store.QueryAll(ctx)
	require.NoError(t, err)
	for _, n := range data.Nodes {
		if n.ID == "blog-flexbox" {
			assert.Equal(t, "Flexbox 布局指南", n.Properties.Title)
			assert.Equal(t, "new", n.Properties.Summary)
			assert.Equal(t, "Layout", n.Properties.Category)
		}
	}
}

func TestMemoryStore_UpsertEdgeRequiresEndpoints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.UpsertNode(ctx, models.Node{ID: "a"}))

	err := store.UpsertEdge(ctx, models.Edge{Source: "a", Target: "b", Type: models.RelRelatedTo})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeWrite))

	assert.Error(t, store.UpsertEdge(ctx, models.Edge{Source: "a", Target: "a", Type: models.RelRelatedTo}))
	assert.Error(t, store.UpsertNode(ctx, models.Node{ID: " "}))
}

func TestMemoryStore_QueryByTagAndTags(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.WriteGraph(ctx, sampleGraph(""))
	require.NoError(t, err)
	_, err = store.WriteGraph(ctx, &models.GraphData{
		Nodes: []models.Node{
			{ID: "blog-goroutines", Type: models.NodeTypeBlog, Properties: models.NodeProperties{Category: "Go"}},
			{ID: "entity-goroutine", Properties: models.NodeProperties{Category: "Go"}},
		},
		Relationships: []models.Edge{
			{Source: "blog-goroutines", Target: "entity-goroutine", Type: models.RelContains},
			{Source: "blog-goroutines", Target: "entity-flexbox", Type: models.RelContains},
		},
	})
	require.NoError(t, err)

	tags, err := store.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSS", "Go"}, tags)

	goGraph, err := store.QueryByTag(ctx, "Go")
	require.NoError(t, err)
	assert.Len(t, goGraph.Nodes, 2)
	require.Len(t, goGraph.Relationships, 1, "cross-tag edge excluded")
	assert.Equal(t, "entity-goroutine", goGraph.Relationships[0].Target)

	none, err := store.QueryByTag(ctx, "Rust")
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
	assert.NotNil(t, none.Relationships)
}

func TestMemoryStore_Import(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.WriteGraph(ctx, sampleGraph(""))
	require.NoError(t, err)

	req := &models.ImportRequest{
		Type:    "css",
		Replace: true,
		Nodes: []models.ImportNode{
			{ID: "css-grid", Label: "Grid", Type: "concept", Properties: models.NodeProperties{Category: "layout"}},
			{ID: "css-flex", Label: "Flex", Type: "css_concept", Properties: models.NodeProperties{Category: "layout"}},
			{ID: "css-color", Label: "Color", Properties: models.NodeProperties{Category: "paint"}},
		},
	}
	res, err := store.Import(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NodesWritten)
	assert.Equal(t, 1, res.EdgesWritten, "same-category pair linked when no relationships given")

	nodes, _ := store.Counts()
	assert.Equal(t, 3, nodes, "replace clears previous data")

	typ, ok := store.NodeType("css-grid")
	require.True(t, ok)
	assert.Equal(t, "css_concept", typ)

	data, err := store.QueryAll(ctx)
	require.NoError(t, err)
	for _, n := range data.Nodes {
		assert.Equal(t, models.NodeTypeEntity, n.Type)
	}

	_, err = store.Import(ctx, &models.ImportRequest{Type: "Not Valid"})
	assert.Error(t, err)
}

func TestMemoryStore_ImportUntypedRelationship(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, err := store.Import(ctx, &models.ImportRequest{
		Type: "css",
		Nodes: []models.ImportNode{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
		},
		Relationships: []models.Edge{{Source: "a", Target: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EdgesWritten)
	assert.Empty(t, res.Skipped)

	data, err := store.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, data.Relationships, 1)
	assert.Equal(t, models.RelRelatedTo, data.Relationships[0].Type)
}

func TestMemoryStore_RemoveBlogKeepsSharedEntities(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.WriteGraph(ctx, sampleGraph(""))
	require.NoError(t, err)
	_, err = store.WriteGraph(ctx, &models.GraphData{
		Nodes: []models.Node{{ID: "blog-grid", Type: models.NodeTypeBlog, Properties: models.NodeProperties{Category: "CSS"}}},
		Relationships: []models.Edge{
			{Source: "blog-grid", Target: "entity-flexbox", Type: models.RelContains},
		},
	})
	require.NoError(t, err)

	res, err := store.RemoveBlog(ctx, "flexbox")
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntitiesRemoved, "flex-direction is orphaned, flexbox is still contained")
	assert.Equal(t, 1, res.EdgesRemoved)

	data, err := store.QueryAll(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, n := range data.Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"blog-grid", "entity-flexbox"}, ids)
	assert.Len(t, data.Relationships, 1)

	_, err = store.RemoveBlog(ctx, "flexbox")
	assert.ErrorAs(t, err, &ErrNodeNotFound{})

	require.NoError(t, store.Clear(ctx))
	nodes, edges := store.Counts()
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestSanitizeRelType(t *testing.T) {
	got, err := sanitizeRelType("depends on")
	require.NoError(t, err)
	assert.Equal(t, "DEPENDS_ON", got)

	got, err = sanitizeRelType("  ")
	require.NoError(t, err)
	assert.Equal(t, models.RelRelatedTo, got)

	got, err = sanitizeRelType("RELATED_TO")
	require.NoError(t, err)
	assert.Equal(t, "RELATED_TO", got)

	_, err = sanitizeRelType("}) DETACH DELETE (n")
	assert.NoError(t, err, "injection attempts are neutralised, not passed through")
	_, err = sanitizeRelType("--")
	assert.Error(t, err)
}
