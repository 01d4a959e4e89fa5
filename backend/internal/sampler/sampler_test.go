package sampler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/pkg/config"
)

func blog(slug, category string) models.Node {
	return models.Node{ID: models.BlogNodeID(slug), Type: models.NodeTypeBlog, Properties: models.NodeProperties{Category: category}}
}

func entity(text, category string) models.Node {
	return models.Node{ID: models.EntityNodeID(text), Type: models.NodeTypeEntity, Properties: models.NodeProperties{Category: category}}
}

func contains(slug, text string, weight float64) models.Edge {
	return models.Edge{
		Source:     models.BlogNodeID(slug),
		Target:     models.EntityNodeID(text),
		Type:       models.RelContains,
		Properties: &models.EdgeProperties{Weight: weight},
	}
}

func ids(nodes []models.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestSample_ReactNeedsTwoBlogs(t *testing.T) {
	nodes := []models.Node{blog("hooks", "react"), entity("React", "react")}
	edges := []models.Edge{contains("hooks", "React", 1)}

	res := Sample(nodes, edges, DefaultOptions())
	assert.NotContains(t, ids(res.Nodes), "entity-react", "one mention is not enough")
	assert.Contains(t, ids(res.Nodes), "blog-hooks")
	assert.Empty(t, res.Edges)

	nodes = append(nodes, blog("redux", "react"))
	edges = append(edges, contains("redux", "React", 0.5))

	res = Sample(nodes, edges, DefaultOptions())
	assert.Contains(t, ids(res.Nodes), "entity-react")
	assert.Len(t, res.Edges, 2)
}

func TestSample_ImportanceOrderingAndCaps(t *testing.T) {
	var nodes []models.Node
	var edges []models.Edge
	for b := 0; b < 5; b++ {
		nodes = append(nodes, blog(fmt.Sprintf("b%d", b), "go"))
	}
	for e := 0; e < 20; e++ {
		text := fmt.Sprintf("term%02d", e)
		nodes = append(nodes, entity(text, "go"))
		// term00 is shared by 5 blogs, term01 by 4 and so on
		for b := 0; b < 5-min(e, 3); b++ {
			edges = append(edges, contains(fmt.Sprintf("b%d", b), text, float64(e)))
		}
	}

	opts := DefaultOptions()
	opts.MaxTotal = 8
	opts.MaxEdges = 10
	res := Sample(nodes, edges, opts)

	require.Len(t, res.Nodes, 8)
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.NodeTypeBlog, res.Nodes[i].Type, "blogs come first")
	}
	assert.Equal(t, []string{"entity-term00", "entity-term01", "entity-term02"}, ids(res.Nodes[5:]))
	assert.LessOrEqual(t, len(res.Edges), 10)
	assertClosed(t, res)
}

func TestSample_BalancedQuotasAndDeterminism(t *testing.T) {
	var nodes []models.Node
	for c, size := range map[string]int{"css": 30, "go": 12, "rust": 3} {
		for i := 0; i < size; i++ {
			nodes = append(nodes, entity(fmt.Sprintf("%s-%d", c, i), c))
		}
	}
	nodes = append(nodes, models.Node{ID: "entity-orphan"})
	var edges []models.Edge
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, models.Edge{Source: nodes[i-1].ID, Target: nodes[i].ID, Type: models.RelRelatedTo})
	}

	opts := DefaultOptions()
	opts.Strategy = StrategyCategoryBalanced
	opts.Seed = 42

	res := Sample(nodes, edges, opts)
	perCategory := map[string]int{}
	for _, n := range res.Nodes {
		perCategory[n.Properties.Category]++
	}
	assert.GreaterOrEqual(t, len(res.Nodes), opts.MinTotal)
	assert.LessOrEqual(t, len(res.Nodes), opts.MaxTotal)
	assert.Equal(t, 3, perCategory["rust"], "small categories are kept whole")
	assert.Equal(t, 1, perCategory[""], "uncategorised nodes form their own group")
	assertClosed(t, res)

	again := Sample(nodes, edges, opts)
	assert.Equal(t, ids(res.Nodes), ids(again.Nodes), "same seed, same sample")
}

func TestSample_BudgetAlwaysHolds(t *testing.T) {
	var nodes []models.Node
	var edges []models.Edge
	for i := 0; i < 300; i++ {
		nodes = append(nodes, blog(fmt.Sprintf("b%d", i), fmt.Sprintf("c%d", i%7)))
	}
	for i := 0; i < 300; i++ {
		for j := 1; j <= 3; j++ {
			edges = append(edges, models.Edge{
				Source: models.BlogNodeID(fmt.Sprintf("b%d", i)),
				Target: models.BlogNodeID(fmt.Sprintf("b%d", (i+j)%300)),
				Type:   models.RelRelatedTo,
			})
		}
	}
	edges = append(edges, models.Edge{Source: "blog-b0", Target: "nowhere", Type: models.RelRelatedTo})

	for _, strategy := range []Strategy{StrategyImportance, StrategyCategoryBalanced} {
		t.Run(string(strategy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = strategy
			res := Sample(nodes, edges, opts)
			assert.LessOrEqual(t, len(res.Nodes), opts.MaxTotal)
			assert.LessOrEqual(t, len(res.Edges), opts.MaxEdges)
			assertClosed(t, res)
		})
	}
}

func TestSample_ZeroEdgeBudget(t *testing.T) {
	nodes := []models.Node{blog("hooks", "react"), blog("redux", "react"), entity("React", "react")}
	edges := []models.Edge{contains("hooks", "React", 1), contains("redux", "React", 0.5)}

	for _, strategy := range []Strategy{StrategyImportance, StrategyCategoryBalanced} {
		t.Run(string(strategy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = strategy
			opts.MaxEdges = 0
			res := Sample(nodes, edges, opts)
			assert.Len(t, res.Nodes, 3)
			assert.Empty(t, res.Edges)
			assert.Equal(t, 2, res.DroppedEdges)
		})
	}

	opts := DefaultOptions()
	opts.MaxEdges = -1
	res := Sample(nodes, edges, opts)
	assert.Len(t, res.Edges, 2, "a negative budget falls back to the default")
}

func TestSample_Empty(t *testing.T) {
	res := Sample(nil, nil, DefaultOptions())
	assert.True(t, res.Empty())
}

func TestResolveEdges(t *testing.T) {
	nodes := []models.Node{{ID: "a"}, {ID: "b"}}
	kept, dropped := ResolveEdges(nodes, []models.Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "ghost"},
		{Source: "a", Target: "a"},
	})
	assert.Len(t, kept, 1)
	assert.Equal(t, 2, dropped)
}

func assertClosed(t *testing.T, res Result) {
	t.Helper()
	present := map[string]bool{}
	for _, n := range res.Nodes {
		present[n.ID] = true
	}
	for _, e := range res.Edges {
		assert.True(t, present[e.Source] && present[e.Target], "edge %s references a dropped node", e.Key())
	}
}

func TestFromTuning(t *testing.T) {
	assert.Equal(t, DefaultOptions(), FromTuning(config.DefaultTuning().Sampler))

	tuning := config.DefaultTuning().Sampler
	tuning.Strategy = "Balanced"
	tuning.MaxPerCategory = 5
	opts := FromTuning(tuning)
	assert.Equal(t, StrategyCategoryBalanced, opts.Strategy)
	assert.Equal(t, 5, opts.MaxPerCategory)
}
