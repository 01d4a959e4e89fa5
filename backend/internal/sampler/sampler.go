// Package sampler reduces a graph to a renderable budget while keeping the
// nodes that carry the most cross-article signal.
package sampler

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/pkg/config"
)

// Strategy selects the sampling policy
type Strategy string

const (
	// StrategyImportance keeps blogs and entities shared by several blogs
	StrategyImportance Strategy = "importance"
	// StrategyCategoryBalanced draws a quota from every category
	StrategyCategoryBalanced Strategy = "balanced"
)

// uncategorized groups nodes without a category
const uncategorized = "Other"

// Options is the render budget
type Options struct {
	MinTotal       int
	MaxTotal       int
	MaxPerCategory int
	MaxEdges       int // 0 keeps no edges
	MinBlogLinks   int
	Strategy       Strategy
	Seed           int64
}

// DefaultOptions returns the usual budget
func DefaultOptions() Options {
	return Options{
		MinTotal:       40,
		MaxTotal:       100,
		MaxPerCategory: 15,
		MaxEdges:       100,
		MinBlogLinks:   2,
		Strategy:       StrategyImportance,
		Seed:           1,
	}
}

// FromTuning builds Options from the sampler section of the tuning file
func FromTuning(t config.SamplerTuning) Options {
	return Options{
		MinTotal:       t.MinTotal,
		MaxTotal:       t.MaxTotal,
		MaxPerCategory: t.MaxPerCategory,
		MaxEdges:       t.MaxEdges,
		MinBlogLinks:   t.MinBlogLinks,
		Strategy:       Strategy(strings.ToLower(t.Strategy)),
		Seed:           t.Seed,
	}
}

// Result is the sampled graph plus what was left out
type Result struct {
	Nodes        []models.Node
	Edges        []models.Edge
	DroppedNodes int
	DroppedEdges int
}

// Empty reports whether nothing survived sampling
func (r *Result) Empty() bool {
	return len(r.Nodes) == 0
}

// ResolveEdges drops edges that reference unknown nodes or loop on one node
func ResolveEdges(nodes []models.Node, edges []models.Edge) (kept []models.Edge, dropped int) {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	kept = make([]models.Edge, 0, len(edges))
	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] || e.Source == e.Target {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

// Sample applies opts.Strategy. Whatever the strategy, the result holds at
// most MaxTotal nodes and MaxEdges edges and every edge joins kept nodes.
func Sample(nodes []models.Node, edges []models.Edge, opts Options) Result {
	opts = withDefaults(opts)
	edges, _ = ResolveEdges(nodes, edges)

	var kept []models.Node
	var keptEdges []models.Edge
	switch opts.Strategy {
	case StrategyCategoryBalanced:
		rng := rand.New(rand.NewSource(opts.Seed))
		kept = balancedNodes(nodes, opts, rng)
		keptEdges = capEdgesRandom(restrict(kept, edges), opts.MaxEdges, rng)
	default:
		kept = importantNodes(nodes, edges, opts)
		keptEdges = capEdgesByWeight(restrict(kept, edges), opts.MaxEdges)
	}

	return Result{
		Nodes:        kept,
		Edges:        keptEdges,
		DroppedNodes: len(nodes) - len(kept),
		DroppedEdges: len(edges) - len(keptEdges),
	}
}

func withDefaults(opts Options) Options {
	d := DefaultOptions()
	if opts.MaxTotal <= 0 {
		opts.MaxTotal = d.MaxTotal
	}
	if opts.MaxEdges < 0 {
		opts.MaxEdges = d.MaxEdges
	}
	if opts.MaxPerCategory <= 0 {
		opts.MaxPerCategory = d.MaxPerCategory
	}
	if opts.MinTotal < 0 {
		opts.MinTotal = 0
	}
	if opts.MinTotal > opts.MaxTotal {
		opts.MinTotal = opts.MaxTotal
	}
	if opts.MinBlogLinks <= 0 {
		opts.MinBlogLinks = d.MinBlogLinks
	}
	if opts.Strategy == "" {
		opts.Strategy = d.Strategy
	}
	return opts
}

// BlogLinks counts, per entity, the distinct blogs it shares an edge with
func BlogLinks(nodes []models.Node, edges []models.Edge) map[string]int {
	isBlog := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Type == models.NodeTypeBlog {
			isBlog[n.ID] = true
		}
	}

	linked := make(map[string]map[string]bool)
	link := func(entity, blog string) {
		if isBlog[entity] || !isBlog[blog] {
			return
		}
		if linked[entity] == nil {
			linked[entity] = make(map[string]bool)
		}
		linked[entity][blog] = true
	}
	for _, e := range edges {
		link(e.Target, e.Source)
		link(e.Source, e.Target)
	}

	counts := make(map[string]int, len(linked))
	for id, blogs := range linked {
		counts[id] = len(blogs)
	}
	return counts
}

func importantNodes(nodes []models.Node, edges []models.Edge, opts Options) []models.Node {
	links := BlogLinks(nodes, edges)

	var blogs, entities []models.Node
	for _, n := range nodes {
		if n.Type == models.NodeTypeBlog {
			blogs = append(blogs, n)
		} else if links[n.ID] >= opts.MinBlogLinks {
			entities = append(entities, n)
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if links[entities[i].ID] != links[entities[j].ID] {
			return links[entities[i].ID] > links[entities[j].ID]
		}
		return entities[i].ID < entities[j].ID
	})

	kept := make([]models.Node, 0, len(blogs)+len(entities))
	kept = append(kept, blogs...)
	kept = append(kept, entities...)
	if len(kept) > opts.MaxTotal {
		kept = kept[:opts.MaxTotal]
	}
	return kept
}

func balancedNodes(nodes []models.Node, opts Options, rng *rand.Rand) []models.Node {
	byCategory := make(map[string][]models.Node)
	for _, n := range nodes {
		c := n.Properties.Category
		if c == "" {
			c = uncategorized
		}
		byCategory[c] = append(byCategory[c], n)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	// Larger categories first; name breaks ties so the order is stable.
	sort.Slice(categories, func(i, j int) bool {
		li, lj := len(byCategory[categories[i]]), len(byCategory[categories[j]])
		if li != lj {
			return li > lj
		}
		return categories[i] < categories[j]
	})

	quota := int(math.Ceil(float64(opts.MinTotal) / float64(max(1, len(categories)))))
	quota = min(opts.MaxPerCategory, max(5, quota))

	kept := make([]models.Node, 0, opts.MaxTotal)
	remaining := make(map[string][]models.Node, len(categories))
	for _, c := range categories {
		shuffled := shuffle(byCategory[c], rng)
		take := len(shuffled)
		if take >= 5 {
			take = min(take, quota)
		}
		kept = append(kept, shuffled[:take]...)
		remaining[c] = shuffled[take:]
	}

	for _, c := range categories {
		if len(kept) >= opts.MinTotal {
			break
		}
		extra := remaining[c]
		n := min(len(extra), opts.MinTotal-len(kept))
		kept = append(kept, extra[:n]...)
	}

	if len(kept) > opts.MaxTotal {
		kept = kept[:opts.MaxTotal]
	}
	return kept
}

func shuffle(nodes []models.Node, rng *rand.Rand) []models.Node {
	out := append([]models.Node(nil), nodes...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func restrict(nodes []models.Node, edges []models.Edge) []models.Edge {
	kept, _ := ResolveEdges(nodes, edges)
	return kept
}

func capEdgesByWeight(edges []models.Edge, limit int) []models.Edge {
	if len(edges) <= limit {
		return edges
	}
	sorted := append([]models.Edge(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight() > sorted[j].Weight()
	})
	return sorted[:limit]
}

func capEdgesRandom(edges []models.Edge, limit int, rng *rand.Rand) []models.Edge {
	if len(edges) <= limit {
		return edges
	}
	shuffled := append([]models.Edge(nil), edges...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:limit]
}
