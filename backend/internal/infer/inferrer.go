// Package infer builds containment and co-occurrence edges between a blog and
// the entities extracted from it.
package infer

import (
	"regexp"
	"strings"

	"blog-graph/backend/internal/extract"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/textnorm"
)

// Options tunes co-occurrence detection
type Options struct {
	MinCooccurrence    int     // pairs seen in fewer paragraphs are dropped
	MinEntityRelevance float64 // entities at or below this score do not pair up
	MinParagraphRunes  int
	DetectRelationType bool
}

// DefaultOptions returns the usual thresholds
func DefaultOptions() Options {
	return Options{
		MinCooccurrence:    2,
		MinEntityRelevance: 0.15,
		MinParagraphRunes:  20,
		DetectRelationType: true,
	}
}

// Inferrer produces edges for one blog. It holds no per-call state.
type Inferrer struct {
	opts Options
}

// New creates an Inferrer
func New(opts Options) *Inferrer {
	if opts.MinCooccurrence < 1 {
		opts.MinCooccurrence = 1
	}
	return &Inferrer{opts: opts}
}

// Infer returns CONTAINS edges from the blog to each entity followed by
// entity-entity co-occurrence edges. Edges whose endpoints are missing from
// nodes, and self-loops, are dropped.
func (in *Inferrer) Infer(blog *models.Blog, nodes []models.Node, entities []extract.Entity, text string) []models.Edge {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	blogID := blog.NodeID()
	edges := make([]models.Edge, 0, len(entities))
	seen := make(map[string]bool)

	emit := func(e models.Edge) {
		if e.Source == e.Target || !present[e.Source] || !present[e.Target] {
			return
		}
		if seen[e.Key()] {
			return
		}
		seen[e.Key()] = true
		edges = append(edges, e)
	}

	for i := range entities {
		emit(models.Edge{
			Source:     blogID,
			Target:     entities[i].ID(),
			Type:       models.RelContains,
			Properties: &models.EdgeProperties{Weight: containmentWeight(&entities[i])},
		})
	}

	for _, pair := range in.Cooccurrences(entities, text) {
		relType := models.RelRelatedTo
		if in.opts.DetectRelationType {
			relType = DetectRelationType(pair.A.Text, pair.B.Text, text)
		}
		weight := float64(pair.Count) / 2
		if weight > 1 {
			weight = 1
		}
		emit(models.Edge{
			Source:     pair.A.ID(),
			Target:     pair.B.ID(),
			Type:       relType,
			Properties: &models.EdgeProperties{Weight: weight, Source: blog.Slug},
		})
	}

	return edges
}

func containmentWeight(e *extract.Entity) float64 {
	if e.Relevance > 0 {
		return e.Relevance
	}
	if e.Frequency > 0 {
		return float64(e.Frequency)
	}
	return 1
}

// Pair is an unordered entity pair and the number of paragraphs containing both.
// A is the entity that ranks first in the extractor output.
type Pair struct {
	A, B  *extract.Entity
	Count int
}

// Cooccurrences counts, per paragraph, which sufficiently relevant entities
// appear together, and returns pairs seen in at least MinCooccurrence paragraphs.
func (in *Inferrer) Cooccurrences(entities []extract.Entity, text string) []Pair {
	candidates := make([]*extract.Entity, 0, len(entities))
	matchers := make([]func(string) bool, 0, len(entities))
	for i := range entities {
		if entities[i].Relevance > in.opts.MinEntityRelevance {
			candidates = append(candidates, &entities[i])
			matchers = append(matchers, mentionMatcher(entities[i].Text))
		}
	}
	if len(candidates) < 2 {
		return nil
	}

	counts := make(map[[2]int]int)
	for _, paragraph := range textnorm.Paragraphs(text) {
		if textnorm.RuneLen(paragraph) < in.opts.MinParagraphRunes {
			continue
		}
		var inParagraph []int
		for i, matches := range matchers {
			if matches(paragraph) {
				inParagraph = append(inParagraph, i)
			}
		}
		for a := 0; a < len(inParagraph); a++ {
			for b := a + 1; b < len(inParagraph); b++ {
				counts[[2]int{inParagraph[a], inParagraph[b]}]++
			}
		}
	}

	// Iterate in candidate order so output is deterministic.
	var pairs []Pair
	for a := 0; a < len(candidates); a++ {
		for b := a + 1; b < len(candidates); b++ {
			n := counts[[2]int{a, b}]
			if n >= in.opts.MinCooccurrence {
				pairs = append(pairs, Pair{A: candidates[a], B: candidates[b], Count: n})
			}
		}
	}
	return pairs
}

// mentionMatcher matches whole-word, case-insensitive mentions. CJK text has
// no word boundaries, so CJK entities match as substrings.
func mentionMatcher(entity string) func(string) bool {
	if textnorm.ContainsCJK(entity) {
		lower := strings.ToLower(entity)
		return func(p string) bool {
			return strings.Contains(strings.ToLower(p), lower)
		}
	}
	re := regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(entity) + `($|[^\p{L}\p{N}_])`)
	return re.MatchString
}
