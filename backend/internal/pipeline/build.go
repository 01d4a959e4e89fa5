// Package pipeline turns blogs into graph fragments and persists them.
package pipeline

import (
	"blog-graph/backend/internal/extract"
	"blog-graph/backend/internal/infer"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/textnorm"
	"blog-graph/backend/pkg/config"
)

// DefaultSummary is used for blogs without a description
const DefaultSummary = "博客文章"

// Builder composes extraction and inference into a per-blog graph fragment.
// It does no I/O and is safe for concurrent use.
type Builder struct {
	extractor *extract.Extractor
	inferrer  *infer.Inferrer
}

// NewBuilder creates a Builder; nil arguments select the defaults
func NewBuilder(x *extract.Extractor, in *infer.Inferrer) *Builder {
	if x == nil {
		x = extract.New()
	}
	if in == nil {
		in = infer.New(infer.DefaultOptions())
	}
	return &Builder{extractor: x, inferrer: in}
}

// BuilderFromTuning applies the extraction and inference thresholds of the
// tuning file to the default Builder.
func BuilderFromTuning(t config.Tuning) *Builder {
	xo := extract.DefaultOptions()
	xo.MinRelevance = t.Extraction.MinRelevance
	if t.Extraction.MaxEntities > 0 {
		xo.MaxEntities = t.Extraction.MaxEntities
	}

	in := infer.DefaultOptions()
	in.MinCooccurrence = t.Inference.MinCooccurrence
	in.MinEntityRelevance = t.Inference.CooccurrenceMinScore

	return NewBuilder(extract.New(extract.WithOptions(xo)), infer.New(in))
}

// Fragment is the graph produced for one blog
type Fragment struct {
	Blog     models.Blog
	Entities []extract.Entity
	Graph    *models.GraphData
}

// Build extracts entities from the blog and returns its nodes and edges.
// A blog without usable content still yields its own node.
func (b *Builder) Build(blog *models.Blog) *Fragment {
	entities := b.extractor.Extract(blog.Title, blog.Content, blog.Tag)

	nodes := make([]models.Node, 0, len(entities)+1)
	nodes = append(nodes, blogNode(blog))

	index := map[string]int{nodes[0].ID: 0}
	for i := range entities {
		node := entityNode(blog, &entities[i])
		if at, ok := index[node.ID]; ok {
			// Two surface forms mapped to one id; accumulate the weight.
			nodes[at].Properties.Weight += node.Properties.Weight
			continue
		}
		index[node.ID] = len(nodes)
		nodes = append(nodes, node)
	}

	text := textnorm.StripMarkup(blog.Content)
	edges := b.inferrer.Infer(blog, nodes, entities, text)

	return &Fragment{
		Blog:     *blog,
		Entities: entities,
		Graph:    (&models.GraphData{Nodes: nodes, Relationships: edges}).Normalize(),
	}
}

func blogNode(blog *models.Blog) models.Node {
	summary := blog.Summary
	if summary == "" {
		summary = DefaultSummary
	}
	return models.Node{
		ID:    blog.NodeID(),
		Label: blog.Title,
		Type:  models.NodeTypeBlog,
		Properties: models.NodeProperties{
			Title:    blog.Title,
			URL:      blog.URL(),
			Summary:  summary,
			Category: blog.Category(),
		},
	}
}

func entityNode(blog *models.Blog, e *extract.Entity) models.Node {
	weight := float64(e.Frequency)
	if weight <= 0 {
		weight = 1
	}
	return models.Node{
		ID:    e.ID(),
		Label: e.Text,
		Type:  models.NodeTypeEntity,
		Properties: models.NodeProperties{
			Title:     e.Text,
			Category:  blog.Category(),
			Weight:    weight,
			Relevance: e.Relevance,
		},
	}
}
