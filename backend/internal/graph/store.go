package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
)

// Store persists the knowledge graph. Upserts are idempotent: writing the same
// node or edge twice leaves a single element.
type Store interface {
	UpsertNode(ctx context.Context, node models.Node) error
	UpsertEdge(ctx context.Context, edge models.Edge) error
	WriteGraph(ctx context.Context, data *models.GraphData) (*WriteResult, error)
	QueryAll(ctx context.Context) (*models.GraphData, error)
	QueryByTag(ctx context.Context, tag string) (*models.GraphData, error)
	Tags(ctx context.Context) ([]string, error)
	Import(ctx context.Context, req *models.ImportRequest) (*WriteResult, error)
	RemoveBlog(ctx context.Context, slug string) (*RemoveResult, error)
	Clear(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}

// WriteResult summarises one batched write
type WriteResult struct {
	NodesWritten int                                `json:"nodes_written"`
	EdgesWritten int                                `json:"edges_written"`
	Skipped      []*apperrors.ErrPartialWriteFailure `json:"-"`
}

// SkippedCount is the number of nodes and edges that were not written
func (w *WriteResult) SkippedCount() int {
	if w == nil {
		return 0
	}
	return len(w.Skipped)
}

func (w *WriteResult) skip(kind, id, reason string, err error) {
	w.Skipped = append(w.Skipped, apperrors.NewPartialWriteFailure(kind, id, reason, err))
}

// RemoveResult reports what RemoveBlog deleted
type RemoveResult struct {
	BlogID          string `json:"blog_id"`
	EntitiesRemoved int    `json:"entities_removed"`
	EdgesRemoved    int    `json:"edges_removed"`
}

// Node labels in the store. Every node also carries the GraphNode label the
// uniqueness constraint is declared on.
const (
	labelBlog    = "Blog"
	labelEntity  = "Entity"
	labelConcept = "Concept"
)

// nodeRecord is the flattened, store-side shape of a node
type nodeRecord struct {
	ID        string
	Label     string
	Type      string
	Title     string
	URL       string
	Summary   string
	Category  string
	Weight    float64
	Relevance float64
}

func recordFromNode(n *models.Node) nodeRecord {
	title := n.Properties.Title
	if title == "" {
		title = n.Label
	}
	return nodeRecord{
		ID:        n.ID,
		Label:     n.Label,
		Type:      n.Type.String(),
		Title:     title,
		URL:       n.Properties.URL,
		Summary:   n.Properties.Summary,
		Category:  n.Properties.Category,
		Weight:    n.Properties.Weight,
		Relevance: n.Properties.Relevance,
	}
}

func recordFromImport(n *models.ImportNode) nodeRecord {
	rec := recordFromNode(&models.Node{ID: n.ID, Label: n.Label, Properties: n.Properties})
	rec.Type = n.Type
	if rec.Type == "" {
		rec.Type = models.NodeTypeEntity.String()
	}
	return rec
}

// storeLabel picks the secondary label for a stored type string
func (r nodeRecord) storeLabel() string {
	switch {
	case r.Type == "blog":
		return labelBlog
	case strings.HasSuffix(r.Type, "_concept"):
		return labelConcept
	default:
		return labelEntity
	}
}

func (r nodeRecord) toNode() models.Node {
	label := r.Label
	if label == "" {
		label = r.Title
	}
	if label == "" {
		label = r.ID
	}
	return models.Node{
		ID:    r.ID,
		Label: label,
		Type:  models.ParseNodeType(r.Type),
		Properties: models.NodeProperties{
			Title:     r.Title,
			URL:       r.URL,
			Summary:   r.Summary,
			Category:  r.Category,
			Weight:    r.Weight,
			Relevance: r.Relevance,
		},
	}
}

var (
	relTypeInvalid = regexp.MustCompile(`[^A-Z0-9_]+`)
	relTypeValid   = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// sanitizeRelType upper-cases a relationship type and replaces anything
// outside [A-Z0-9_]. Relationship types cannot be query parameters.
// An empty type means RELATED_TO.
func sanitizeRelType(t string) (string, error) {
	if strings.TrimSpace(t) == "" {
		return models.RelRelatedTo, nil
	}
	clean := relTypeInvalid.ReplaceAllString(strings.ToUpper(strings.TrimSpace(t)), "_")
	clean = strings.Trim(clean, "_")
	if !relTypeValid.MatchString(clean) {
		return "", fmt.Errorf("invalid relationship type %q", t)
	}
	return clean, nil
}

// categoryLinks links every pair of same-category nodes with RELATED_TO.
// Imports without explicit relationships get this default wiring.
func categoryLinks(nodes []models.ImportNode) []models.Edge {
	byCategory := make(map[string][]string)
	for _, n := range nodes {
		if n.Properties.Category == "" || n.ID == "" {
			continue
		}
		byCategory[n.Properties.Category] = append(byCategory[n.Properties.Category], n.ID)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var edges []models.Edge
	for _, c := range categories {
		ids := byCategory[c]
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if ids[i] == ids[j] {
					continue
				}
				edges = append(edges, models.Edge{Source: ids[i], Target: ids[j], Type: models.RelRelatedTo})
			}
		}
	}
	return edges
}

// importEdges returns the relationships to write for an import request
func importEdges(req *models.ImportRequest) []models.Edge {
	if len(req.Relationships) > 0 {
		return req.Relationships
	}
	return categoryLinks(req.Nodes)
}

// filterTagged keeps nodes with the given category and edges between them
func filterTagged(data *models.GraphData, tag string) *models.GraphData {
	out := models.NewGraphData()
	keep := make(map[string]bool)
	for _, n := range data.Nodes {
		if n.Properties.Category == tag {
			keep[n.ID] = true
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range data.Relationships {
		if keep[e.Source] && keep[e.Target] {
			out.Relationships = append(out.Relationships, e)
		}
	}
	return out
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
