package graph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
)

// MemoryStore is an in-process Store with the same merge semantics as the
// Neo4j repository. It backs tests and the demo mode of the CLI.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]nodeRecord
	edges map[string]models.Edge
	order []string // edge keys in insertion order
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]nodeRecord),
		edges: make(map[string]models.Edge),
	}
}

// EnsureSchema is a no-op
func (m *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) mergeNode(rec nodeRecord) {
	existing, ok := m.nodes[rec.ID]
	if !ok {
		m.nodes[rec.ID] = rec
		return
	}
	existing.URL = rec.URL
	existing.Summary = rec.Summary
	existing.Category = rec.Category
	m.nodes[rec.ID] = existing
}

// mergeEdge reports false when either endpoint is missing
func (m *MemoryStore) mergeEdge(edge models.Edge) bool {
	if _, ok := m.nodes[edge.Source]; !ok {
		return false
	}
	if _, ok := m.nodes[edge.Target]; !ok {
		return false
	}
	relType, err := sanitizeRelType(edge.Type)
	if err != nil {
		return false
	}
	edge.Type = relType
	key := edge.Key()
	if _, ok := m.edges[key]; ok {
		return true
	}
	if edge.Properties != nil {
		props := *edge.Properties
		edge.Properties = &props
	}
	m.edges[key] = edge
	m.order = append(m.order, key)
	return true
}

// UpsertNode merges a node by id
func (m *MemoryStore) UpsertNode(ctx context.Context, node models.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeNode(recordFromNode(&node))
	return nil
}

// UpsertEdge merges an edge between existing nodes
func (m *MemoryStore) UpsertEdge(ctx context.Context, edge models.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mergeEdge(edge) {
		return apperrors.NewPartialWriteFailure("edge", edge.Key(), "endpoint not found", nil)
	}
	return nil
}

// WriteGraph applies all upserts under one lock
func (m *MemoryStore) WriteGraph(ctx context.Context, data *models.GraphData) (*WriteResult, error) {
	records := make([]nodeRecord, 0, len(data.Nodes))
	for i := range data.Nodes {
		records = append(records, recordFromNode(&data.Nodes[i]))
	}
	return m.write(ctx, records, data.Relationships, false)
}

// Import coerces and writes an import request
func (m *MemoryStore) Import(ctx context.Context, req *models.ImportRequest) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Coerce()
	records := make([]nodeRecord, 0, len(req.Nodes))
	for i := range req.Nodes {
		records = append(records, recordFromImport(&req.Nodes[i]))
	}
	return m.write(ctx, records, importEdges(req), req.Replace)
}

func (m *MemoryStore) write(ctx context.Context, nodes []nodeRecord, edges []models.Edge, clearFirst bool) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("write graph", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if clearFirst {
		m.reset()
	}

	result := &WriteResult{}
	for _, rec := range nodes {
		if rec.ID == "" {
			result.skip("node", rec.ID, "id cannot be empty", nil)
			continue
		}
		m.mergeNode(rec)
		result.NodesWritten++
	}
	for _, edge := range edges {
		if err := edge.Validate(); err != nil {
			result.skip("edge", edge.Key(), "invalid edge", err)
			continue
		}
		if _, err := sanitizeRelType(edge.Type); err != nil {
			result.skip("edge", edge.Key(), "invalid relationship type", err)
			continue
		}
		if !m.mergeEdge(edge) {
			result.skip("edge", edge.Key(), "endpoint not found", nil)
			continue
		}
		result.EdgesWritten++
	}
	return result, nil
}

// QueryAll returns a copy of the whole graph, nodes sorted by id
func (m *MemoryStore) QueryAll(ctx context.Context) (*models.GraphData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("query all", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := models.NewGraphData()
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		data.Nodes = append(data.Nodes, m.nodes[id].toNode())
	}
	for _, key := range m.order {
		edge := m.edges[key]
		if edge.Properties != nil {
			props := *edge.Properties
			edge.Properties = &props
		}
		data.Relationships = append(data.Relationships, edge)
	}
	return data, nil
}

// QueryByTag returns nodes of one category and the edges among them
func (m *MemoryStore) QueryByTag(ctx context.Context, tag string) (*models.GraphData, error) {
	all, err := m.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterTagged(all, tag), nil
}

// Tags returns the distinct blog categories, sorted
func (m *MemoryStore) Tags(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	tags := []string{}
	for _, rec := range m.nodes {
		if rec.Type != "blog" || rec.Category == "" || seen[rec.Category] {
			continue
		}
		seen[rec.Category] = true
		tags = append(tags, rec.Category)
	}
	sort.Strings(tags)
	return tags, nil
}

// RemoveBlog mirrors Repository.RemoveBlog
func (m *MemoryStore) RemoveBlog(ctx context.Context, slug string) (*RemoveResult, error) {
	blogID := models.BlogNodeID(slug)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[blogID]; !ok {
		return nil, ErrNodeNotFound{ID: blogID}
	}

	res := &RemoveResult{BlogID: blogID}
	var contained []string
	for _, key := range m.order {
		e := m.edges[key]
		if e.Source == blogID && e.Type == models.RelContains {
			contained = append(contained, e.Target)
		}
	}

	m.dropEdges(func(e models.Edge) bool { return e.Source == blogID || e.Target == blogID })
	res.EdgesRemoved = m.dropEdges(func(e models.Edge) bool {
		return e.Properties != nil && e.Properties.Source == slug
	})
	delete(m.nodes, blogID)

	for _, id := range contained {
		if m.containedByBlog(id) {
			continue
		}
		if _, ok := m.nodes[id]; !ok {
			continue
		}
		m.dropEdges(func(e models.Edge) bool { return e.Source == id || e.Target == id })
		delete(m.nodes, id)
		res.EntitiesRemoved++
	}
	return res, nil
}

func (m *MemoryStore) containedByBlog(id string) bool {
	for _, e := range m.edges {
		if e.Target == id && e.Type == models.RelContains && m.nodes[e.Source].Type == "blog" {
			return true
		}
	}
	return false
}

func (m *MemoryStore) dropEdges(match func(models.Edge) bool) int {
	kept := m.order[:0]
	removed := 0
	for _, key := range m.order {
		if match(m.edges[key]) {
			delete(m.edges, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	m.order = kept
	return removed
}

// Clear removes everything
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *MemoryStore) reset() {
	m.nodes = make(map[string]nodeRecord)
	m.edges = make(map[string]models.Edge)
	m.order = nil
}

// Counts returns the number of stored nodes and edges
func (m *MemoryStore) Counts() (nodes, edges int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.edges)
}

// NodeType returns the stored type string of a node, e.g. "css_concept"
func (m *MemoryStore) NodeType(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.nodes[id]
	return rec.Type, ok && strings.TrimSpace(rec.Type) != ""
}
