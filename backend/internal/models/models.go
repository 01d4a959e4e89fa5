package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Relationship types produced by the pipeline
const (
	RelContains  = "CONTAINS"
	RelRelatedTo = "RELATED_TO"
	RelIsA       = "IS_A"
	RelUses      = "USES"
	RelDependsOn = "DEPENDS_ON"
)

// DefaultCategory is used for blogs without a tag
const DefaultCategory = "General"

// NodeType is the closed set of node kinds the engine renders
type NodeType int

const (
	NodeTypeEntity NodeType = iota
	NodeTypeBlog
)

// ParseNodeType maps a stored type string to a NodeType.
// Anything that is not "blog" is an entity, including legacy "<domain>_concept" labels.
func ParseNodeType(s string) NodeType {
	if strings.EqualFold(strings.TrimSpace(s), "blog") {
		return NodeTypeBlog
	}
	return NodeTypeEntity
}

func (t NodeType) String() string {
	switch t {
	case NodeTypeBlog:
		return "blog"
	case NodeTypeEntity:
		return "entity"
	default:
		return "entity"
	}
}

// MarshalJSON encodes the type as "blog" or "entity"
func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any string and coerces it with ParseNodeType
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("node type must be a string: %w", err)
	}
	*t = ParseNodeType(raw)
	return nil
}

// Blog is the record handed over by the CRUD layer
type Blog struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Tag     string `json:"tag"`
	Summary string `json:"summary,omitempty"`
}

// Category returns the tag, or DefaultCategory when the blog is untagged
func (b *Blog) Category() string {
	if strings.TrimSpace(b.Tag) == "" {
		return DefaultCategory
	}
	return b.Tag
}

// NodeID returns the deterministic id of the blog node
func (b *Blog) NodeID() string {
	return BlogNodeID(b.Slug)
}

// URL returns the public article path
func (b *Blog) URL() string {
	return "/blog/" + b.Slug
}

// Validate checks the fields the pipeline depends on
func (b *Blog) Validate() error {
	if strings.TrimSpace(b.Slug) == "" {
		return ErrInvalidBlog{Field: "slug", Reason: "cannot be empty"}
	}
	if strings.ContainsAny(b.Slug, " \t\n/") {
		return ErrInvalidBlog{Field: "slug", Reason: "must not contain whitespace or '/'"}
	}
	return nil
}

// NodeProperties are the persisted node attributes
type NodeProperties struct {
	Title     string  `json:"title,omitempty"`
	URL       string  `json:"url"`
	Summary   string  `json:"summary"`
	Category  string  `json:"category"`
	Weight    float64 `json:"weight,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// Node is a graph vertex as stored and served
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       NodeType       `json:"type"`
	Properties NodeProperties `json:"properties"`
}

// Validate checks the identity fields of a node
func (n *Node) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return ErrInvalidNode{ID: n.ID, Reason: "id cannot be empty"}
	}
	return nil
}

// EdgeProperties are optional relationship attributes
type EdgeProperties struct {
	Weight float64 `json:"weight"`
	Source string  `json:"source,omitempty"` // slug of the blog that produced the edge
}

// Edge is a directed, typed relationship between two node ids
type Edge struct {
	Source     string          `json:"source"`
	Target     string          `json:"target"`
	Type       string          `json:"type"`
	Properties *EdgeProperties `json:"properties,omitempty"`
}

// Key identifies an edge for MERGE semantics
func (e *Edge) Key() string {
	return e.Source + "|" + e.Type + "|" + e.Target
}

// Weight returns the edge weight, or 0 when no properties are set
func (e *Edge) Weight() float64 {
	if e.Properties == nil {
		return 0
	}
	return e.Properties.Weight
}

// Validate rejects self-loops and missing endpoints
func (e *Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return ErrInvalidEdge{Source: e.Source, Target: e.Target, Reason: "endpoints cannot be empty"}
	}
	if e.Source == e.Target {
		return ErrInvalidEdge{Source: e.Source, Target: e.Target, Reason: "self-loops are not allowed"}
	}
	return nil
}

// GraphData is the node-link payload exchanged with the viewer
type GraphData struct {
	Nodes         []Node `json:"nodes"`
	Relationships []Edge `json:"relationships"`
}

// NewGraphData returns an empty graph whose slices encode as []
func NewGraphData() *GraphData {
	return &GraphData{Nodes: []Node{}, Relationships: []Edge{}}
}

// IsEmpty reports whether the graph has no nodes
func (g *GraphData) IsEmpty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Normalize replaces nil slices so the JSON shape is stable
func (g *GraphData) Normalize() *GraphData {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Relationships == nil {
		g.Relationships = []Edge{}
	}
	return g
}

// ImportNode is a node as received by the bulk import endpoint.
// Type stays a free string so it can be coerced to "<type>_concept".
type ImportNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties NodeProperties `json:"properties"`
}

// ImportRequest is the body of POST /import-data
type ImportRequest struct {
	Nodes         []ImportNode `json:"nodes"`
	Relationships []Edge       `json:"relationships"`
	Type          string       `json:"type"`
	Replace       bool         `json:"replace"`
}

var conceptTypePattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// ConceptType returns the coerced node type for a domain, e.g. "css" -> "css_concept"
func ConceptType(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain)) + "_concept"
}

// Validate checks the import envelope; node contents are coerced, not validated
func (r *ImportRequest) Validate() error {
	if r.Type != "" && !conceptTypePattern.MatchString(strings.ToLower(r.Type)) {
		return ErrInvalidImport{Reason: fmt.Sprintf("type %q must be a single lowercase word", r.Type)}
	}
	return nil
}

// Coerce applies the domain type to every node whose type does not already match
func (r *ImportRequest) Coerce() {
	if r.Type == "" {
		return
	}
	want := ConceptType(r.Type)
	for i := range r.Nodes {
		if r.Nodes[i].Type != want {
			r.Nodes[i].Type = want
		}
	}
}

// BlogNodeID returns "blog-<slug>"
func BlogNodeID(slug string) string {
	return "blog-" + slug
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// EntityNodeID returns "entity-" followed by the lowercased text with whitespace runs replaced by "-"
func EntityNodeID(text string) string {
	return "entity-" + whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
}

// Errors

type ErrInvalidBlog struct {
	Field  string
	Reason string
}

func (e ErrInvalidBlog) Error() string {
	return fmt.Sprintf("invalid blog: %s - %s", e.Field, e.Reason)
}

type ErrInvalidNode struct {
	ID     string
	Reason string
}

func (e ErrInvalidNode) Error() string {
	return fmt.Sprintf("invalid node %q: %s", e.ID, e.Reason)
}

type ErrInvalidEdge struct {
	Source string
	Target string
	Reason string
}

func (e ErrInvalidEdge) Error() string {
	return fmt.Sprintf("invalid edge %s -> %s: %s", e.Source, e.Target, e.Reason)
}

type ErrInvalidImport struct {
	Reason string
}

func (e ErrInvalidImport) Error() string {
	return fmt.Sprintf("invalid import: %s", e.Reason)
}
