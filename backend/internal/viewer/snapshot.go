package viewer

import (
	"strings"

	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
)

// Opacities used for highlighting
const (
	OpacityFull       = 1.0
	OpacityLink       = 0.6
	OpacityDimmedNode = 0.2
	OpacityDimmedLink = 0.1
	OpacitySearchMiss = 0.1
)

// NodeView is a node as drawn
type NodeView struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Type     models.NodeType `json:"type"`
	Category string          `json:"category,omitempty"`
	URL      string          `json:"url,omitempty"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Radius   float64         `json:"r"`
	Opacity  float64         `json:"opacity"`
	Pinned   bool            `json:"pinned,omitempty"`
}

// LinkView is a link as drawn
type LinkView struct {
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Type    string  `json:"type"`
	Weight  float64 `json:"weight"`
	Opacity float64 `json:"opacity"`
}

// Snapshot is an immutable copy of a session's view
type Snapshot struct {
	SessionID    string     `json:"sessionId"`
	State        State      `json:"-"`
	Error        string     `json:"error,omitempty"`
	Query        Query      `json:"query"`
	Nodes        []NodeView `json:"nodes"`
	Links        []LinkView `json:"links"`
	Transform    Transform  `json:"transform"`
	Alpha        float64    `json:"alpha"`
	Hovered      string     `json:"hovered,omitempty"`
	Focused      string     `json:"focused,omitempty"`
	Search       string     `json:"search,omitempty"`
	DroppedNodes int        `json:"droppedNodes"`
	DroppedEdges int        `json:"droppedEdges"`
}

// Node finds a node view by id
func (s Snapshot) Node(id string) (NodeView, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}

// Link finds a link view by endpoints
func (s Snapshot) Link(source, target string) (LinkView, bool) {
	for _, l := range s.Links {
		if l.Source == source && l.Target == target {
			return l, true
		}
	}
	return LinkView{}, false
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		State:     s.state,
		Query:     s.query,
		Transform: s.transform,
		Hovered:   s.hovered,
		Focused:   s.focused,
		Search:    s.search,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.sim == nil {
		return snap
	}

	snap.Alpha = s.sim.Alpha()
	snap.DroppedNodes = s.sample.DroppedNodes
	snap.DroppedEdges = s.sample.DroppedEdges
	nodeOpacity, linkOpacity := s.opacities()

	snap.Nodes = make([]NodeView, 0, len(s.sim.Nodes()))
	for _, n := range s.sim.Nodes() {
		snap.Nodes = append(snap.Nodes, NodeView{
			ID:       n.ID,
			Label:    n.Label,
			Type:     n.Type,
			Category: n.Category,
			URL:      n.URL,
			X:        n.X,
			Y:        n.Y,
			Radius:   n.Radius,
			Opacity:  nodeOpacity(n),
			Pinned:   n.Pinned(),
		})
	}
	snap.Links = make([]LinkView, 0, len(s.sim.Links()))
	for _, l := range s.sim.Links() {
		snap.Links = append(snap.Links, LinkView{
			Source:  l.Source.ID,
			Target:  l.Target.ID,
			Type:    l.Type,
			Weight:  l.Weight,
			Opacity: linkOpacity(l),
		})
	}
	return snap
}

// opacities picks the active highlight: focus, then hover, then search
func (s *Session) opacities() (func(*layout.Node) float64, func(*layout.Link) float64) {
	active := s.focused
	if active == "" {
		active = s.hovered
	}

	if active != "" {
		near := map[string]bool{active: true}
		for _, l := range s.sim.Links() {
			if l.Source.ID == active {
				near[l.Target.ID] = true
			}
			if l.Target.ID == active {
				near[l.Source.ID] = true
			}
		}
		node := func(n *layout.Node) float64 {
			if near[n.ID] {
				return OpacityFull
			}
			return OpacityDimmedNode
		}
		link := func(l *layout.Link) float64 {
			if l.Source.ID == active || l.Target.ID == active {
				return OpacityFull
			}
			return OpacityDimmedLink
		}
		return node, link
	}

	if s.search != "" {
		matched := make(map[string]bool)
		for _, n := range s.sim.Nodes() {
			if matchesSearch(n, s.search) {
				matched[n.ID] = true
			}
		}
		node := func(n *layout.Node) float64 {
			if matched[n.ID] {
				return OpacityFull
			}
			return OpacitySearchMiss
		}
		link := func(l *layout.Link) float64 {
			if matched[l.Source.ID] || matched[l.Target.ID] {
				return OpacityLink
			}
			return OpacitySearchMiss
		}
		return node, link
	}

	return func(*layout.Node) float64 { return OpacityFull },
		func(*layout.Link) float64 { return OpacityLink }
}

func matchesSearch(n *layout.Node, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(n.Label), q) ||
		strings.Contains(strings.ToLower(n.Summary), q)
}
