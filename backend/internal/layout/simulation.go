// Package layout positions graph nodes with a velocity Verlet force
// simulation modelled on d3-force: link springs, many-body charge, a weak
// centering pull and collision avoidance, cooled by an alpha schedule.
package layout

import (
	"fmt"
	"math"
	"math/rand"

	"blog-graph/backend/internal/models"
	"blog-graph/backend/pkg/config"
)

// Node radii in world units
const (
	BlogRadius   = 12.0
	EntityRadius = 6.0
)

// dragAlphaTarget keeps the simulation warm while a node is held
const dragAlphaTarget = 0.3

// Node is a positioned graph node
type Node struct {
	ID       string
	Label    string
	Type     models.NodeType
	Category string
	URL      string
	Summary  string
	Radius   float64
	Index    int

	X, Y   float64
	VX, VY float64
	// FX/FY pin the node when set
	FX, FY *float64
}

// Pinned reports whether the node position is fixed
func (n *Node) Pinned() bool {
	return n.FX != nil && n.FY != nil
}

// IsBlog reports whether the node is a blog article
func (n *Node) IsBlog() bool {
	return n.Type == models.NodeTypeBlog
}

// Link is a spring between two nodes
type Link struct {
	Source *Node
	Target *Node
	Type   string
	Weight float64
	Index  int
}

// Config holds the simulation constants
type Config struct {
	Width  float64
	Height float64

	AlphaMin      float64
	AlphaDecay    float64
	VelocityDecay float64

	Charge            float64
	BlogCharge        float64
	ChargeDistanceMin float64
	ChargeDistanceMax float64

	BlogBlogDistance     float64
	BlogEntityDistance   float64
	EntityEntityDistance float64

	CenterStrength    float64
	CollidePadding    float64
	CollideStrength   float64
	CollideIterations int

	Seed int64
}

// DefaultConfig returns the stock d3-like constants
func DefaultConfig() Config {
	return FromTuning(config.DefaultTuning().Layout)
}

// FromTuning builds a Config from the layout section of the tuning file
func FromTuning(t config.LayoutTuning) Config {
	return Config{
		Width:                t.Width,
		Height:               t.Height,
		AlphaMin:             t.AlphaMin,
		AlphaDecay:           t.AlphaDecay,
		VelocityDecay:        t.VelocityDecay,
		Charge:               t.Charge,
		BlogCharge:           t.BlogCharge,
		ChargeDistanceMin:    1,
		ChargeDistanceMax:    t.ChargeDistance,
		BlogBlogDistance:     t.BlogBlogDistance,
		BlogEntityDistance:   t.BlogEntityDistance,
		EntityEntityDistance: t.EntityEntityDistance,
		CenterStrength:       0.1,
		CollidePadding:       t.CollidePadding,
		CollideStrength:      t.CollideStrength,
		CollideIterations:    2,
		Seed:                 1,
	}
}

// ErrUnknownNode is returned by drag operations for ids not in the simulation
type ErrUnknownNode struct {
	ID string
}

func (e ErrUnknownNode) Error() string {
	return fmt.Sprintf("node not in layout: %s", e.ID)
}

// Simulation is not safe for concurrent use; the owning session drives it
// from a single goroutine.
type Simulation struct {
	cfg    Config
	nodes  []*Node
	links  []*Link
	byID   map[string]*Node
	forces []force
	rng    *rand.Rand

	alpha       float64
	alphaTarget float64
	ended       bool
	stopped     bool
	ticks       int
	dragging    *Node
}

// New builds a simulation over nodes and the edges whose endpoints exist.
// Initial positions are deterministic.
func New(nodes []models.Node, edges []models.Edge, cfg Config) *Simulation {
	s := &Simulation{
		cfg:   cfg,
		byID:  make(map[string]*Node, len(nodes)),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		alpha: 1,
	}

	for _, n := range nodes {
		if _, dup := s.byID[n.ID]; dup {
			continue
		}
		ln := &Node{
			ID:       n.ID,
			Label:    n.Label,
			Type:     n.Type,
			Category: n.Properties.Category,
			URL:      n.Properties.URL,
			Summary:  n.Properties.Summary,
			Radius:   EntityRadius,
			Index:    len(s.nodes),
		}
		if ln.Label == "" {
			ln.Label = n.Properties.Title
		}
		if ln.IsBlog() {
			ln.Radius = BlogRadius
		}
		s.nodes = append(s.nodes, ln)
		s.byID[ln.ID] = ln
	}

	for _, e := range edges {
		src, okS := s.byID[e.Source]
		tgt, okT := s.byID[e.Target]
		if !okS || !okT || src == tgt {
			continue
		}
		s.links = append(s.links, &Link{
			Source: src,
			Target: tgt,
			Type:   e.Type,
			Weight: e.Weight(),
			Index:  len(s.links),
		})
	}

	s.seedPositions()
	s.forces = []force{
		newLinkForce(s),
		newManyBodyForce(s),
		newCenterForce(s),
		newCollideForce(s),
	}
	return s
}

// Nodes returns the simulated nodes in insertion order
func (s *Simulation) Nodes() []*Node { return s.nodes }

// Links returns the springs
func (s *Simulation) Links() []*Link { return s.links }

// Node looks a node up by id
func (s *Simulation) Node(id string) (*Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Config returns the constants the simulation was built with
func (s *Simulation) Config() Config { return s.cfg }

// Alpha is the current temperature
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks counts the ticks applied so far
func (s *Simulation) Ticks() int { return s.ticks }

// SetAlpha sets the temperature directly
func (s *Simulation) SetAlpha(alpha float64) {
	s.alpha = math.Max(0, math.Min(1, alpha))
}

// SetAlphaTarget sets the temperature the simulation decays toward
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = math.Max(0, math.Min(1, target))
}

// Restart resumes ticking after convergence or Stop
func (s *Simulation) Restart() {
	s.ended = false
	s.stopped = false
}

// Stop halts the simulation until Restart
func (s *Simulation) Stop() {
	s.stopped = true
}

// Stopped reports whether Stop was called
func (s *Simulation) Stopped() bool { return s.stopped }

// Converged reports whether alpha fell below alphaMin and nothing reheated it
func (s *Simulation) Converged() bool { return s.ended }

// Running reports whether the next Tick would advance the simulation
func (s *Simulation) Running() bool { return !s.stopped && !s.ended }

// Tick advances the simulation one step. It returns false once the
// simulation is stopped or has converged.
func (s *Simulation) Tick() bool {
	if !s.Running() {
		return false
	}
	s.step()
	if s.alpha < s.cfg.AlphaMin {
		s.ended = true
	}
	return !s.ended
}

// Warmup runs up to n ticks synchronously and returns how many ran
func (s *Simulation) Warmup(n int) int {
	ran := 0
	for ran < n && s.Running() {
		s.Tick()
		ran++
	}
	return ran
}

func (s *Simulation) step() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay
	for _, f := range s.forces {
		f.apply(s.alpha)
	}

	retain := 1 - s.cfg.VelocityDecay
	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= retain
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= retain
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}
	s.ticks++
}

// KineticEnergy sums the squared node velocities
func (s *Simulation) KineticEnergy() float64 {
	var e float64
	for _, n := range s.nodes {
		e += 0.5 * (n.VX*n.VX + n.VY*n.VY)
	}
	return e
}

// Bounds returns the bounding box of the node discs
func (s *Simulation) Bounds() (minX, minY, maxX, maxY float64) {
	if len(s.nodes) == 0 {
		return 0, 0, s.cfg.Width, s.cfg.Height
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range s.nodes {
		minX = math.Min(minX, n.X-n.Radius)
		minY = math.Min(minY, n.Y-n.Radius)
		maxX = math.Max(maxX, n.X+n.Radius)
		maxY = math.Max(maxY, n.Y+n.Radius)
	}
	return minX, minY, maxX, maxY
}

// DragStart pins id at (x, y) and keeps the simulation warm. Starting a drag
// on the node already held only moves the pin.
func (s *Simulation) DragStart(id string, x, y float64) error {
	n, ok := s.byID[id]
	if !ok {
		return ErrUnknownNode{ID: id}
	}
	if s.dragging != nil && s.dragging != n {
		s.release(s.dragging)
	}
	s.dragging = n
	s.pin(n, x, y)
	s.SetAlphaTarget(dragAlphaTarget)
	s.Restart()
	return nil
}

// DragMove moves the pin of the held node; it is a no-op for any other node
func (s *Simulation) DragMove(id string, x, y float64) error {
	n, ok := s.byID[id]
	if !ok {
		return ErrUnknownNode{ID: id}
	}
	if s.dragging != n {
		return nil
	}
	s.pin(n, x, y)
	return nil
}

// DragEnd releases the held node and lets the simulation cool down
func (s *Simulation) DragEnd(id string) error {
	n, ok := s.byID[id]
	if !ok {
		return ErrUnknownNode{ID: id}
	}
	if s.dragging != n {
		return nil
	}
	s.release(n)
	s.dragging = nil
	s.SetAlphaTarget(0)
	return nil
}

// Dragging returns the id of the held node, if any
func (s *Simulation) Dragging() (string, bool) {
	if s.dragging == nil {
		return "", false
	}
	return s.dragging.ID, true
}

func (s *Simulation) pin(n *Node, x, y float64) {
	fx, fy := x, y
	n.FX, n.FY = &fx, &fy
}

func (s *Simulation) release(n *Node) {
	n.FX, n.FY = nil, nil
}

// jiggle returns a tiny random offset used to separate coincident nodes
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func (s *Simulation) center() (float64, float64) {
	return s.cfg.Width / 2, s.cfg.Height / 2
}
