package layout

import (
	"math"

	"blog-graph/backend/internal/models"
)

type force interface {
	apply(alpha float64)
}

// ============================================================================
// Link
// ============================================================================

type linkForce struct {
	sim       *Simulation
	distances []float64
	strengths []float64
	bias      []float64
}

func newLinkForce(s *Simulation) *linkForce {
	degree := make(map[*Node]int, len(s.nodes))
	for _, l := range s.links {
		degree[l.Source]++
		degree[l.Target]++
	}

	f := &linkForce{
		sim:       s,
		distances: make([]float64, len(s.links)),
		strengths: make([]float64, len(s.links)),
		bias:      make([]float64, len(s.links)),
	}
	for i, l := range s.links {
		ds, dt := degree[l.Source], degree[l.Target]
		f.distances[i] = s.linkDistance(l)
		f.strengths[i] = 1 / float64(min(ds, dt))
		f.bias[i] = float64(ds) / float64(ds+dt)
	}
	return f
}

func (s *Simulation) linkDistance(l *Link) float64 {
	switch {
	case l.Source.IsBlog() && l.Target.IsBlog():
		return s.cfg.BlogBlogDistance
	case l.Source.IsBlog() || l.Target.IsBlog():
		return s.cfg.BlogEntityDistance
	default:
		return s.cfg.EntityEntityDistance
	}
}

func (f *linkForce) apply(alpha float64) {
	for i, l := range f.sim.links {
		src, tgt := l.Source, l.Target
		x := tgt.X + tgt.VX - src.X - src.VX
		if x == 0 {
			x = f.sim.jiggle()
		}
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if y == 0 {
			y = f.sim.jiggle()
		}
		dist := math.Sqrt(x*x + y*y)
		k := (dist - f.distances[i]) / dist * alpha * f.strengths[i]
		x *= k
		y *= k

		b := f.bias[i]
		tgt.VX -= x * b
		tgt.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// ============================================================================
// Many-body
// ============================================================================

// manyBodyForce sums pairwise charge exactly; sampled graphs stay small
// enough that a Barnes-Hut tree would not pay off.
type manyBodyForce struct {
	sim       *Simulation
	strengths []float64
	dMin2     float64
	dMax2     float64
}

func newManyBodyForce(s *Simulation) *manyBodyForce {
	f := &manyBodyForce{
		sim:       s,
		strengths: make([]float64, len(s.nodes)),
		dMin2:     s.cfg.ChargeDistanceMin * s.cfg.ChargeDistanceMin,
		dMax2:     math.Inf(1),
	}
	if s.cfg.ChargeDistanceMax > 0 {
		f.dMax2 = s.cfg.ChargeDistanceMax * s.cfg.ChargeDistanceMax
	}
	for i, n := range s.nodes {
		f.strengths[i] = s.cfg.Charge
		if n.Type == models.NodeTypeBlog {
			f.strengths[i] = s.cfg.BlogCharge
		}
	}
	return f
}

func (f *manyBodyForce) apply(alpha float64) {
	nodes := f.sim.nodes
	for _, n := range nodes {
		for j, o := range nodes {
			if o == n || f.strengths[j] == 0 {
				continue
			}
			x := o.X - n.X
			y := o.Y - n.Y
			l := x*x + y*y
			if l >= f.dMax2 {
				continue
			}
			if x == 0 {
				x = f.sim.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.sim.jiggle()
				l += y * y
			}
			if l < f.dMin2 {
				l = math.Sqrt(f.dMin2 * l)
			}
			w := f.strengths[j] * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// ============================================================================
// Center
// ============================================================================

type centerForce struct {
	sim *Simulation
}

func newCenterForce(s *Simulation) *centerForce {
	return &centerForce{sim: s}
}

func (f *centerForce) apply(float64) {
	nodes := f.sim.nodes
	if len(nodes) == 0 || f.sim.cfg.CenterStrength == 0 {
		return
	}
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	cx, cy := f.sim.center()
	sx = (sx/float64(len(nodes)) - cx) * f.sim.cfg.CenterStrength
	sy = (sy/float64(len(nodes)) - cy) * f.sim.cfg.CenterStrength
	for _, n := range nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// ============================================================================
// Collide
// ============================================================================

type collideForce struct {
	sim *Simulation
}

func newCollideForce(s *Simulation) *collideForce {
	return &collideForce{sim: s}
}

func (f *collideForce) radius(n *Node) float64 {
	return n.Radius + f.sim.cfg.CollidePadding
}

// apply ignores alpha; overlaps are resolved at any temperature
func (f *collideForce) apply(float64) {
	strength := f.sim.cfg.CollideStrength
	if strength == 0 {
		return
	}
	nodes := f.sim.nodes
	for it := 0; it < max(1, f.sim.cfg.CollideIterations); it++ {
		for i, n := range nodes {
			ri := f.radius(n)
			ri2 := ri * ri
			xi := n.X + n.VX
			yi := n.Y + n.VY
			for _, o := range nodes[i+1:] {
				rj := f.radius(o)
				r := ri + rj
				x := xi - o.X - o.VX
				y := yi - o.Y - o.VY
				l := x*x + y*y
				if l >= r*r {
					continue
				}
				if x == 0 {
					x = f.sim.jiggle()
					l += x * x
				}
				if y == 0 {
					y = f.sim.jiggle()
					l += y * y
				}
				l = math.Sqrt(l)
				k := (r - l) / l * strength
				x *= k
				y *= k
				rj2 := rj * rj
				w := rj2 / (ri2 + rj2)
				n.VX += x * w
				n.VY += y * w
				o.VX -= x * (1 - w)
				o.VY -= y * (1 - w)
			}
		}
	}
}
