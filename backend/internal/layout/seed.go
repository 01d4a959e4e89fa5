package layout

import "math"

// golden angle of the phyllotaxis spiral
var initialAngle = math.Pi * (3 - math.Sqrt(5))

const initialRadius = 10.0

// seedPositions places blogs evenly on a circle and entities on a sunflower
// spiral around the center, so the same graph always starts the same way.
func (s *Simulation) seedPositions() {
	cx, cy := s.center()
	ring := math.Min(s.cfg.Width, s.cfg.Height) * 0.35

	var blogs, entities []*Node
	for _, n := range s.nodes {
		if n.IsBlog() {
			blogs = append(blogs, n)
		} else {
			entities = append(entities, n)
		}
	}

	for i, n := range blogs {
		angle := 2 * math.Pi * float64(i) / float64(len(blogs))
		n.X = cx + ring*math.Cos(angle)
		n.Y = cy + ring*math.Sin(angle)
	}
	for i, n := range entities {
		r := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		n.X = cx + r*math.Cos(angle)
		n.Y = cy + r*math.Sin(angle)
	}
}
