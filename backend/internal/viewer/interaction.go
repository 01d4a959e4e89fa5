package viewer

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"blog-graph/backend/internal/layout"
)

// hitSlop widens node discs for pointer hit-testing, in world units
const hitSlop = 2.0

func (s *Session) interactive() bool {
	return s.sim != nil && (s.state == StateRendering || s.state == StateInteracting)
}

// hitTest returns the top-most node under a screen point
func (s *Session) hitTest(sx, sy float64) *layout.Node {
	if s.sim == nil {
		return nil
	}
	wx, wy := s.transform.ToWorld(sx, sy)
	nodes := s.sim.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if math.Hypot(n.X-wx, n.Y-wy) <= n.Radius+hitSlop {
			return n
		}
	}
	return nil
}

// Hover highlights the node under the pointer and its neighbourhood
func (s *Session) Hover(sx, sy float64) {
	s.post(func() {
		if !s.interactive() {
			return
		}
		n := s.hitTest(sx, sy)
		id := ""
		if n != nil {
			id = n.ID
		}
		if id == s.hovered {
			return
		}
		s.hovered = id
		if n == nil {
			s.overlay.HideTooltip()
		} else {
			tx, ty := s.transform.ToScreen(n.X, n.Y)
			s.overlay.ShowTooltip(Tooltip{
				NodeID:  n.ID,
				Label:   n.Label,
				Type:    n.Type,
				Summary: n.Summary,
				X:       tx,
				Y:       ty,
			})
		}
		s.emit()
	})
}

// Click toggles focus on a node; a background click clears it
func (s *Session) Click(sx, sy float64) {
	s.post(func() {
		if !s.interactive() {
			return
		}
		n := s.hitTest(sx, sy)
		switch {
		case n == nil:
			s.focused = ""
		case s.focused == n.ID:
			s.focused = ""
		default:
			s.focused = n.ID
		}
		s.emit()
	})
}

// DoubleClick opens the article behind a blog node
func (s *Session) DoubleClick(sx, sy float64) {
	s.post(func() {
		if !s.interactive() {
			return
		}
		n := s.hitTest(sx, sy)
		if n == nil || !n.IsBlog() || n.URL == "" {
			return
		}
		s.logger.Debug("Navigating to blog", zap.String("url", n.URL))
		s.navigator.Navigate(n.URL)
	})
}

// DragStart grabs the node under the pointer, or starts panning on the background
func (s *Session) DragStart(sx, sy float64) {
	s.post(func() {
		if !s.interactive() {
			return
		}
		if n := s.hitTest(sx, sy); n != nil {
			wx, wy := s.transform.ToWorld(sx, sy)
			_ = s.sim.DragStart(n.ID, wx, wy)
			s.setState(StateInteracting)
			s.startFrames()
			return
		}
		s.panning = true
		s.panX, s.panY = sx, sy
	})
}

// DragMove follows the pointer with the held node or the pan
func (s *Session) DragMove(sx, sy float64) {
	s.post(func() {
		if s.sim == nil {
			return
		}
		if id, held := s.sim.Dragging(); held {
			wx, wy := s.transform.ToWorld(sx, sy)
			_ = s.sim.DragMove(id, wx, wy)
			return
		}
		if s.panning {
			s.transform = s.transform.Translate(sx-s.panX, sy-s.panY)
			s.panX, s.panY = sx, sy
			s.emit()
		}
	})
}

// DragEnd releases the held node or finishes the pan
func (s *Session) DragEnd() {
	s.post(func() {
		s.panning = false
		if s.sim == nil {
			return
		}
		if id, held := s.sim.Dragging(); held {
			_ = s.sim.DragEnd(id)
			s.startFrames()
		}
		if s.state == StateInteracting {
			s.setState(StateRendering)
		}
	})
}

// Zoom scales the view around a screen point
func (s *Session) Zoom(factor, sx, sy float64) {
	s.post(func() {
		if factor <= 0 {
			return
		}
		s.transform = s.transform.ZoomAt(factor, sx, sy)
		s.emit()
	})
}

// ResetView restores the identity transform
func (s *Session) ResetView() {
	s.post(func() {
		s.transform = Identity()
		s.emit()
	})
}

// Search filters by label and summary once typing pauses for the debounce
// interval; only the latest text is applied.
func (s *Session) Search(text string) {
	s.post(func() {
		s.searchGen++
		gen := s.searchGen
		if s.debounce != nil {
			s.debounce.Stop()
		}
		s.debounce = time.AfterFunc(s.opts.SearchDebounce, func() {
			s.post(func() { s.applySearch(gen, text) })
		})
	})
}

func (s *Session) applySearch(gen uint64, text string) {
	if gen != s.searchGen {
		return
	}
	s.debounce = nil
	s.search = strings.TrimSpace(text)
	s.emit()
}
