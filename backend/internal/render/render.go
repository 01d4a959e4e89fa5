// Package render turns a sampled, laid-out graph into static artefacts: an
// SVG snapshot and a self-contained interactive HTML page.
package render

import (
	"fmt"
	"image/color"
	"sort"

	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/sampler"
	"blog-graph/backend/pkg/config"
	apperrors "blog-graph/backend/pkg/errors"
)

// Settings controls sampling and layout before rendering
type Settings struct {
	Sampler     sampler.Options
	Layout      layout.Config
	WarmupTicks int
	// Converge keeps ticking past the warmup until the layout settles
	Converge bool
}

// DefaultSettings returns the stock sampling and layout settings
func DefaultSettings() Settings {
	return Settings{
		Sampler:     sampler.DefaultOptions(),
		Layout:      layout.DefaultConfig(),
		WarmupTicks: 100,
		Converge:    true,
	}
}

// SettingsFromTuning derives render settings from the tuning file
func SettingsFromTuning(t config.Tuning) Settings {
	return Settings{
		Sampler:     sampler.FromTuning(t.Sampler),
		Layout:      layout.FromTuning(t.Layout),
		WarmupTicks: t.Layout.WarmupTicks,
		Converge:    true,
	}
}

// maxTicks bounds Converge for pathological inputs
const maxTicks = 1000

// Prepare samples data and runs the layout. scope names the query in the
// EmptyGraphResult returned when nothing is left to draw.
func Prepare(data *models.GraphData, scope string, s Settings) (*layout.Simulation, sampler.Result, error) {
	if data.IsEmpty() {
		return nil, sampler.Result{}, apperrors.NewEmptyGraphResult(scope)
	}
	res := sampler.Sample(data.Nodes, data.Relationships, s.Sampler)
	if res.Empty() {
		return nil, res, apperrors.NewEmptyGraphResult(scope)
	}

	sim := layout.New(res.Nodes, res.Edges, s.Layout)
	ticks := s.WarmupTicks
	if s.Converge {
		ticks = maxTicks
	}
	sim.Warmup(ticks)
	sim.Stop()
	return sim, res, nil
}

// ============================================================================
// Colours
// ============================================================================

var (
	bgDark        = color.RGBA{0x0a, 0x0e, 0x17, 0xff}
	bgHeader      = color.RGBA{0x14, 0x1a, 0x26, 0xff}
	textPrimary   = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	textSecondary = color.RGBA{0x88, 0x88, 0x88, 0xff}
	textAccent    = color.RGBA{0x2d, 0xb6, 0x82, 0xff}
	edgeContains  = color.RGBA{0x4a, 0x55, 0x68, 0xff}
	edgeRelated   = color.RGBA{0x2d, 0xb6, 0x82, 0xff}
)

var palette = []color.RGBA{
	{0x2d, 0xb6, 0x82, 0xff},
	{0x01, 0x71, 0xe3, 0xff},
	{0xe0, 0x7c, 0x3a, 0xff},
	{0x9b, 0x59, 0xb6, 0xff},
	{0xe7, 0x4c, 0x3c, 0xff},
	{0x1a, 0xbc, 0x9c, 0xff},
	{0xf1, 0xc4, 0x0f, 0xff},
	{0x34, 0x98, 0xdb, 0xff},
	{0xe9, 0x1e, 0x63, 0xff},
	{0x00, 0xbc, 0xd4, 0xff},
}

// categoryColors assigns palette colours to categories in name order
func categoryColors(nodes []*layout.Node) (map[string]color.RGBA, []string) {
	seen := make(map[string]bool)
	var categories []string
	for _, n := range nodes {
		c := categoryOf(n)
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)

	colors := make(map[string]color.RGBA, len(categories))
	for i, c := range categories {
		colors[c] = palette[i%len(palette)]
	}
	return colors, categories
}

func categoryOf(n *layout.Node) string {
	if n.Category == "" {
		return models.DefaultCategory
	}
	return n.Category
}

func cssRGBA(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
