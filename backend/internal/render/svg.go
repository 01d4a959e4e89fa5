package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
)

// SVGOptions sizes the snapshot
type SVGOptions struct {
	Width  int
	Height int
	Margin int
	Title  string
	// EntityLabels also prints entity names; blog titles are always shown
	EntityLabels bool
}

// DefaultSVGOptions returns a 1200x800 canvas
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 1200, Height: 800, Margin: 60, Title: "Knowledge graph", EntityLabels: true}
}

// viewport maps world coordinates into the canvas
type viewport struct {
	scale, offX, offY float64
}

func fit(sim *layout.Simulation, opts SVGOptions) viewport {
	minX, minY, maxX, maxY := sim.Bounds()
	availW := float64(opts.Width - 2*opts.Margin)
	availH := float64(opts.Height - 2*opts.Margin - headerHeight)
	bw := math.Max(maxX-minX, 1)
	bh := math.Max(maxY-minY, 1)
	scale := math.Min(math.Min(availW/bw, availH/bh), 1.5)

	return viewport{
		scale: scale,
		offX:  float64(opts.Margin) + (availW-bw*scale)/2 - minX*scale,
		offY:  float64(opts.Margin+headerHeight) + (availH-bh*scale)/2 - minY*scale,
	}
}

func (v viewport) point(x, y float64) (int, int) {
	return int(math.Round(x*v.scale + v.offX)), int(math.Round(y*v.scale + v.offY))
}

const headerHeight = 40

// SVG writes a static snapshot of a laid-out simulation
func SVG(w io.Writer, sim *layout.Simulation, opts SVGOptions) error {
	if opts.Width < 400 {
		opts.Width = 400
	}
	if opts.Height < 300 {
		opts.Height = 300
	}
	nodes := sim.Nodes()
	colors, categories := categoryColors(nodes)
	vp := fit(sim, opts)

	canvas := svg.New(w)
	canvas.Start(opts.Width, opts.Height)
	canvas.Title(opts.Title)

	canvas.Def()
	canvas.LinearGradient("bgGrad", 0, 0, 0, 100, []svg.Offcolor{
		{Offset: 0, Color: cssRGBA(bgDark), Opacity: 1},
		{Offset: 100, Color: "#151520", Opacity: 1},
	})
	canvas.Filter("glow")
	canvas.FeGaussianBlur(svg.Filterspec{In: "SourceGraphic", Result: "blur"}, 4, 4)
	canvas.FeMerge([]string{"blur", "SourceGraphic"})
	canvas.Fend()
	canvas.DefEnd()

	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:url(#bgGrad)")
	drawHeaderSVG(canvas, opts, len(nodes), len(sim.Links()))

	canvas.Gid("links")
	for _, l := range sim.Links() {
		x1, y1 := vp.point(l.Source.X, l.Source.Y)
		x2, y2 := vp.point(l.Target.X, l.Target.Y)
		c, width := edgeContains, 1.0
		if l.Type != models.RelContains {
			c, width = edgeRelated, 1.5
		}
		canvas.Line(x1, y1, x2, y2,
			fmt.Sprintf("stroke:%s;stroke-width:%.1f;stroke-opacity:0.6", cssRGBA(c), width))
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range nodes {
		drawNodeSVG(canvas, n, vp, colors[categoryOf(n)], opts.EntityLabels)
	}
	canvas.Gend()

	drawLegendSVG(canvas, opts, categories, colors)
	canvas.End()
	return nil
}

func drawHeaderSVG(canvas *svg.SVG, opts SVGOptions, nodes, links int) {
	canvas.Rect(0, 0, opts.Width, headerHeight,
		fmt.Sprintf("fill:%s;fill-opacity:0.9", cssRGBA(bgHeader)))
	canvas.Text(20, 26, opts.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:system-ui,sans-serif;font-weight:600", cssRGBA(textPrimary)))
	canvas.Text(opts.Width-20, 26, fmt.Sprintf("%d nodes · %d links", nodes, links),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:system-ui,sans-serif;text-anchor:end", cssRGBA(textSecondary)))
}

func drawNodeSVG(canvas *svg.SVG, n *layout.Node, vp viewport, c color.RGBA, entityLabels bool) {
	x, y := vp.point(n.X, n.Y)
	r := max(2, int(math.Round(n.Radius*vp.scale)))

	if n.IsBlog() {
		canvas.Circle(x, y, r+4, fmt.Sprintf("fill:%s;fill-opacity:0.25;filter:url(#glow)", cssRGBA(c)))
		canvas.Circle(x, y, r, fmt.Sprintf("fill:%s;stroke:#ffffff;stroke-width:2", cssRGBA(c)))
		canvas.Text(x, y+r+14, n.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:system-ui,sans-serif;font-weight:600;text-anchor:middle", cssRGBA(textPrimary)))
		return
	}

	canvas.Circle(x, y, r, fmt.Sprintf("fill:%s;fill-opacity:0.8;stroke:%s;stroke-width:1", cssRGBA(c), cssRGBA(c)))
	if entityLabels {
		canvas.Text(x, y+r+11, n.Label,
			fmt.Sprintf("fill:%s;font-size:10px;font-family:system-ui,sans-serif;text-anchor:middle", cssRGBA(textSecondary)))
	}
}

// legendLimit caps the legend rows
const legendLimit = 10

func drawLegendSVG(canvas *svg.SVG, opts SVGOptions, categories []string, colors map[string]color.RGBA) {
	rows := min(len(categories), legendLimit)
	if rows == 0 {
		return
	}
	boxW, boxH := 160, 34+rows*20
	x := 20
	y := opts.Height - boxH - 20

	canvas.Roundrect(x, y, boxW, boxH, 10, 10,
		fmt.Sprintf("fill:%s;fill-opacity:0.88;stroke:%s;stroke-opacity:0.4", cssRGBA(bgHeader), cssRGBA(textAccent)))
	canvas.Text(x+12, y+20, "Categories",
		fmt.Sprintf("fill:%s;font-size:12px;font-family:system-ui,sans-serif;font-weight:600", cssRGBA(textPrimary)))
	for i, c := range categories[:rows] {
		iy := y + 36 + i*20
		canvas.Circle(x+20, iy, 6, fmt.Sprintf("fill:%s", cssRGBA(colors[c])))
		canvas.Text(x+34, iy+4, c,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:system-ui,sans-serif", cssRGBA(textSecondary)))
	}
}
