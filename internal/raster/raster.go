// Package raster implements the concrete Rasterizer collaborator
// (draw.Rasterizer) over github.com/wcharczuk/go-chart/v2's PNG
// renderer, grounded on cmd/iqmviewer/main.go's chart.Style/
// drawing.Color usage. Unlike the teacher, which hands go-chart whole
// series and lets it compute its own axes, internal/draw already owns
// the transform, clipping, and sketch caching — this package only maps
// the resulting normalized viewport-space primitives into the pixel
// rectangle internal/layout assigned this figure and turns them into
// go-chart renderer calls.
package raster

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/iafilius/plotcore/internal/draw"
	"github.com/iafilius/plotcore/internal/scheme"
)

// Canvas adapts one go-chart PNG renderer into draw.Rasterizer. A
// Canvas is scoped to one figure area's pixel rect; the caller creates
// it (cmd/plotdemo's render builds a new one each frame from
// layout.Manager.Viewport).
type Canvas struct {
	renderer chart.Renderer
	scheme   *scheme.Scheme

	// pixMinX..pixMaxY is the pixel rectangle that normalized [0,1]
	// viewport-space (0,0) .. (1,1) maps onto, matching
	// layout.Manager.Viewport for this figure's subplot.
	pixMinX, pixMaxX float64
	pixMinY, pixMaxY float64
	margin           float64

	dotRadius float64
}

// New returns a Canvas backed by a width x height PNG surface, mapping
// normalized viewport-space (0,0)..(1,1) onto the pixel rectangle
// [pixMinX,pixMaxX] x [pixMinY,pixMaxY] — normally the whole surface,
// i.e. (0, float64(width), 0, float64(height)), but narrower when this
// Canvas renders one subplot's share of a larger surface. The Y axis is
// flipped in the mapping (viewport Y increases upward per §4.5's
// scale/offset convention; pixel Y increases downward), and the clip
// test is expanded by margin pixels on every edge — the §4.7 16px
// viewport-clip margin, applied here rather than in internal/draw
// since the pixel geometry is this package's concern. sc resolves each
// Canvas* call's colorN into an actual color, matching plotDrawSketch's
// own scheme_get(ncolor) lookup.
func New(width, height int, pixMinX, pixMaxX, pixMinY, pixMaxY, margin float64, sc *scheme.Scheme) (*Canvas, error) {
	renderer, err := chart.PNG(width, height)
	if err != nil {
		return nil, err
	}
	return &Canvas{
		renderer:  renderer,
		scheme:    sc,
		pixMinX:   pixMinX,
		pixMaxX:   pixMaxX,
		pixMinY:   pixMinY,
		pixMaxY:   pixMaxY,
		margin:    margin,
		dotRadius: 3,
	}, nil
}

// toPixel maps a normalized viewport-space point to this Canvas's
// pixel rectangle, flipping Y since viewport-space is math-oriented
// (Y increases upward, per the axis package's scale/offset convention)
// while pixel surfaces are screen-oriented (Y increases downward).
func (c *Canvas) toPixel(x, y float64) (float64, float64) {
	px := c.pixMinX + x*(c.pixMaxX-c.pixMinX)
	py := c.pixMaxY - y*(c.pixMaxY-c.pixMinY)
	return px, py
}

func (c *Canvas) visible(px, py float64) bool {
	return px >= c.pixMinX-c.margin && px <= c.pixMaxX+c.margin &&
		py >= c.pixMinY-c.margin && py <= c.pixMaxY+c.margin
}

// segmentVisible is a conservative bounding-box clip test in pixel
// space: a segment is discarded only when its whole extent lies
// outside the margined clip rect, matching plotDrawFigureTrial's own
// coarse per-chunk test applied here per segment.
func (c *Canvas) segmentVisible(px0, py0, px1, py1 float64) bool {
	minX, maxX := math.Min(px0, px1), math.Max(px0, px1)
	minY, maxY := math.Min(py0, py1), math.Max(py0, py1)
	return maxX >= c.pixMinX-c.margin && minX <= c.pixMaxX+c.margin &&
		maxY >= c.pixMinY-c.margin && minY <= c.pixMaxY+c.margin
}

// ClearTrial implements draw.Rasterizer; the trial test here is
// stateless, so there's nothing to reset between frames.
func (c *Canvas) ClearTrial() {}

// TrialLine implements draw.Rasterizer. x0, y0, x1, y1 are normalized
// viewport-space coordinates, as internal/draw produces them.
func (c *Canvas) TrialLine(x0, y0, x1, y1 float64) bool {
	px0, py0 := c.toPixel(x0, y0)
	px1, py1 := c.toPixel(x1, y1)
	return c.segmentVisible(px0, py0, px1, py1)
}

// TrialDot implements draw.Rasterizer. x, y are normalized
// viewport-space coordinates.
func (c *Canvas) TrialDot(x, y float64) bool {
	px, py := c.toPixel(x, y)
	return c.visible(px, py)
}

// CanvasLine implements draw.Rasterizer. colorN indexes c.scheme,
// matching plotDrawSketch's ncolor.
func (c *Canvas) CanvasLine(x0, y0, x1, y1, width float64, colorN int) {
	px0, py0 := c.toPixel(x0, y0)
	px1, py1 := c.toPixel(x1, y1)
	c.renderer.SetStrokeColor(c.scheme.Color(colorN))
	c.renderer.SetStrokeWidth(width)
	c.renderer.SetStrokeDashArray(nil)
	c.renderer.MoveTo(int(px0), int(py0))
	c.renderer.LineTo(int(px1), int(py1))
	c.renderer.Stroke()
}

// CanvasDash implements draw.Rasterizer.
func (c *Canvas) CanvasDash(x0, y0, x1, y1, width float64, colorN int) {
	px0, py0 := c.toPixel(x0, y0)
	px1, py1 := c.toPixel(x1, y1)
	c.renderer.SetStrokeColor(c.scheme.Color(colorN))
	c.renderer.SetStrokeWidth(width)
	c.renderer.SetStrokeDashArray([]float64{4, 3})
	c.renderer.MoveTo(int(px0), int(py0))
	c.renderer.LineTo(int(px1), int(py1))
	c.renderer.Stroke()
}

// CanvasDot implements draw.Rasterizer.
func (c *Canvas) CanvasDot(x, y float64, colorN int) {
	px, py := c.toPixel(x, y)
	c.renderer.SetFillColor(c.scheme.Color(colorN))
	c.renderer.Circle(c.dotRadius, int(px), int(py))
	c.renderer.Fill()
}

// WritePNG encodes the accumulated raster surface, for export (the
// teacher's "Export Chart PNG…" menu action) and for cmd/plotdemo's
// fyne.Image refresh.
func (c *Canvas) WritePNG(w io.Writer) error {
	return c.renderer.Save(w)
}

// Image decodes the current raster surface back into an image.Image,
// for handing to fyne's canvas.NewImageFromImage.
func (c *Canvas) Image() (image.Image, error) {
	var buf bytes.Buffer
	if err := c.WritePNG(&buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

var _ draw.Rasterizer = (*Canvas)(nil)
