package main

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/iafilius/plotcore/internal/layout"
	"github.com/iafilius/plotcore/internal/raster"
	"github.com/iafilius/plotcore/internal/scheme"
)

// frameBudget bounds how long one Engine.Frame trial pass may run
// before yielding, matching plotDrawFigureTrialAll's own per-call time
// budget (§4.7) — kept generous here since the demo has only a
// handful of rows per figure and one frame always finishes well
// within it.
const frameBudget = 8 * time.Millisecond

// render drives one full trial+paint+overlay pass and returns the
// resulting image, sized to width x height pixels.
func (s *demoState) render(width, height int) (image.Image, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	s.layoutMgr.Layout(layout.Rect{MinX: 0, MaxX: float64(width), MinY: 0, MaxY: float64(height)}, s.rc)

	vp := s.layoutMgr.Viewport
	canvas, err := raster.New(width, height, vp.MinX, vp.MaxX, vp.MinY, vp.MaxY, 16, s.scheme)
	if err != nil {
		return nil, fmt.Errorf("plotdemo: new canvas: %w", err)
	}
	s.engine.SetRasterizer(canvas)

	// The demo's dataset is small and its ring buffer keeps advancing
	// HeadN as new rows stream in, so it's simplest to re-trial the
	// whole visible range every redraw rather than resume a stale
	// sketch pool across ticks — a larger dataset would instead call
	// Clean only when the data or scale actually changes and let Frame
	// spread the trial pass across several redraws.
	s.engine.Clean()
	for !s.engine.Frame(timeNow().Add(frameBudget)) {
	}
	s.engine.Paint()

	img, err := canvas.Image()
	if err != nil {
		return nil, fmt.Errorf("plotdemo: decode canvas: %w", err)
	}

	dst, ok := img.(draw.Image)
	if !ok {
		rgba := image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, image.Point{}, draw.Src)
		dst = rgba
	}

	s.drawLegend(dst)
	s.drawDataBox(dst)

	return dst, nil
}

// drawLegend renders one row per busy figure, matching plotLegendDraw's
// swatch-then-label layout — the swatch itself is a short colored line
// segment at the row's left edge for every figure, whatever its Drawing
// style, sized by the font height layout.Manager already measured.
func (s *demoState) drawLegend(dst draw.Image) {
	fh := s.fonts.FontHeight()
	y := s.layoutMgr.LegendY

	for i := range s.axes.Figures {
		f := &s.axes.Figures[i]
		if !f.Busy {
			continue
		}
		col := s.scheme.FigureColor(i, f.Hidden)
		swatchY := int(y) + fh/2
		for dx := 0; dx < fh*2; dx++ {
			dst.Set(int(s.layoutMgr.LegendX)+dx, swatchY, col)
		}
		label := f.Label
		if i == s.layoutMgr.HoverFigure {
			label = "> " + label
		}
		s.fonts.DrawTextShadowed(dst, int(s.layoutMgr.LegendX)+fh*2, int(y)+fh, label, s.scheme.Color(scheme.Text), s.scheme.Color(scheme.Background))
		y += float64(fh)
	}
}

// drawDataBox renders the data box's rows (populated by
// UpdateDataBoxSlice on every mouse move), matching plotDataBoxDraw.
func (s *demoState) drawDataBox(dst draw.Image) {
	if s.layoutMgr.DataBoxMode == layout.DataBoxFree {
		return
	}
	fh := s.fonts.FontHeight()
	y := s.layoutMgr.DataBoxY
	for n := 0; n < s.layoutMgr.DataBoxN; n++ {
		text := s.layoutMgr.DataBoxText(n)
		if text == "" {
			continue
		}
		s.fonts.DrawTextShadowed(dst, int(s.layoutMgr.DataBoxX), int(y)+fh, text, s.scheme.Color(scheme.Text), s.scheme.Color(scheme.Background))
		y += float64(fh)
	}
}
