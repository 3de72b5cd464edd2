// Package scheme implements the Scheme collaborator (§6): a fixed
// palette of colors referenced by small integer index (0 = background,
// 1..8 = figure series colors, 9 = hidden/muted, 10 = text), grounded
// on original_source/src/plot.c's scheme_t/plot_figure[8] palette
// layout and cmd/iqmviewer/main.go's fixed per-series go-chart colors.
package scheme

import "github.com/wcharczuk/go-chart/v2/drawing"

const (
	Background = 0
	Figure1    = 1
	Figure2    = 2
	Figure3    = 3
	Figure4    = 4
	Figure5    = 5
	Figure6    = 6
	Figure7    = 7
	Figure8    = 8
	Hidden     = 9
	Text       = 10

	// paletteLen is the number of indices a Scheme defines, matching
	// plot.c's palette[0..10].
	paletteLen = 11
)

// Scheme is a fixed 11-entry color palette.
type Scheme struct {
	colors [paletteLen]drawing.Color
}

// Dark returns the default dark palette, grounded on
// cmd/iqmviewer/main.go's darkTheme plus its ColorAlternateGray/
// ColorBlue/ColorGreen/ColorRed series-color choices, extended to
// eight figure slots.
func Dark() *Scheme {
	return &Scheme{colors: [paletteLen]drawing.Color{
		Background: drawing.Color{R: 30, G: 30, B: 30, A: 255},
		Figure1:    drawing.Color{R: 60, G: 130, B: 240, A: 255},  // ColorBlue-ish
		Figure2:    drawing.Color{R: 60, G: 190, B: 90, A: 255},   // ColorGreen-ish
		Figure3:    drawing.Color{R: 200, G: 60, B: 60, A: 255},   // ColorRed-ish
		Figure4:    drawing.Color{R: 220, G: 180, B: 40, A: 255},
		Figure5:    drawing.Color{R: 170, G: 100, B: 220, A: 255},
		Figure6:    drawing.Color{R: 60, G: 200, B: 200, A: 255},
		Figure7:    drawing.Color{R: 230, G: 140, B: 60, A: 255},
		Figure8:    drawing.Color{R: 150, G: 150, B: 150, A: 255}, // ColorAlternateGray-ish
		Hidden:     drawing.Color{R: 100, G: 100, B: 100, A: 120},
		Text:       drawing.Color{R: 220, G: 220, B: 220, A: 255},
	}}
}

// Color returns the color at index n, or Text's color if n is out of
// range — a lookup on a bad index is a caller bug, not something a
// plotting frame should crash over.
func (s *Scheme) Color(n int) drawing.Color {
	if n < 0 || n >= paletteLen {
		return s.colors[Text]
	}
	return s.colors[n]
}

// FigureColor returns the palette slot for figure index fN — Figure1
// through Figure8 cycling by fN % 8 — or Hidden if hidden is set,
// matching plotLegendDraw/plotMarkDraw's `ncolor = hidden ? 9 : fN + 1`
// rule generalized past eight figures.
func (s *Scheme) FigureColor(fN int, hidden bool) drawing.Color {
	if hidden {
		return s.colors[Hidden]
	}
	return s.colors[Figure1+(fN%8)]
}
