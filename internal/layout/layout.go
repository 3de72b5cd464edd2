// Package layout implements the layout/legend/data-box/mark overlay
// component (H): it turns a pixel-space screen rectangle and the axis
// manager's busy axes/figures into a plotting viewport rectangle, a
// legend box, an optional data box, and per-figure sample markers,
// grounded on plot.c's plotLayout/plotLegendLayout/plotDataBoxLayout/
// plotMarkLayout family.
package layout

import (
	"fmt"
	"math"

	"github.com/iafilius/plotcore/internal/axis"
	"github.com/iafilius/plotcore/internal/config"
	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/slice"
)

// Mode selects the data box's content, matching DATA_BOX_{FREE,SLICE,POLYFIT}.
type Mode int

const (
	DataBoxFree Mode = iota
	DataBoxSlice
	DataBoxPolyfit
)

// Rect is a pixel-space rectangle, screen or viewport depending on
// context.
type Rect struct {
	MinX, MaxX, MinY, MaxY float64
}

// TextMeasurer is the font-measurement half of the §6 font-renderer
// collaborator; internal/fonttext.Renderer implements it.
type TextMeasurer interface {
	SizeUTF8(text string) (width, height int)
	FontHeight() int
}

// Manager owns the pixel layout derived from one axis.Manager's busy
// axes and figures. It does not mutate axis.Manager.Viewport, which is
// a separate normalized [0,1] sub-rectangle used for subplot stacking
// (§4.5) — Manager's own Viewport is a pixel rectangle handed to the
// rasterizer collaborator.
type Manager struct {
	axes *axis.Manager
	text TextMeasurer
	cfg  config.Layout

	// Precision is the fprecision option controlling data-box text
	// formatting's significant-digit count.
	Precision int

	axisPos [limits.AxisMax]float64

	Screen   Rect
	Viewport Rect

	LegendX, LegendY, LegendSizeX float64
	LegendN                       int
	HoverFigure                   int

	DataBoxMode              Mode
	DataBoxX, DataBoxY       float64
	DataBoxSizeX             float64
	DataBoxN                 int
	dataBoxText              [limits.DataBoxMax]string
	HoverDataBox             bool

	MarkOn bool
	MarkN  int
	marks  [limits.FigureMax][limits.MarkMax][2]float64
	markRC *rangecache.Cache
}

// New returns a Manager bound to axes and using text for measurement,
// with margin/box sizes from cfg (internal/config's Layout option
// group — plotFontLayout's derived axis_box/label_box become fixed
// options here rather than being recomputed from the font every call).
func New(axes *axis.Manager, text TextMeasurer, cfg config.Layout) *Manager {
	return &Manager{axes: axes, text: text, cfg: cfg, Precision: int(config.DefaultFPrecision), HoverFigure: -1}
}

// AxisPos returns the pixel offset assigned to aN by the last Layout
// call — the position along the axis's own margin band where its tick
// labels are drawn, matching axis[aN]._pos.
func (m *Manager) AxisPos(aN int) float64 {
	return m.axisPos[aN]
}

// Layout recomputes the viewport rectangle, legend, data box, and (if
// enabled and not already populated) sample marks from screen,
// matching plotLayout. Busy X axes stack a margin band along the
// bottom, busy Y axes along the left; an axis with an empty label is
// "compact" and skips the extra label_box allowance, matching
// plotLayout's own label[0]==0 check.
func (m *Manager) Layout(screen Rect, rc *rangecache.Cache) {
	m.Screen = screen
	m.markRC = rc

	posX, posY := 0.0, 0.0
	for aN := range m.axes.Axes {
		a := &m.axes.Axes[aN]
		if !a.Busy {
			continue
		}
		compact := a.Label == ""
		switch a.Orientation {
		case axis.OrientationX:
			m.axisPos[aN] = posX
			posX += m.cfg.AxisBoxPx
			if !compact {
				posX += m.cfg.LabelBoxPx
			}
		case axis.OrientationY:
			m.axisPos[aN] = posY
			posY += m.cfg.AxisBoxPx
			if !compact {
				posY += m.cfg.LabelBoxPx
			}
		}
	}

	m.Viewport = Rect{
		MinX: screen.MinX + posY + m.cfg.MarginPx,
		MaxX: screen.MaxX - m.cfg.MarginPx,
		MinY: screen.MinY + m.cfg.MarginPx,
		MaxY: screen.MaxY - posX - m.cfg.MarginPx,
	}

	m.layoutLegend()

	if m.DataBoxMode != DataBoxFree {
		m.layoutDataBox()
	}

	if m.MarkOn {
		if m.MarkN == 0 {
			m.layoutMarks()
		}
	} else {
		m.MarkN = 0
	}
}

func (m *Manager) layoutLegend() {
	sizeMax, sizeN := 0, 0
	for i := range m.axes.Figures {
		f := &m.axes.Figures[i]
		if !f.Busy {
			continue
		}
		w, _ := m.text.SizeUTF8(f.Label)
		if w > sizeMax {
			sizeMax = w
		}
		sizeN++
	}

	fh := float64(m.text.FontHeight())
	longM, _ := m.text.SizeUTF8("M")

	m.LegendSizeX = float64(sizeMax) + float64(longM)*2
	m.LegendN = sizeN

	if m.LegendX > m.Viewport.MaxX-(float64(sizeMax)+fh*3) {
		m.LegendX = m.Viewport.MaxX - (float64(sizeMax) + fh*3)
	}
	if m.LegendY > m.Viewport.MaxY-fh*float64(sizeN+1) {
		m.LegendY = m.Viewport.MaxY - fh*float64(sizeN+1)
	}
	if m.LegendX < m.Viewport.MinX+fh {
		m.LegendX = m.Viewport.MinX + fh
	}
	if m.LegendY < m.Viewport.MinY+fh {
		m.LegendY = m.Viewport.MinY + fh
	}
}

func (m *Manager) layoutDataBox() {
	sizeMax, sizeN := 0, 0

	switch m.DataBoxMode {
	case DataBoxSlice:
		for i := range m.axes.Figures {
			if !m.axes.Figures[i].Busy {
				continue
			}
			w, _ := m.text.SizeUTF8(m.dataBoxText[i])
			if w > sizeMax {
				sizeMax = w
			}
			sizeN++
		}
	case DataBoxPolyfit:
		for i := range m.dataBoxText {
			if m.dataBoxText[i] == "" {
				continue
			}
			w, _ := m.text.SizeUTF8(m.dataBoxText[i])
			if w > sizeMax {
				sizeMax = w
			}
			sizeN++
		}
	}

	fh := float64(m.text.FontHeight())

	m.DataBoxSizeX = float64(sizeMax)
	m.DataBoxN = sizeN

	if m.DataBoxX > m.Viewport.MaxX-(float64(sizeMax)+fh) {
		m.DataBoxX = m.Viewport.MaxX - (float64(sizeMax) + fh)
	}
	if m.DataBoxY > m.Viewport.MaxY-fh*float64(sizeN+1) {
		m.DataBoxY = m.Viewport.MaxY - fh*float64(sizeN+1)
	}
	if m.DataBoxX < m.Viewport.MinX+fh {
		m.DataBoxX = m.Viewport.MinX + fh
	}
	if m.DataBoxY < m.Viewport.MinY+fh {
		m.DataBoxY = m.Viewport.MinY + fh
	}
}

// LegendFigureAt returns the figure index whose legend row contains
// (curX, curY), or -1, matching plotLegendGetByClick.
func (m *Manager) LegendFigureAt(curX, curY float64) int {
	fh := float64(m.text.FontHeight())
	legY := m.LegendY
	rN := -1

	for i := range m.axes.Figures {
		if !m.axes.Figures[i].Busy {
			continue
		}
		relX := curX - (m.LegendX + fh*2)
		relY := curY - legY
		if relX > 0 && relX < m.LegendSizeX && relY > 0 && relY < fh {
			rN = i
			break
		}
		legY += fh
	}

	m.HoverFigure = rN
	return rN
}

// LegendBoxAt reports whether (curX, curY) falls within the legend's
// color-swatch column, matching plotLegendBoxGetByClick.
func (m *Manager) LegendBoxAt(curX, curY float64) bool {
	fh := float64(m.text.FontHeight())
	x := curX - m.LegendX
	y := curY - m.LegendY
	return x > 0 && x < fh*2 && y > 0 && y < fh*float64(m.LegendN)
}

// DataBoxAt reports whether (curX, curY) falls within the data box,
// matching plotDataBoxGetByClick.
func (m *Manager) DataBoxAt(curX, curY float64) bool {
	x := curX - m.DataBoxX
	y := curY - m.DataBoxY
	hit := x > 0 && x < m.DataBoxSizeX && y > 0 && y < float64(m.text.FontHeight())*float64(m.DataBoxN)
	m.HoverDataBox = hit
	return hit
}

// DataBoxText returns the row text at index n, for a draw collaborator
// to render.
func (m *Manager) DataBoxText(n int) string {
	if n < 0 || n >= len(m.dataBoxText) {
		return ""
	}
	return m.dataBoxText[n]
}

// formatValue matches plotDataBoxTextFmt: fixed-point with a
// magnitude-adaptive number of decimals when the value's order of
// magnitude fits within precision significant digits, scientific
// notation otherwise.
func formatValue(val float64, precision int) string {
	fexp := 1
	if val != 0 {
		fexp += int(math.Floor(math.Log10(math.Abs(val))))
	}

	if fexp >= -2 && fexp < precision {
		if fexp < 1 {
			fexp = 1
		}
		return fmt.Sprintf("% .*f ", precision-fexp, val)
	}
	return fmt.Sprintf("% .*E ", precision-1, val)
}

func valueAt(row []float64, idN int64, column int) float64 {
	if column < 0 {
		return float64(idN)
	}
	return row[column]
}

// UpdateDataBoxSlice fills the data box's per-figure text from the row
// nearest to selectX on each busy figure's dataset, or — when rangeMode
// is set — the delta between the rows nearest selectX and selectX2,
// matching plotDataBoxSlice/plotDataBoxRange (the "or their delta when
// in range mode" clause of §4.8). It does not itself call Layout;
// callers should call Layout afterward so the box sizes to the new
// text.
func (m *Manager) UpdateDataBoxSlice(rc *rangecache.Cache, selectX, selectX2 float64, rangeMode bool) {
	for i := range m.dataBoxText {
		m.dataBoxText[i] = ""
	}

	for i := range m.axes.Figures {
		f := &m.axes.Figures[i]
		if !f.Busy {
			continue
		}
		d := m.axes.Resolve(f.DatasetID)
		if d == nil {
			continue
		}

		res := slice.Get(d, rc, f.ColumnX, selectX)
		if !res.Found {
			continue
		}
		x := valueAt(res.Row, res.LogicalID, f.ColumnX)
		y := valueAt(res.Row, res.LogicalID, f.ColumnY)

		if rangeMode {
			res2 := slice.Get(d, rc, f.ColumnX, selectX2)
			if !res2.Found {
				continue
			}
			x2 := valueAt(res2.Row, res2.LogicalID, f.ColumnX)
			y2 := valueAt(res2.Row, res2.LogicalID, f.ColumnY)
			m.dataBoxText[i] = f.Label + ": " + formatValue(x2-x, m.Precision) + formatValue(y2-y, m.Precision)
		} else {
			m.dataBoxText[i] = f.Label + ": " + formatValue(x, m.Precision) + formatValue(y, m.Precision)
		}
	}
}

// UpdateDataBoxPolyfit fills the data box's rows from a polyfit
// result — coefficients in scientific notation except the leading
// (constant) term, then a trailing standard-deviation row — matching
// plotFigureSubtractPolyfit's data_box_text assembly.
func (m *Manager) UpdateDataBoxPolyfit(coefs []float64, stdev float64) {
	for i := range m.dataBoxText {
		m.dataBoxText[i] = ""
	}

	for n, b := range coefs {
		if n >= len(m.dataBoxText) {
			break
		}
		if n == 0 {
			m.dataBoxText[n] = fmt.Sprintf(" [%d] = ", n) + formatValue(b, m.Precision)
		} else {
			m.dataBoxText[n] = fmt.Sprintf(" [%d] = % .*E ", n, m.Precision-1, b)
		}
	}

	if stdRow := len(coefs); stdRow < len(m.dataBoxText) {
		m.dataBoxText[stdRow] = " STD = " + formatValue(stdev, m.Precision)
	}
}

// layoutMarks places mark_N samples per busy, non-hidden figure evenly
// spaced in normalized X across the viewport, matching plotMarkLayout:
// mark_N is picked so the total marker count across all such figures
// is roughly viewport width / (mark size * sqrt(fig_N)), then each
// figure's marks are offset by its index among them so multiple
// figures don't stack their markers on the same X.
func (m *Manager) layoutMarks() {
	figN := 0
	for i := range m.axes.Figures {
		f := &m.axes.Figures[i]
		if f.Busy && !f.Hidden {
			figN++
		}
	}
	if figN == 0 {
		m.MarkN = 0
		return
	}

	bH := m.cfg.MarkWidthPx * math.Sqrt(float64(figN)) * 4

	markN := int((m.Viewport.MaxX - m.Viewport.MinX) / bH)
	if markN < 1 {
		markN = 1
	}
	if markN > limits.MarkMax {
		markN = limits.MarkMax
	}
	m.MarkN = markN

	bH = 1. / float64(markN*figN)

	fN1 := 0
	for i := range m.axes.Figures {
		f := &m.axes.Figures[i]
		if !f.Busy || f.Hidden {
			continue
		}

		d := m.axes.Resolve(f.DatasetID)
		scale, offset := m.axes.Transform(f.AxisX)

		for n := 0; n < markN; n++ {
			fx := (float64(n*figN+fN1) * bH)
			fx = (fx - offset) / scale

			if d == nil {
				m.marks[i][n] = [2]float64{0, 0}
				continue
			}

			if m.markRC == nil {
				m.marks[i][n] = [2]float64{0, 0}
				continue
			}
			res := slice.Get(d, m.markRC, f.ColumnX, fx)
			if !res.Found {
				m.marks[i][n] = [2]float64{0, 0}
				continue
			}
			x := valueAt(res.Row, res.LogicalID, f.ColumnX)
			y := valueAt(res.Row, res.LogicalID, f.ColumnY)
			m.marks[i][n] = [2]float64{x, y}
		}
		fN1++
	}
}

// RefreshMarks recomputes sample markers using rc for the nearest-value
// lookups, unconditionally (unlike Layout, which only computes marks
// once per call when MarkN is still zero) — call this after a dataset
// or axis scale change invalidates the previous placement.
func (m *Manager) RefreshMarks(rc *rangecache.Cache) {
	m.MarkN = 0
	m.markRC = rc
	m.layoutMarks()
}

// MarkPoint returns figure fN's nth marker in data space, and whether
// n is within the figure's current mark count.
func (m *Manager) MarkPoint(fN, n int) (x, y float64, ok bool) {
	if n < 0 || n >= m.MarkN {
		return 0, 0, false
	}
	p := m.marks[fN][n]
	return p[0], p[1], true
}
