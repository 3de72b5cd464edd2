package layout

import (
	"testing"

	"github.com/iafilius/plotcore/internal/axis"
	"github.com/iafilius/plotcore/internal/config"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

// testLayoutCfg gives every test a fixed, easy-to-hand-check margin
// arithmetic: axisBox=18, labelBox=14, margin=8.
func testLayoutCfg() config.Layout {
	return config.Layout{AxisBoxPx: 18, LabelBoxPx: 14, MarkWidthPx: 6, MarginPx: 8}
}

// fixedText is a stub TextMeasurer whose glyphs are all a constant
// pixel width, so the layout arithmetic is easy to check by hand.
type fixedText struct {
	glyphW, height int
}

func (f fixedText) SizeUTF8(text string) (int, int) {
	return len(text) * f.glyphW, f.height
}

func (f fixedText) FontHeight() int {
	return f.height
}

func newManagerWithOneFigure(t *testing.T) (*axis.Manager, *Manager) {
	t.Helper()
	rc := rangecache.New()
	d := store.New(0, 2, 64, false, rc)
	for _, row := range [][]float64{{0, 10}, {1, 20}, {2, 30}} {
		d.Insert(row)
	}
	resolve := func(id int) *store.Dataset {
		if id == 0 {
			return d
		}
		return nil
	}
	am := axis.New(resolve, rc)
	aX, _ := am.AddAxis(axis.OrientationX, "x")
	aY, _ := am.AddAxis(axis.OrientationY, "y")
	if err := am.ScaleManual(aX, 0, 2); err != nil {
		t.Fatalf("ScaleManual aX: %v", err)
	}
	if err := am.ScaleManual(aY, 10, 30); err != nil {
		t.Fatalf("ScaleManual aY: %v", err)
	}
	if _, err := am.FigureAdd(0, 0, 1, aX, aY, "series-a"); err != nil {
		t.Fatalf("FigureAdd: %v", err)
	}

	lm := New(am, fixedText{glyphW: 6, height: 14}, testLayoutCfg())
	return am, lm
}

func TestLayoutShrinksViewportByAxisMargins(t *testing.T) {
	_, lm := newManagerWithOneFigure(t)
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, nil)

	// One busy X axis and one busy Y axis, both labeled (not compact),
	// so each contributes axisBox+labelBox = 18+14 = 32px.
	wantMargin := 32.0
	if lm.Viewport.MinX != wantMargin+8 {
		t.Fatalf("Viewport.MinX = %v, want %v", lm.Viewport.MinX, wantMargin+8)
	}
	if lm.Viewport.MaxY != 300-wantMargin-8 {
		t.Fatalf("Viewport.MaxY = %v, want %v", lm.Viewport.MaxY, 300-wantMargin-8)
	}
	if lm.Viewport.MaxX != 400-8 {
		t.Fatalf("Viewport.MaxX = %v, want %v", lm.Viewport.MaxX, 400-8.0)
	}
	if lm.Viewport.MinY != 8 {
		t.Fatalf("Viewport.MinY = %v, want %v", lm.Viewport.MinY, 8.0)
	}
}

func TestLayoutCompactAxisSkipsLabelBox(t *testing.T) {
	rc := rangecache.New()
	d := store.New(0, 2, 64, false, rc)
	d.Insert([]float64{0, 10})
	resolve := func(id int) *store.Dataset { return d }
	am := axis.New(resolve, rc)
	aX, _ := am.AddAxis(axis.OrientationX, "") // empty label => compact
	aY, _ := am.AddAxis(axis.OrientationY, "y")
	if err := am.ScaleManual(aX, 0, 1); err != nil {
		t.Fatalf("ScaleManual aX: %v", err)
	}
	if err := am.ScaleManual(aY, 0, 1); err != nil {
		t.Fatalf("ScaleManual aY: %v", err)
	}
	if _, err := am.FigureAdd(0, 0, 1, aX, aY, "f"); err != nil {
		t.Fatalf("FigureAdd: %v", err)
	}

	lm := New(am, fixedText{glyphW: 6, height: 14}, testLayoutCfg())
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, nil)

	// compact X axis contributes only axisBox = 18px, not +labelBox.
	wantXMargin := 18.0
	if lm.Viewport.MaxY != 300-wantXMargin-8 {
		t.Fatalf("Viewport.MaxY = %v, want %v (compact X axis should skip its label box)", lm.Viewport.MaxY, 300-wantXMargin-8)
	}
}

func TestLegendFigureAtHitsExactlyOneRow(t *testing.T) {
	_, lm := newManagerWithOneFigure(t)
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, nil)

	fh := 14.0
	// Inside the one legend row.
	fN := lm.LegendFigureAt(lm.LegendX+fh*2+1, lm.LegendY+1)
	if fN != 0 {
		t.Fatalf("LegendFigureAt inside the row = %d, want 0", fN)
	}
	// Well below every row.
	if fN := lm.LegendFigureAt(lm.LegendX+fh*2+1, lm.LegendY+1000); fN != -1 {
		t.Fatalf("LegendFigureAt below all rows = %d, want -1", fN)
	}
}

func TestDataBoxSliceModeFormatsSelectedRow(t *testing.T) {
	am, lm := newManagerWithOneFigure(t)
	rc := rangecache.New()
	lm.DataBoxMode = DataBoxSlice
	lm.UpdateDataBoxSlice(rc, 1, 0, false)
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, nil)

	text := lm.DataBoxText(0)
	if text == "" {
		t.Fatal("DataBoxText(0) is empty after UpdateDataBoxSlice found a row")
	}
	if lm.DataBoxN != 1 {
		t.Fatalf("DataBoxN = %d, want 1", lm.DataBoxN)
	}

	_ = am
}

func TestDataBoxPolyfitModeAddsStdRow(t *testing.T) {
	_, lm := newManagerWithOneFigure(t)
	lm.DataBoxMode = DataBoxPolyfit
	lm.UpdateDataBoxPolyfit([]float64{1.5, -2.25}, 0.01)

	if lm.DataBoxText(0) == "" || lm.DataBoxText(1) == "" {
		t.Fatal("coefficient rows should be populated")
	}
	if lm.DataBoxText(2) == "" {
		t.Fatal("trailing STD row should be populated")
	}
	if lm.DataBoxText(3) != "" {
		t.Fatal("rows past coefficients+STD should stay empty")
	}
}

func TestLayoutMarksSpacedAcrossViewport(t *testing.T) {
	am, lm := newManagerWithOneFigure(t)
	lm.MarkOn = true
	rc := rangecache.New()
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, rc)

	if lm.MarkN < 1 {
		t.Fatalf("MarkN = %d, want at least 1", lm.MarkN)
	}
	if _, _, ok := lm.MarkPoint(0, 0); !ok {
		t.Fatal("MarkPoint(0, 0) should be valid for a figure with marks placed")
	}
	if _, _, ok := lm.MarkPoint(0, lm.MarkN); ok {
		t.Fatal("MarkPoint at MarkN should be out of range")
	}

	_ = am
}

func TestLayoutMarksOffWhenDisabled(t *testing.T) {
	_, lm := newManagerWithOneFigure(t)
	lm.MarkOn = false
	lm.Layout(Rect{MinX: 0, MaxX: 400, MinY: 0, MaxY: 300}, nil)

	if lm.MarkN != 0 {
		t.Fatalf("MarkN = %d, want 0 when marks are disabled", lm.MarkN)
	}
}
