package axis

import (
	"testing"

	"github.com/iafilius/plotcore/internal/derive"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

const eps = 1e-9

func approxEq(a, b float64) bool {
	d := a - b
	return d < eps && d > -eps
}

// TestManualScaleMapsEndpoints checks invariant 6.
func TestManualScaleMapsEndpoints(t *testing.T) {
	rc := rangecache.New()
	m := New(func(int) *store.Dataset { return nil }, rc)
	aN, _ := m.AddAxis(OrientationX, "x")

	if err := m.ScaleManual(aN, 10, 20); err != nil {
		t.Fatalf("ScaleManual: %v", err)
	}
	if got := m.AxisConv(aN, 10); !approxEq(got, 0) {
		t.Fatalf("AxisConv(min) = %v, want 0", got)
	}
	if got := m.AxisConv(aN, 20); !approxEq(got, 1) {
		t.Fatalf("AxisConv(max) = %v, want 1", got)
	}
}

// TestSlaveComposition checks invariant 7: axisConv(a, v) for a slaved
// to b with (sA, oA) equals axisConv(b, v*sA + oA).
func TestSlaveComposition(t *testing.T) {
	rc := rangecache.New()
	m := New(func(int) *store.Dataset { return nil }, rc)
	bN, _ := m.AddAxis(OrientationX, "b")
	aN, _ := m.AddAxis(OrientationX, "a")

	_ = m.ScaleManual(bN, 0, 10)
	if err := m.Slave(aN, bN, 2, 1, SlaveEnable); err != nil {
		t.Fatalf("Slave enable: %v", err)
	}

	v := 3.0
	got := m.AxisConv(aN, v)
	want := m.AxisConv(bN, v*2+1)
	if !approxEq(got, want) {
		t.Fatalf("AxisConv(a, v) = %v, want %v", got, want)
	}
}

// TestSlaveBakeOut covers scenario F: enabling slave a->b with (2, 1)
// then disabling should leave a's independent (scale, offset) equal to
// (2*sB, 1*sB + oB).
func TestSlaveBakeOut(t *testing.T) {
	rc := rangecache.New()
	m := New(func(int) *store.Dataset { return nil }, rc)
	bN, _ := m.AddAxis(OrientationX, "b")
	aN, _ := m.AddAxis(OrientationX, "a")

	_ = m.ScaleManual(bN, 0, 10) // sB = 0.1, oB = 0
	sB, oB := m.Axes[bN].Scale, m.Axes[bN].Offset

	if err := m.Slave(aN, bN, 2, 1, SlaveEnable); err != nil {
		t.Fatalf("Slave enable: %v", err)
	}
	if err := m.Slave(aN, bN, 0, 0, SlaveDisable); err != nil {
		t.Fatalf("Slave disable: %v", err)
	}

	if !approxEq(m.Axes[aN].Scale, 2*sB) {
		t.Fatalf("a.Scale = %v, want %v", m.Axes[aN].Scale, 2*sB)
	}
	if !approxEq(m.Axes[aN].Offset, 1*sB+oB) {
		t.Fatalf("a.Offset = %v, want %v", m.Axes[aN].Offset, 1*sB+oB)
	}
}

// TestFigureRemoveRetiresUnreferencedAxis checks invariant 9's axis
// half.
func TestFigureRemoveRetiresUnreferencedAxis(t *testing.T) {
	rc := rangecache.New()
	m := New(func(int) *store.Dataset { return nil }, rc)
	xN, _ := m.AddAxis(OrientationX, "x")
	yN, _ := m.AddAxis(OrientationY, "y")
	fN, err := m.FigureAdd(0, 0, 1, xN, yN, "f")
	if err != nil {
		t.Fatalf("FigureAdd: %v", err)
	}

	m.FigureRemove(fN)

	if m.Axes[xN].Busy || m.Axes[yN].Busy {
		t.Fatal("expected both axes retired after the only figure referencing them was removed")
	}
}

// TestFigureRemoveSweepsDerivedSlot checks invariant 9's derived-slot
// half: removing the only figure reading a SCALE slot frees that slot
// via the pipeline's own garbage sweep, without any caller reaching
// into internal/derive directly.
func TestFigureRemoveSweepsDerivedSlot(t *testing.T) {
	d, rc := newXYDataset([][2]float64{{0, 1}, {1, 2}})
	resolve := func(int) *store.Dataset { return d }
	m := New(resolve, rc)
	aX, _ := m.AddAxis(OrientationX, "x")
	aY, _ := m.AddAxis(OrientationY, "y")
	fN, err := m.FigureAdd(0, 0, 1, aX, aY, "f")
	if err != nil {
		t.Fatalf("FigureAdd: %v", err)
	}

	m.SubtractScale(fN, OrientationY, 2, 10)
	slotCol := m.Figures[fN].ColumnY
	p := m.pipelines[0]
	if p == nil {
		t.Fatal("expected SubtractScale to build a pipeline for dataset 0")
	}
	slotIdx := slotCol - d.ColumnN
	if p.Kind(slotIdx) == derive.Free {
		t.Fatal("expected the SCALE slot allocated, not free")
	}

	m.FigureRemove(fN)

	if p.Kind(slotIdx) != derive.Free {
		t.Fatalf("expected FigureRemove's garbage sweep to free slot %d, still has kind %v", slotIdx, p.Kind(slotIdx))
	}
}

// TestScaleAutoCondUsesOnlyVisibleRows covers scenario D: two figures
// share X axis a; after zooming a to the dataset's second half, a
// conditional auto-scale of the Y2 axis only considers rows visible on
// a.
func TestScaleAutoCondUsesOnlyVisibleRows(t *testing.T) {
	rc := rangecache.New()
	d := store.New(0, 2, 64, false, rc)
	for _, row := range [][]float64{{0, -1}, {1, -0.3}, {2, 0.3}, {3, 1}} {
		d.Insert(row)
	}

	resolve := func(id int) *store.Dataset {
		if id == 0 {
			return d
		}
		return nil
	}
	m := New(resolve, rc)
	m.Viewport = Viewport{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	aX, _ := m.AddAxis(OrientationX, "x")
	aY2, _ := m.AddAxis(OrientationY, "y2")
	if _, err := m.FigureAdd(0, 0, 1, aX, aY2, "f2"); err != nil {
		t.Fatalf("FigureAdd: %v", err)
	}

	// Restrict the X axis's normalized viewport to [2, 3] — the
	// dataset's second half.
	if err := m.ScaleManual(aX, 2, 3); err != nil {
		t.Fatalf("ScaleManual: %v", err)
	}

	if err := m.ScaleAutoCond(aY2, aX); err != nil {
		t.Fatalf("ScaleAutoCond: %v", err)
	}

	// Only rows with X in [2,3] (Y2 = 0.3, 1) should have contributed.
	// ScaleAutoCond widens the [0,1] viewport by MarkInset on each edge
	// and maps that widened span onto [0,1], so the data extremes land
	// MarkInset/(1+2*MarkInset) inside each edge. Y is flipped relative
	// to X: the data maximum (1) lands near the viewport's low edge and
	// the data minimum (0.3) lands near the high edge.
	edge := m.MarkInset / (1 + 2*m.MarkInset)
	if got := m.AxisConv(aY2, 1); !approxEq(got, edge) {
		t.Fatalf("AxisConv(aY2, 1) = %v, want %v", got, edge)
	}
	if got := m.AxisConv(aY2, 0.3); !approxEq(got, 1-edge) {
		t.Fatalf("AxisConv(aY2, 0.3) = %v, want %v", got, 1-edge)
	}
}
