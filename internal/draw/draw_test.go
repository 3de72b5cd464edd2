package draw

import (
	"testing"
	"time"

	"github.com/iafilius/plotcore/internal/axis"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

// fakeRasterizer always reports every trial primitive visible and
// counts the real paint calls it receives.
type fakeRasterizer struct {
	clears int
	lines  int
	dashes int
	dots   int
}

func (f *fakeRasterizer) ClearTrial()                          { f.clears++ }
func (f *fakeRasterizer) TrialLine(x0, y0, x1, y1 float64) bool { return true }
func (f *fakeRasterizer) TrialDot(x, y float64) bool            { return true }
func (f *fakeRasterizer) CanvasLine(x0, y0, x1, y1, width float64, colorN int) { f.lines++ }
func (f *fakeRasterizer) CanvasDash(x0, y0, x1, y1, width float64, colorN int) { f.dashes++ }
func (f *fakeRasterizer) CanvasDot(x, y float64, colorN int)                  { f.dots++ }

func newTwoFigureSetup(t *testing.T) (*axis.Manager, *Engine, *fakeRasterizer) {
	t.Helper()
	rc := rangecache.New()
	d := store.New(0, 3, 64, false, rc)
	for _, row := range [][]float64{{0, 10, 100}, {1, 20, 200}, {2, 30, 300}} {
		d.Insert(row)
	}

	resolve := func(id int) *store.Dataset {
		if id == 0 {
			return d
		}
		return nil
	}
	m := axis.New(resolve, rc)
	m.Viewport = axis.Viewport{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}

	aX, _ := m.AddAxis(axis.OrientationX, "x")
	aY1, _ := m.AddAxis(axis.OrientationY, "y1")
	aY2, _ := m.AddAxis(axis.OrientationY, "y2")
	if err := m.ScaleManual(aX, 0, 2); err != nil {
		t.Fatalf("ScaleManual aX: %v", err)
	}
	if err := m.ScaleManual(aY1, 10, 30); err != nil {
		t.Fatalf("ScaleManual aY1: %v", err)
	}
	if err := m.ScaleManual(aY2, 100, 300); err != nil {
		t.Fatalf("ScaleManual aY2: %v", err)
	}

	if _, err := m.FigureAdd(0, 0, 1, aX, aY1, "f1"); err != nil {
		t.Fatalf("FigureAdd f1: %v", err)
	}
	if _, err := m.FigureAdd(0, 0, 2, aX, aY2, "f2"); err != nil {
		t.Fatalf("FigureAdd f2: %v", err)
	}

	raster := &fakeRasterizer{}
	e := New(m, rc, raster)
	return m, e, raster
}

// TestFrameCompletesAndPaints checks that a generous deadline finishes
// a pass in one call, that completion promotes the finished pass into
// the todraw list immediately (matching plotDrawFigureTrialAll's
// plotSketchGarbage call at the fN < 0 branch, before any paint runs),
// and that Paint flushes exactly that pass without touching the pool
// itself.
func TestFrameCompletesAndPaints(t *testing.T) {
	_, e, raster := newTwoFigureSetup(t)
	future := time.Now().Add(time.Hour)

	if !e.Frame(future) {
		t.Fatal("Frame did not complete the pass with a generous deadline")
	}
	if e.todrawHead < 0 {
		t.Fatal("Frame's completion did not promote the finished pass into todraw")
	}

	e.Paint()

	// Two figures, three points each => two segments each => two
	// CanvasLine calls each.
	if raster.lines != 4 {
		t.Fatalf("CanvasLine calls = %d, want 4", raster.lines)
	}

	raster.lines = 0
	e.Paint() // todraw is unchanged until the next Frame completes
	if raster.lines != 4 {
		t.Fatalf("second Paint of the same pass: CanvasLine calls = %d, want 4", raster.lines)
	}
}

// TestFrameResumesAcrossInterruption checks invariant 8/scenario E: an
// exhausted deadline interrupts the pass between figures without
// losing or duplicating either figure's cursor state, and a later call
// with a generous deadline finishes it and produces the same output a
// single uninterrupted pass would have.
func TestFrameResumesAcrossInterruption(t *testing.T) {
	m, e, _ := newTwoFigureSetup(t)
	past := time.Now().Add(-time.Hour)

	if e.Frame(past) {
		t.Fatal("Frame should not complete the pass with an exhausted deadline")
	}

	finished, started := 0, 0
	for i := range m.Figures {
		if !m.Figures[i].Busy {
			continue
		}
		switch e.figures[i].sketch {
		case SketchFinished:
			finished++
		case SketchStarted:
			started++
		default:
			t.Fatalf("figure %d left in unexpected state %v", i, e.figures[i].sketch)
		}
	}
	if finished != 1 || started != 1 {
		t.Fatalf("expected exactly one figure finished and one still pending, got finished=%d started=%d", finished, started)
	}

	future := time.Now().Add(time.Hour)
	if !e.Frame(future) {
		t.Fatal("Frame did not complete the resumed pass")
	}
	for i := range m.Figures {
		if !m.Figures[i].Busy {
			continue
		}
		if e.figures[i].sketch != SketchFinished {
			t.Fatalf("figure %d not finished after resuming: %v", i, e.figures[i].sketch)
		}
	}
}

// TestCleanResetsPool checks that Clean returns every sketch chunk to
// the free list and clears in-progress state, matching plotSketchClean.
func TestCleanResetsPool(t *testing.T) {
	_, e, _ := newTwoFigureSetup(t)
	future := time.Now().Add(time.Hour)
	if !e.Frame(future) {
		t.Fatal("Frame did not complete")
	}

	e.Clean()

	if e.inProgress {
		t.Fatal("Clean did not clear inProgress")
	}
	if e.currentHead != -1 || e.todrawHead != -1 {
		t.Fatal("Clean did not clear the current/todraw lists")
	}
	freeCount := 0
	for hN := e.freeHead; hN >= 0; hN = e.sketches[hN].linked {
		freeCount++
	}
	if freeCount != len(e.sketches) {
		t.Fatalf("free list has %d chunks, want %d", freeCount, len(e.sketches))
	}
}
