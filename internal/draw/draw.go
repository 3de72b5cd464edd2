// Package draw implements the progressive, time-budgeted draw engine
// (component G): a trial pass that walks each visible figure's rows in
// logical-id order, asks the rasterizer collaborator whether each
// segment would be visible, and caches the visible ones into a rotating
// pool of fixed-size sketch chunks for a later paint pass to flush.
package draw

import (
	"math"
	"time"

	"github.com/iafilius/plotcore/internal/axis"
	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/plog"
	"github.com/iafilius/plotcore/internal/rangecache"
)

// SketchState tracks one figure's progress through the current frame's
// trial pass, matching the source's per-figure SKETCH_FINISHED/STARTED/
// INTERRUPTED states.
type SketchState int

const (
	SketchFinished SketchState = iota
	SketchStarted
	SketchInterrupted
)

// Rasterizer is the §6 drawing collaborator. Trial* is called during
// the progressive trial pass to test whether a primitive would be
// visible in the current clip, without painting anything — the engine
// uses the answer only to decide whether a point is worth caching into
// a sketch chunk. Canvas* performs the real paint once a finished
// pass's sketch chunks are flushed by Paint.
type Rasterizer interface {
	ClearTrial()
	TrialLine(x0, y0, x1, y1 float64) bool
	TrialDot(x, y float64) bool

	CanvasLine(x0, y0, x1, y1, width float64, colorN int)
	CanvasDash(x0, y0, x1, y1, width float64, colorN int)
	CanvasDot(x, y float64, colorN int)
}

// figureState is one figure's row cursor and pen state, kept across
// Frame calls so an interrupted pass resumes exactly where it left off.
type figureState struct {
	sketch  SketchState
	rN      int
	idN     int64
	line    bool
	lastX   float64 // previous row's raw data X, for the cached segment endpoint
	lastY   float64 // previous row's raw data Y
	lastVX  float64 // previous row's viewport-space X, for the trial visibility test
	lastVY  float64 // previous row's viewport-space Y

	listSelf int // head sketch chunk currently being filled for this figure, or -1
}

// sketchChunk is one fixed-capacity run of cached (x, y) points in data
// space (not viewport/pixel space, so an unchanged sketch can be
// replayed through a different transform after a zoom/pan with no data
// change), belonging to a single figure and linked into one of the
// engine's free/current/todraw lists.
type sketchChunk struct {
	figureN int
	pts     [2 * limits.SketchChunkSize]float64
	length  int
	linked  int
}

// Engine drives the progressive draw loop. Sketch chunks rotate through
// three lists exactly like the source's sketch pool: free chunks are
// handed out to whichever figure is being trial-walked into "current";
// once a trial pass finishes, "current" is promoted to "todraw" and the
// previous "todraw" (already painted) chunks return to "free" — so one
// pass is always being painted while the next is being built.
type Engine struct {
	mgr    *axis.Manager
	rc     *rangecache.Cache
	raster Rasterizer

	figures    [limits.FigureMax]figureState
	inProgress bool

	sketches [limits.SketchChunkMax]sketchChunk

	freeHead, currentHead, currentEnd, todrawHead int
}

// New returns an Engine with every sketch chunk in the free list.
func New(mgr *axis.Manager, rc *rangecache.Cache, raster Rasterizer) *Engine {
	e := &Engine{mgr: mgr, rc: rc, raster: raster, currentHead: -1, currentEnd: -1, todrawHead: -1}
	for i := range e.sketches {
		e.sketches[i].linked = i + 1
	}
	e.sketches[len(e.sketches)-1].linked = -1
	for i := range e.figures {
		e.figures[i].listSelf = -1
	}
	return e
}

// SetRasterizer swaps the collaborator every subsequent Frame/Paint
// call draws through, for a caller whose concrete rasterizer is bound
// to a fixed-size pixel surface (internal/raster.Canvas wraps a
// chart.PNG renderer allocated at a given width/height) and so must be
// rebuilt rather than resized when its window changes size. Any
// in-flight trial pass should be discarded first (Clean) since a
// resize invalidates the outgoing rasterizer's trial-visibility state.
func (e *Engine) SetRasterizer(raster Rasterizer) {
	e.raster = raster
}

func (e *Engine) sketchSetup(fN int) {
	if e.freeHead < 0 {
		plog.Errorf("draw: no free sketch chunk")
		e.figures[fN].listSelf = -1
		return
	}
	nh := e.freeHead
	e.freeHead = e.sketches[nh].linked
	e.sketches[nh] = sketchChunk{figureN: fN, linked: -1}

	if e.currentHead < 0 {
		e.currentHead, e.currentEnd = nh, nh
	} else {
		e.sketches[e.currentEnd].linked = nh
		e.currentEnd = nh
	}
	e.figures[fN].listSelf = nh
}

func (e *Engine) sketchAdd(fN int, x, y float64) {
	fs := &e.figures[fN]
	if fs.listSelf < 0 || e.sketches[fs.listSelf].length >= limits.SketchChunkSize {
		e.sketchSetup(fN)
		if fs.listSelf < 0 {
			return
		}
	}
	c := &e.sketches[fs.listSelf]
	c.pts[2*c.length] = x
	c.pts[2*c.length+1] = y
	c.length++
}

// sketchGarbage frees the chunks Paint already flushed and promotes the
// pass that Frame just finished trialing into the todraw list, matching
// plotSketchGarbage's call site inside plotDrawFigureTrialAll's fN < 0
// branch — promotion happens the moment the trial pass completes, before
// Paint ever runs, so Paint always sees the pass Frame just finished.
func (e *Engine) sketchGarbage() {
	hN := e.todrawHead
	for hN >= 0 {
		next := e.sketches[hN].linked
		e.sketches[hN].linked = e.freeHead
		e.freeHead = hN
		hN = next
	}
	e.todrawHead = e.currentHead
	e.currentHead, e.currentEnd = -1, -1
	for i := range e.figures {
		e.figures[i].listSelf = -1
	}
}

// Clean returns every sketch chunk to the free list and resets all
// figure cursors, matching plotSketchClean — called when the axis
// manager's figure set changes shape (add/remove/garbage) underneath
// an in-progress pass.
func (e *Engine) Clean() {
	walk := func(head int) {
		hN := head
		for hN >= 0 {
			next := e.sketches[hN].linked
			e.sketches[hN].linked = e.freeHead
			e.freeHead = hN
			hN = next
		}
	}
	walk(e.todrawHead)
	walk(e.currentHead)
	e.todrawHead, e.currentHead, e.currentEnd = -1, -1, -1
	for i := range e.figures {
		e.figures[i].listSelf = -1
	}
	e.inProgress = false
}

// paintOrder lists busy figures hidden-first, matching
// plotDrawFigureTrialAll's paint order (figures later in the list are
// drawn on top).
func (e *Engine) paintOrder() []int {
	var order []int
	for i := range e.mgr.Figures {
		if e.mgr.Figures[i].Busy && e.mgr.Figures[i].Hidden {
			order = append(order, i)
		}
	}
	for i := range e.mgr.Figures {
		if e.mgr.Figures[i].Busy && !e.mgr.Figures[i].Hidden {
			order = append(order, i)
		}
	}
	return order
}

// Frame advances the progressive draw loop by at most one deadline's
// worth of work, resuming any figure left SketchInterrupted by a prior
// call. It reports whether this call completed the pass (every busy
// figure reached SketchFinished); the caller should follow a true
// result with a call to Paint to flush the finished pass's cached
// points. The sketch pool is rotated inside Frame when the pass
// completes.
func (e *Engine) Frame(deadline time.Time) bool {
	order := e.paintOrder()

	if !e.inProgress {
		for _, fN := range order {
			f := &e.mgr.Figures[fN]
			fs := &e.figures[fN]
			fs.sketch = SketchStarted
			fs.line = false
			if d := e.mgr.Resolve(f.DatasetID); d != nil {
				fs.rN = d.HeadN
				fs.idN = d.LogicalID(d.HeadN)
			}
		}
		e.raster.ClearTrial()
		e.inProgress = true
	}

	for {
		fN := -1
		for _, fQ := range order {
			if e.figures[fQ].sketch == SketchFinished {
				continue
			}
			if fN < 0 || e.figures[fQ].idN < e.figures[fN].idN {
				fN = fQ
			}
		}
		if fN < 0 {
			e.inProgress = false
			e.sketchGarbage()
			return true
		}

		e.trialFigure(fN)

		if !time.Now().Before(deadline) {
			return false
		}
	}
}

func valueAt(row []float64, idN int64, col int) float64 {
	if col < 0 {
		return float64(idN)
	}
	return row[col]
}

// trialFigure walks at most one chunk's worth of rows of fN, matching
// plotDrawFigureTrial: whole chunks whose cached (X, Y) bounds fall
// entirely outside the manager's viewport are skipped without a row
// scan (and break the pen-down line state, since the point immediately
// before the gap was never visited); otherwise every row is mapped
// through its axes' composed transform into viewport space and offered
// to the rasterizer's trial test before being cached into a sketch
// chunk.
func (e *Engine) trialFigure(fN int) {
	f := &e.mgr.Figures[fN]
	fs := &e.figures[fN]
	d := e.mgr.Resolve(f.DatasetID)
	if d == nil {
		fs.sketch = SketchFinished
		return
	}

	scaleX, offsetX := e.mgr.Transform(f.AxisX)
	scaleY, offsetY := e.mgr.Transform(f.AxisY)
	vp := e.mgr.Viewport
	spanX, spanY := vp.MaxX-vp.MinX, vp.MaxY-vp.MinY
	scaleX, offsetX = scaleX*spanX, offsetX*spanX+vp.MinX
	scaleY, offsetY = scaleY*spanY, offsetY*spanY+vp.MinY

	var xEntry, yEntry rangecache.Entry
	if f.ColumnX >= 0 {
		xEntry = e.rc.Fetch(d, f.ColumnX)
	}
	if f.ColumnY >= 0 {
		yEntry = e.rc.Fetch(d, f.ColumnY)
	}

	topN := fs.idN + int64(d.RowsPerChunk())

	for fs.idN < topN {
		kN, _ := d.ChunkOf(fs.rN)

		job := true
		if f.ColumnX >= 0 && f.ColumnY >= 0 {
			if xf, xmin, xmax := xEntry.ChunkFinite(kN); xf {
				if yf, ymin, ymax := yEntry.ChunkFinite(kN); yf {
					vxmin, vxmax := xmin*scaleX+offsetX, xmax*scaleX+offsetX
					vymin, vymax := ymin*scaleY+offsetY, ymax*scaleY+offsetY
					if vxmax < vp.MinX || vxmin > vp.MaxX || vymax < vp.MinY || vymin > vp.MaxY {
						job = false
					}
				}
			}
		}

		if !job {
			d.Skip(&fs.rN, &fs.idN, d.RowsPerChunk())
			fs.line = false
			if fs.rN == d.TailN {
				fs.sketch = SketchFinished
				return
			}
			continue
		}

		for {
			ck, _ := d.ChunkOf(fs.rN)
			if ck != kN {
				break
			}
			row, ok := d.Get(&fs.rN)
			if !ok {
				fs.sketch = SketchFinished
				return
			}

			x := valueAt(row, fs.idN, f.ColumnX)
			y := valueAt(row, fs.idN, f.ColumnY)
			fs.idN++

			vx, vy := x*scaleX+offsetX, y*scaleY+offsetY
			finite := !math.IsNaN(vx) && !math.IsInf(vx, 0) && !math.IsNaN(vy) && !math.IsInf(vy, 0)

			if !finite {
				fs.line = false
			} else if f.Drawing == axis.DrawingDot {
				if e.raster.TrialDot(vx, vy) {
					e.sketchAdd(fN, x, y)
				}
			} else {
				if fs.line && e.raster.TrialLine(fs.lastVX, fs.lastVY, vx, vy) {
					e.sketchAdd(fN, fs.lastX, fs.lastY)
					e.sketchAdd(fN, x, y)
				}
				fs.lastX, fs.lastY = x, y
				fs.lastVX, fs.lastVY = vx, vy
				fs.line = true
			}

			if fs.idN >= topN {
				if fs.rN == d.TailN {
					fs.sketch = SketchFinished
				} else {
					fs.sketch = SketchInterrupted
				}
				return
			}
		}

		if fs.rN == d.TailN {
			fs.sketch = SketchFinished
			return
		}
	}

	fs.sketch = SketchInterrupted
}

// Paint flushes the todraw list's cached sketch chunks through the
// rasterizer's real Canvas* calls, matching plotDrawSketch: it only ever
// reads the todraw list built by Frame's completion and never mutates
// the sketch pool's list pointers itself. Stored points are in data
// space, so the figure's current (scale, offset) is recomputed here
// rather than reused from the trial pass — a zoom/pan since the sketch
// was built still replays correctly.
func (e *Engine) Paint() {
	hN := e.todrawHead
	for hN >= 0 {
		c := &e.sketches[hN]
		f := &e.mgr.Figures[c.figureN]

		scaleX, offsetX := e.mgr.Transform(f.AxisX)
		scaleY, offsetY := e.mgr.Transform(f.AxisY)
		vp := e.mgr.Viewport
		spanX, spanY := vp.MaxX-vp.MinX, vp.MaxY-vp.MinY
		scaleX, offsetX = scaleX*spanX, offsetX*spanX+vp.MinX
		scaleY, offsetY = scaleY*spanY, offsetY*spanY+vp.MinY

		vx := func(i int) float64 { return c.pts[2*i]*scaleX + offsetX }
		vy := func(i int) float64 { return c.pts[2*i+1]*scaleY + offsetY }

		// ncolor selects the rasterizer's palette slot for this figure,
		// matching plotDrawSketch's own `hidden ? 9 : fN + 1` (cycled
		// through eight figure slots past index 7, matching
		// internal/scheme.FigureColor's fN%8 cycling).
		ncolor := c.figureN%8 + 1
		if f.Hidden {
			ncolor = 9
		}

		switch f.Drawing {
		case axis.DrawingDot:
			for i := 0; i < c.length; i++ {
				e.raster.CanvasDot(vx(i), vy(i), ncolor)
			}
		case axis.DrawingDash:
			for i := 0; i+1 < c.length; i += 2 {
				e.raster.CanvasDash(vx(i), vy(i), vx(i+1), vy(i+1), f.Width, ncolor)
			}
		default:
			for i := 0; i+1 < c.length; i += 2 {
				e.raster.CanvasLine(vx(i), vy(i), vx(i+1), vy(i+1), f.Width, ncolor)
			}
		}
		hN = c.linked
	}
}
