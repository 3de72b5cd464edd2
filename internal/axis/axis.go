// Package axis implements the axis & figure model (component E) and,
// co-located to avoid an import cycle between the two (E consults F,
// F needs figure/axis state), the range-over-axis conditional query
// (component F) in rangequery.go.
package axis

import (
	"errors"

	"github.com/iafilius/plotcore/internal/derive"
	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

var (
	ErrAxisFree            = errors.New("axis: axis is not allocated")
	ErrAxisIsSlave         = errors.New("axis: axis is already a slave")
	ErrBaseIsSlave         = errors.New("axis: base axis cannot itself be a slave")
	ErrAxisIsBase          = errors.New("axis: axis is already the base of another slave")
	ErrAxisCycle           = errors.New("axis: slave relation would create a cycle")
	ErrOrientationMismatch = errors.New("axis: orientation mismatch between figure and axis")
	ErrNoFreeSlot          = errors.New("axis: no free slot")
)

// Orientation distinguishes X (horizontal) from Y (vertical) axes; a
// figure's column_X must be plotted against an X axis and column_Y
// against a Y axis.
type Orientation int

const (
	OrientationX Orientation = iota
	OrientationY
)

// SlaveAction selects the effect of Slave.
type SlaveAction int

const (
	SlaveEnable SlaveAction = iota
	SlaveHold
	SlaveDisable
)

// Axis is one scale/offset pair mapping data values to the normalized
// [0,1] viewport axis. A slave axis composes its own (SlaveScale,
// SlaveOffset) on top of the base axis's current transform rather than
// holding an independent one.
type Axis struct {
	Busy        bool
	Orientation Orientation
	Label       string

	Scale, Offset float64

	Slave                   bool
	SlaveOf                 int
	SlaveScale, SlaveOffset float64

	LockScale bool
}

// Drawing selects a figure's rendering style; interpreting it into
// pixels is the rasterizer collaborator's job (§6, internal/draw +
// internal/raster), not this package's.
type Drawing int

const (
	DrawingLine Drawing = iota
	DrawingDash
	DrawingDot
)

// Figure binds one dataset's (column_X, column_Y) pair to an (axis_X,
// axis_Y) pair for drawing.
type Figure struct {
	Busy   bool
	Hidden bool
	Label  string

	DatasetID        int
	ColumnX, ColumnY int
	AxisX, AxisY     int

	Drawing Drawing
	Width   float64
}

// DatasetResolver looks a dataset up by its slot id.
type DatasetResolver func(id int) *store.Dataset

// Viewport holds the normalized rectangle the axes' [0,1] output is
// placed in; read by ScaleAutoCond's mark-width inset pass,
// ScaleStacked and internal/draw.
type Viewport struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Manager owns every axis and figure slot. One Manager serves the
// whole plot; axes and figures are never individually heap-allocated.
type Manager struct {
	Axes    [limits.AxisMax]Axis
	Figures [limits.FigureMax]Figure

	resolve   DatasetResolver
	rc        *rangecache.Cache
	pipelines map[int]*derive.Pipeline // one derived-column pipeline per dataset, lazily built

	OnX, OnY int // focused axes, -1 if none

	Viewport  Viewport
	MarkInset float64 // fraction of the axis span reserved for the mark (§4.8's layout_mark, expressed as a normalized fraction rather than a pixel count since layout owns pixel geometry)
}

// New returns a Manager with every axis/figure slot free.
func New(resolve DatasetResolver, rc *rangecache.Cache) *Manager {
	return &Manager{resolve: resolve, rc: rc, OnX: -1, OnY: -1, MarkInset: 0.02}
}

// AddAxis allocates a free axis slot.
func (m *Manager) AddAxis(o Orientation, label string) (int, error) {
	for i := range m.Axes {
		if !m.Axes[i].Busy {
			m.Axes[i] = Axis{Busy: true, Orientation: o, Label: label, Scale: 1, Offset: 0}
			return i, nil
		}
	}
	return -1, ErrNoFreeSlot
}

// referenced reports whether any figure (other than skip, if >= 0)
// uses axis aN on either side, or any other axis slaves it.
func (m *Manager) referenced(aN, skip int) bool {
	for i := range m.Figures {
		if i == skip || !m.Figures[i].Busy {
			continue
		}
		if m.Figures[i].AxisX == aN || m.Figures[i].AxisY == aN {
			return true
		}
	}
	for i := range m.Axes {
		if m.Axes[i].Busy && m.Axes[i].Slave && m.Axes[i].SlaveOf == aN {
			return true
		}
	}
	return false
}

// retireIfUnreferenced frees aN if no figure or slave still points at
// it, matching plotFigureRemove/plotFigureMoveAxes's axis retirement.
func (m *Manager) retireIfUnreferenced(aN int) {
	if aN < 0 || !m.Axes[aN].Busy {
		return
	}
	if !m.referenced(aN, -1) {
		m.Axes[aN] = Axis{}
		if m.OnX == aN {
			m.OnX = -1
		}
		if m.OnY == aN {
			m.OnY = -1
		}
	}
}

// AxisConv maps a data value through aN's transform into the
// normalized [0,1] viewport axis, composing through one level of slave
// relation (slave-of-slave is excluded by invariant, so this never
// recurses more than twice).
func (m *Manager) AxisConv(aN int, v float64) float64 {
	a := &m.Axes[aN]
	if a.Slave {
		return m.AxisConv(a.SlaveOf, v*a.SlaveScale+a.SlaveOffset)
	}
	return v*a.Scale + a.Offset
}

// AxisConvInv is AxisConv's inverse for a non-slave axis — used by
// ScaleAuto's mark-width inset pass, which always operates on the
// axis's own (just-set) independent transform, and by callers mapping
// a viewport position back to data (cmd/plotdemo's hover handler).
func (m *Manager) AxisConvInv(aN int, viewportV float64) float64 {
	a := &m.Axes[aN]
	return (viewportV - a.Offset) / a.Scale
}

// ScaleManual sets (scale, offset) so that [min, max] maps to [0, 1].
func (m *Manager) ScaleManual(aN int, min, max float64) error {
	a := &m.Axes[aN]
	if !a.Busy {
		return ErrAxisFree
	}
	if a.Slave {
		return ErrAxisIsSlave
	}
	a.Scale = 1 / (max - min)
	a.Offset = -min / (max - min)
	return nil
}

// ScaleAuto auto-scales aN from the unconditional data range of every
// figure using it, then insets by MarkInset so points are not drawn on
// the viewport border.
func (m *Manager) ScaleAuto(aN int) error {
	if err := m.ScaleAutoCond(aN, -1); err != nil {
		return err
	}
	m.Axes[aN].LockScale = true
	return nil
}

// ScaleAutoCond auto-scales aN using the range of every figure that
// uses it, restricted to rows visible on axis bN (or unconditional
// range when bN < 0), then applies the mark-width inset.
func (m *Manager) ScaleAutoCond(aN, bN int) error {
	a := &m.Axes[aN]
	if !a.Busy {
		return ErrAxisFree
	}
	if a.Slave {
		return ErrAxisIsSlave
	}

	started := false
	var fmin, fmax float64

	for i := range m.Figures {
		f := &m.Figures[i]
		if !f.Busy || f.Hidden {
			continue
		}

		var cN, dN int
		job := false
		switch {
		case f.AxisX == aN:
			cN, dN, job = f.ColumnX, f.DatasetID, true
		case f.AxisY == aN:
			cN, dN, job = f.ColumnY, f.DatasetID, true
		}

		if job {
			min, max := m.rangeFor(dN, cN, bN)
			if started {
				fmin, fmax = minOf(fmin, min), maxOf(fmax, max)
			} else {
				started, fmin, fmax = true, min, max
			}
		}

		// Figures whose other axis is a slave of aN contribute through
		// that slave's own transform, matching plotAxisScaleAutoCond.
		if m.Axes[f.AxisX].Slave && m.Axes[f.AxisX].SlaveOf == aN {
			min, max := m.rangeFor(f.DatasetID, f.ColumnX, bN)
			sc, off := m.Axes[f.AxisX].SlaveScale, m.Axes[f.AxisX].SlaveOffset
			min, max = min*sc+off, max*sc+off
			if started {
				fmin, fmax = minOf(fmin, min), maxOf(fmax, max)
			} else {
				started, fmin, fmax = true, min, max
			}
		} else if m.Axes[f.AxisY].Slave && m.Axes[f.AxisY].SlaveOf == aN {
			min, max := m.rangeFor(f.DatasetID, f.ColumnY, bN)
			sc, off := m.Axes[f.AxisY].SlaveScale, m.Axes[f.AxisY].SlaveOffset
			min, max = min*sc+off, max*sc+off
			if started {
				fmin, fmax = minOf(fmin, min), maxOf(fmax, max)
			} else {
				started, fmin, fmax = true, min, max
			}
		}
	}

	if !started {
		return nil
	}
	if fmin == fmax {
		fmin--
		fmax++
	}

	if err := m.ScaleManual(aN, fmin, fmax); err != nil {
		return err
	}

	// Re-scale through the pixel-equivalent viewport expanded outward
	// by MarkInset on each edge, so the data's own span ends up
	// occupying a shrunk middle portion of [0,1] rather than touching
	// the border. Y is flipped (max edge feeds the low endpoint)
	// matching the source's top-down pixel convention.
	switch a.Orientation {
	case OrientationX:
		lo := m.AxisConvInv(aN, m.Viewport.MinX-m.MarkInset)
		hi := m.AxisConvInv(aN, m.Viewport.MaxX+m.MarkInset)
		return m.ScaleManual(aN, lo, hi)
	default:
		lo := m.AxisConvInv(aN, m.Viewport.MaxY+m.MarkInset)
		hi := m.AxisConvInv(aN, m.Viewport.MinY-m.MarkInset)
		return m.ScaleManual(aN, lo, hi)
	}
}

func (m *Manager) rangeFor(dN, cN, bN int) (float64, float64) {
	d := m.resolve(dN)
	if d == nil {
		return 0, 0
	}
	if bN < 0 {
		e := m.rc.Fetch(d, cN)
		return e.FMin, e.FMax
	}
	return m.RangeAxis(d, cN, bN)
}

func minOf(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

func maxOf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

// ScaleZoom adjusts (scale, offset) so that originV (already in the
// axis's normalized [0,1] space) stays fixed while z scales the span
// around it.
func (m *Manager) ScaleZoom(aN int, originV, z float64) error {
	a := &m.Axes[aN]
	if !a.Busy {
		return ErrAxisFree
	}
	if a.Slave {
		return ErrAxisIsSlave
	}
	a.Scale *= z
	a.Offset = originV - (originV-a.Offset)*z
	return nil
}

// ScaleMove shifts aN's offset by dv (normalized [0,1] units), keeping
// scale fixed.
func (m *Manager) ScaleMove(aN int, dv float64) error {
	a := &m.Axes[aN]
	if !a.Busy {
		return ErrAxisFree
	}
	if a.Slave {
		return ErrAxisIsSlave
	}
	a.Offset += dv
	return nil
}

// ScaleEqual aligns the focused X and Y axes so one data unit maps to
// the same normalized-viewport distance in both directions, keeping
// the X axis's scale as the reference.
func (m *Manager) ScaleEqual() error {
	if m.OnX < 0 || m.OnY < 0 {
		return nil
	}
	x, y := &m.Axes[m.OnX], &m.Axes[m.OnY]
	if x.Slave || y.Slave {
		return ErrAxisIsSlave
	}
	mid := y.Offset + 0.5
	y.Scale = x.Scale
	y.Offset = mid - 0.5
	return nil
}

// ScaleGridAlign snaps every other busy axis of the same orientation
// as the focused axis to that axis's tick step, by matching scale
// (offset is left alone — only the step, i.e. pixels-per-unit, is
// shared).
func (m *Manager) ScaleGridAlign() error {
	var ref *Axis
	var o Orientation
	if m.OnX >= 0 {
		ref, o = &m.Axes[m.OnX], OrientationX
	} else if m.OnY >= 0 {
		ref, o = &m.Axes[m.OnY], OrientationY
	} else {
		return nil
	}
	for i := range m.Axes {
		a := &m.Axes[i]
		if a == ref || !a.Busy || a.Slave || a.Orientation != o {
			continue
		}
		a.Scale = ref.Scale
	}
	return nil
}

// ScaleStacked partitions the focused-orientation-opposite Y axes into
// equal vertical bands (with a MarkInset gap) and auto-scales each
// into its own band.
func (m *Manager) ScaleStacked() error {
	var ys []int
	for i := range m.Axes {
		if m.Axes[i].Busy && !m.Axes[i].Slave && m.Axes[i].Orientation == OrientationY {
			ys = append(ys, i)
		}
	}
	if len(ys) == 0 {
		return nil
	}
	n := len(ys)
	bandH := (m.Viewport.MaxY - m.Viewport.MinY) / float64(n)
	saved := m.Viewport
	for i, aN := range ys {
		m.Viewport.MinY = saved.MinY + float64(i)*bandH
		m.Viewport.MaxY = saved.MinY + float64(i+1)*bandH
		if err := m.ScaleAuto(aN); err != nil {
			m.Viewport = saved
			return err
		}
	}
	m.Viewport = saved
	return nil
}

// Slave implements ENABLE/HOLD/DISABLE of a's relation to base b.
func (m *Manager) Slave(aN, bN int, scale, offset float64, action SlaveAction) error {
	a, b := &m.Axes[aN], &m.Axes[bN]
	if !a.Busy || !b.Busy {
		return ErrAxisFree
	}
	if b.Slave {
		return ErrBaseIsSlave
	}
	if a.Orientation != b.Orientation {
		return ErrOrientationMismatch
	}

	switch action {
	case SlaveEnable:
		if m.isBaseOfAny(aN) {
			return ErrAxisIsBase
		}
		if aN == bN {
			return ErrAxisCycle
		}
		a.Slave = true
		a.SlaveOf = bN
		a.SlaveScale, a.SlaveOffset = scale, offset
		if m.OnX == aN {
			m.OnX = bN
		}
		if m.OnY == aN {
			m.OnY = bN
		}

	case SlaveHold:
		// Convert a's current independent (Scale, Offset) into the
		// equivalent slave relation given b's current transform, so
		// the visual mapping a -> viewport is unchanged:
		// a.Scale*v + a.Offset == b.Scale*(v*s+o) + b.Offset
		// => s = a.Scale / b.Scale, o = (a.Offset - b.Offset) / b.Scale
		if a.Slave {
			return ErrAxisIsSlave
		}
		s := a.Scale / b.Scale
		o := (a.Offset - b.Offset) / b.Scale
		a.Slave = true
		a.SlaveOf = bN
		a.SlaveScale, a.SlaveOffset = s, o
		if m.OnX == aN {
			m.OnX = bN
		}
		if m.OnY == aN {
			m.OnY = bN
		}

	case SlaveDisable:
		if !a.Slave {
			return nil
		}
		// Bake b's transform into a's own: a's new independent
		// (scale, offset) produces the same a -> viewport mapping as
		// the slave composition did, using b's transform at the
		// moment of disable.
		a.Scale = a.SlaveScale * b.Scale
		a.Offset = a.SlaveOffset*b.Scale + b.Offset
		a.Slave = false
		a.SlaveOf = -1
		a.SlaveScale, a.SlaveOffset = 0, 0
	}
	return nil
}

func (m *Manager) isBaseOfAny(aN int) bool {
	for i := range m.Axes {
		if m.Axes[i].Busy && m.Axes[i].Slave && m.Axes[i].SlaveOf == aN {
			return true
		}
	}
	return false
}

// FigureAdd allocates a figure slot plotting (columnX, columnY) of
// dataset dN against (axisX, axisY).
func (m *Manager) FigureAdd(dN, columnX, columnY, axisX, axisY int, label string) (int, error) {
	if !m.Axes[axisX].Busy || !m.Axes[axisY].Busy {
		return -1, ErrAxisFree
	}
	if m.Axes[axisX].Orientation != OrientationX || m.Axes[axisY].Orientation != OrientationY {
		return -1, ErrOrientationMismatch
	}
	for i := range m.Figures {
		if !m.Figures[i].Busy {
			m.Figures[i] = Figure{
				Busy: true, DatasetID: dN,
				ColumnX: columnX, ColumnY: columnY,
				AxisX: axisX, AxisY: axisY, Label: label,
				Drawing: DrawingLine, Width: 1,
			}
			return i, nil
		}
	}
	return -1, ErrNoFreeSlot
}

// FigureRemove frees fN, retires any axis it was the last reference
// to, and sweeps its dataset's derived-column pipeline (§4.3) for any
// slot the removed figure was the last reader of, matching testable
// property 9: after FigureRemove no axis or derived-column slot is
// left live that no other figure references.
func (m *Manager) FigureRemove(fN int) {
	f := &m.Figures[fN]
	if !f.Busy {
		return
	}
	axisX, axisY, dN := f.AxisX, f.AxisY, f.DatasetID
	*f = Figure{}
	m.retireIfUnreferenced(axisX)
	m.retireIfUnreferenced(axisY)
	m.garbageSweepDataset(dN)
}

// garbageSweepDataset frees dN's derived-column slots no longer read
// by a live figure or used as another live slot's input, and releases
// the range cache's entries for columns above the dataset's live width
// so a freed slot's cached range doesn't linger pointing at a
// now-unreferenced column index.
func (m *Manager) garbageSweepDataset(dN int) {
	p, ok := m.pipelines[dN]
	if !ok {
		return
	}
	referenced := func(col int) bool {
		for i := range m.Figures {
			f := &m.Figures[i]
			if f.Busy && f.DatasetID == dN && (f.ColumnX == col || f.ColumnY == col) {
				return true
			}
		}
		return false
	}
	p.GarbageSweep(referenced)
	if d := m.resolve(dN); d != nil {
		m.rc.ReleaseColumnsAbove(dN, d.ColumnN)
	}
}

// FigureGarbage removes every figure plotting dataset dN, matching
// plotFigureGarbage — called when a dataset is torn down so its axes
// are retired and its derived-column pipeline can be dropped.
func (m *Manager) FigureGarbage(dN int) {
	for i := range m.Figures {
		if m.Figures[i].Busy && m.Figures[i].DatasetID == dN {
			m.FigureRemove(i)
		}
	}
	delete(m.pipelines, dN)
}

// FigureMoveAxes rebinds fN to the manager's focused axes, retiring
// any axis abandoned by the move.
func (m *Manager) FigureMoveAxes(fN int) {
	f := &m.Figures[fN]
	if !f.Busy {
		return
	}
	oldX, oldY := f.AxisX, f.AxisY
	if m.OnX >= 0 {
		f.AxisX = m.OnX
	}
	if m.OnY >= 0 {
		f.AxisY = m.OnY
	}
	if oldX != f.AxisX {
		m.retireIfUnreferenced(oldX)
	}
	if oldY != f.AxisY {
		m.retireIfUnreferenced(oldY)
	}
}

// FigureMakeIndividualAxes gives fN its own axis on any side it
// currently shares with another busy figure, preserving the shared
// axis's current transform.
func (m *Manager) FigureMakeIndividualAxes(fN int) error {
	f := &m.Figures[fN]
	if !f.Busy {
		return nil
	}
	if m.sharedByOther(f.AxisX, fN) {
		idx, err := m.AddAxis(OrientationX, m.Axes[f.AxisX].Label)
		if err != nil {
			return err
		}
		m.Axes[idx].Scale, m.Axes[idx].Offset = m.Axes[f.AxisX].Scale, m.Axes[f.AxisX].Offset
		f.AxisX = idx
	}
	if m.sharedByOther(f.AxisY, fN) {
		idx, err := m.AddAxis(OrientationY, m.Axes[f.AxisY].Label)
		if err != nil {
			return err
		}
		m.Axes[idx].Scale, m.Axes[idx].Offset = m.Axes[f.AxisY].Scale, m.Axes[f.AxisY].Offset
		f.AxisY = idx
	}
	return nil
}

func (m *Manager) sharedByOther(aN, skip int) bool {
	n := 0
	for i := range m.Figures {
		if m.Figures[i].Busy && (m.Figures[i].AxisX == aN || m.Figures[i].AxisY == aN) {
			n++
		}
	}
	return n > 1 && (m.Figures[skip].AxisX == aN || m.Figures[skip].AxisY == aN)
}

// FigureExchange swaps the contents of two figure slots.
func (m *Manager) FigureExchange(fN1, fN2 int) {
	m.Figures[fN1], m.Figures[fN2] = m.Figures[fN2], m.Figures[fN1]
}
