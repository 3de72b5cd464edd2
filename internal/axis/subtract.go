package axis

import (
	"fmt"

	"github.com/iafilius/plotcore/internal/derive"
	"github.com/iafilius/plotcore/internal/plog"
	"github.com/iafilius/plotcore/internal/store"
)

// pipelineFor returns fN's dataset's derived-column pipeline, building
// and caching one the first time a dataset is touched so stateful
// slots (TIME_UNWRAP, the FILTER_* family) keep their running state
// across repeated Subtract calls.
func (m *Manager) pipelineFor(dN int) *derive.Pipeline {
	if m.pipelines == nil {
		m.pipelines = make(map[int]*derive.Pipeline)
	}
	if p, ok := m.pipelines[dN]; ok {
		return p
	}
	d := m.resolve(dN)
	if d == nil {
		return nil
	}
	p := derive.New(d)
	m.pipelines[dN] = p
	return p
}

// freeFigure finds a free figure slot without allocating it, matching
// plotGetFreeFigure.
func (m *Manager) freeFigure() int {
	for i := range m.Figures {
		if !m.Figures[i].Busy {
			return i
		}
	}
	return -1
}

// Transform returns aN's own (scale, offset) composed with its slave
// base, if any, one level deep — the same composition AxisConv applies
// to a single value, exposed as a pair so callers (SubtractPolyfit,
// internal/draw) can map a whole chunk's cached bounds without a
// per-row call.
func (m *Manager) Transform(aN int) (scale, offset float64) {
	a := &m.Axes[aN]
	scale, offset = a.Scale, a.Offset
	if a.Slave {
		b := &m.Axes[a.SlaveOf]
		scale = a.SlaveScale * b.Scale
		offset = a.SlaveOffset*b.Scale + b.Offset
	}
	return scale, offset
}

// Resolve looks up a dataset by id through the manager's configured
// resolver, for collaborators (internal/draw) that need the
// *store.Dataset behind a figure's DatasetID.
func (m *Manager) Resolve(dN int) *store.Dataset {
	return m.resolve(dN)
}

// axisForSide returns the free axis to carry a newly derived column on
// the given orientation, reusing a freshly allocated one labeled like
// the source axis when a slot is available, or falling back to the
// source axis itself (so the new figure shares it) when axes are
// exhausted — matching plotGetFreeAxis's fallback in each
// plotFigureSubtract* wrapper.
func (m *Manager) axisForSide(sourceAxis int) int {
	aN, err := m.AddAxis(m.Axes[sourceAxis].Orientation, m.Axes[sourceAxis].Label)
	if err != nil {
		return sourceAxis
	}
	return aN
}

// SubtractTimeUnwrap rebinds fN1's X column to a (deduplicated)
// TIME_UNWRAP derived column over its current X column, matching
// plotFigureSubtractTimeUnwrap.
func (m *Manager) SubtractTimeUnwrap(fN1 int) {
	f := &m.Figures[fN1]
	if !f.Busy {
		plog.Errorf("axis: figure %d is not busy", fN1)
		return
	}
	p := m.pipelineFor(f.DatasetID)
	if p == nil {
		return
	}
	slotIdx := p.Alloc(derive.TimeUnwrap, derive.Params{Column1: f.ColumnX})
	if slotIdx < 0 {
		return
	}
	p.Subtract(slotIdx, m.resolve)
	f.ColumnX = p.Column(slotIdx)
}

// SubtractScale rebinds fN1's X or Y column (per side) to a SCALE
// derived column (scale*v + offset) over its current column, matching
// plotFigureSubtractScale.
func (m *Manager) SubtractScale(fN1 int, side Orientation, scale, offset float64) {
	f := &m.Figures[fN1]
	if !f.Busy {
		plog.Errorf("axis: figure %d is not busy", fN1)
		return
	}
	p := m.pipelineFor(f.DatasetID)
	if p == nil {
		return
	}

	col := f.ColumnX
	if side == OrientationY {
		col = f.ColumnY
	}
	slotIdx := p.Alloc(derive.Scale, derive.Params{Column1: col, ScaleA: scale, ScaleB: offset})
	if slotIdx < 0 {
		return
	}
	p.Subtract(slotIdx, m.resolve)
	cN := p.Column(slotIdx)
	if side == OrientationX {
		f.ColumnX = cN
	} else {
		f.ColumnY = cN
	}
}

// SubtractFilter creates a new figure plotting a FILTER_* derived
// column of fN1's Y column against fN1's own X, matching
// plotFigureSubtractFilter. FILTER_LOWPASS reuses fN1's own Y axis (the
// filtered value shares the source's units); every other filter gets a
// fresh Y axis and is auto-scaled against the shared X axis. Returns
// the new figure's index, or -1 on resource exhaustion.
func (m *Manager) SubtractFilter(fN1 int, kind derive.Kind, arg1, arg2 float64) int {
	f1 := &m.Figures[fN1]
	if !f1.Busy {
		plog.Errorf("axis: figure %d is not busy", fN1)
		return -1
	}
	fN := m.freeFigure()
	if fN < 0 {
		plog.Errorf("axis: no free figure to subtract")
		return -1
	}
	p := m.pipelineFor(f1.DatasetID)
	if p == nil {
		return -1
	}

	params := derive.Params{Column1: f1.ColumnY}
	switch kind {
	case derive.FilterBitmask:
		params.BitLo, params.BitHi = int(arg1), int(arg2)
	case derive.FilterLowpass:
		params.Gain = arg1
	}
	slotIdx := p.Alloc(kind, params)
	if slotIdx < 0 {
		return -1
	}
	p.Subtract(slotIdx, m.resolve)
	cN := p.Column(slotIdx)

	aY := f1.AxisY
	if kind != derive.FilterLowpass {
		aY = m.axisForSide(f1.AxisY)
	}

	var label string
	switch kind {
	case derive.FilterDiff:
		label = fmt.Sprintf("D: %s", f1.Label)
	case derive.FilterCum:
		label = fmt.Sprintf("C: %s", f1.Label)
	case derive.FilterBitmask:
		lo, hi := int(arg1), int(arg2)
		if lo == hi {
			label = fmt.Sprintf("B(%d): %s", lo, f1.Label)
		} else {
			label = fmt.Sprintf("B(%d-%d): %s", lo, hi, f1.Label)
		}
	case derive.FilterLowpass:
		label = fmt.Sprintf("L(%.2E): %s", arg1, f1.Label)
	}

	newFN, err := m.FigureAdd(f1.DatasetID, f1.ColumnX, cN, f1.AxisX, aY, label)
	if err != nil {
		plog.Errorf("axis: FigureAdd for filter subtract: %v", err)
		return -1
	}
	m.Figures[newFN].Drawing, m.Figures[newFN].Width = f1.Drawing, f1.Width

	if kind != derive.FilterLowpass {
		nf := &m.Figures[newFN]
		if err := m.ScaleAutoCond(nf.AxisY, nf.AxisX); err != nil {
			plog.Errorf("axis: ScaleAutoCond for filter subtract: %v", err)
		}
		m.focus(nf.AxisX, nf.AxisY)
	}
	return newFN
}

// SubtractBinary combines the Y columns of two figures with a
// BinarySub/BinaryAdd/BinaryMul/BinaryHyp operator into a new figure,
// matching plotFigureSubtractAdd. The two figures must share an X
// axis; when they don't already share a dataset and X column, fN2's Y
// is first resampled onto fN1's X column. Returns the new figure's
// index, or -1 on misuse or resource exhaustion.
func (m *Manager) SubtractBinary(fN1, fN2 int, op derive.Kind) int {
	f1, f2 := &m.Figures[fN1], &m.Figures[fN2]
	if !f1.Busy || !f2.Busy {
		plog.Errorf("axis: figure %d or %d is not busy", fN1, fN2)
		return -1
	}
	if f1.AxisX != f2.AxisX {
		plog.Errorf("axis: figures %d and %d are not on the same X axis", fN1, fN2)
		return -1
	}

	dN := f1.DatasetID
	p := m.pipelineFor(dN)
	if p == nil {
		return -1
	}

	cY2 := f2.ColumnY
	if dN != f2.DatasetID || f1.ColumnX != f2.ColumnX {
		src := m.resolve(f2.DatasetID)
		if src == nil {
			plog.Errorf("axis: cannot resolve dataset %d to resample", f2.DatasetID)
			return -1
		}
		rSlot := p.Alloc(derive.Resample, derive.Params{
			Column1:       f1.ColumnX,
			SourceDataset: src,
			SourceColumnX: f2.ColumnX,
			SourceColumnY: f2.ColumnY,
		})
		if rSlot < 0 {
			return -1
		}
		p.Subtract(rSlot, m.resolve)
		cY2 = p.Column(rSlot)
	}

	bSlot := p.Alloc(op, derive.Params{Column1: f1.ColumnY, Column2: cY2})
	if bSlot < 0 {
		return -1
	}
	p.Subtract(bSlot, m.resolve)
	cY := p.Column(bSlot)

	aY := m.axisForSide(f1.AxisY)

	var label string
	switch op {
	case derive.BinarySub:
		label = fmt.Sprintf("R: (%s) - (%s)", f1.Label, f2.Label)
	case derive.BinaryAdd:
		label = fmt.Sprintf("A: (%s) + (%s)", f1.Label, f2.Label)
	case derive.BinaryMul:
		label = fmt.Sprintf("M: (%s) * (%s)", f1.Label, f2.Label)
	case derive.BinaryHyp:
		label = fmt.Sprintf("H: (%s) (%s)", f1.Label, f2.Label)
	}

	newFN, err := m.FigureAdd(dN, f1.ColumnX, cY, f1.AxisX, aY, label)
	if err != nil {
		plog.Errorf("axis: FigureAdd for binary subtract: %v", err)
		return -1
	}
	m.Figures[newFN].Drawing, m.Figures[newFN].Width = f1.Drawing, f1.Width
	return newFN
}

// SubtractPolyfit fits a degree-N polynomial to fN1's (X, Y) over the
// rows currently visible on fN1's axes, then creates a new figure
// plotting the fit evaluated at every row of fN1's X column, matching
// plotFigureSubtractPolifit. solver is the caller-supplied least
// squares collaborator (§6); the manager's own range cache is used to
// skip chunks outside the fit window. Returns the new figure's index,
// or -1.
func (m *Manager) SubtractPolyfit(fN1, degree int, solver derive.LeastSquares) int {
	f1 := &m.Figures[fN1]
	if !f1.Busy {
		plog.Errorf("axis: figure %d is not busy", fN1)
		return -1
	}
	fN := m.freeFigure()
	if fN < 0 {
		plog.Errorf("axis: no free figure to subtract")
		return -1
	}
	p := m.pipelineFor(f1.DatasetID)
	if p == nil {
		return -1
	}

	scaleX, offsetX := m.Transform(f1.AxisX)
	scaleY, offsetY := m.Transform(f1.AxisY)

	slotIdx := p.Alloc(derive.Polyfit, derive.Params{Column1: f1.ColumnX, PolyDegree: degree})
	if slotIdx < 0 {
		return -1
	}
	p.FitPolyfit(slotIdx, solver, m.rc, f1.ColumnX, f1.ColumnY, scaleX, offsetX, scaleY, offsetY, degree)
	p.Subtract(slotIdx, m.resolve)
	cN := p.Column(slotIdx)

	newFN, err := m.FigureAdd(f1.DatasetID, f1.ColumnX, cN, f1.AxisX, f1.AxisY, fmt.Sprintf("P: %s", f1.Label))
	if err != nil {
		plog.Errorf("axis: FigureAdd for polyfit subtract: %v", err)
		return -1
	}
	m.Figures[newFN].Drawing, m.Figures[newFN].Width = f1.Drawing, f1.Width
	return newFN
}

// PolyfitResult exposes the coefficients/stdev of fN's POLYFIT column
// for the data-box overlay (component H), resolving the figure's Y
// column back to its owning slot.
func (m *Manager) PolyfitResult(fN int) (coefs []float64, stdev float64) {
	f := &m.Figures[fN]
	if !f.Busy {
		return nil, 0
	}
	p := m.pipelines[f.DatasetID]
	if p == nil {
		return nil, 0
	}
	d := m.resolve(f.DatasetID)
	if d == nil {
		return nil, 0
	}
	slotIdx := f.ColumnY - d.ColumnN
	if slotIdx < 0 {
		return nil, 0
	}
	return p.PolyfitResult(slotIdx)
}

// focus sets on_X/on_Y to (aX, aY), unwrapping through one level of
// slave exactly like the C source's post-subtract focus update.
func (m *Manager) focus(aX, aY int) {
	if m.Axes[aX].Slave {
		aX = m.Axes[aX].SlaveOf
	}
	if m.Axes[aY].Slave {
		aY = m.Axes[aY].SlaveOf
	}
	m.OnX, m.OnY = aX, aY
}

// findFigureByYColumn returns the first busy figure plotting column cN
// of dataset dN on its Y side, or -1.
func (m *Manager) findFigureByYColumn(dN, cN int) int {
	for i := range m.Figures {
		if m.Figures[i].Busy && m.Figures[i].DatasetID == dN && m.Figures[i].ColumnY == cN {
			return i
		}
	}
	return -1
}

// binaryLinked mirrors plotFigureSubtractBinaryLinked: given a figure
// whose Y column is a BINARY_* slot of kind op, find the two figures
// plotting that slot's operands. The first operand's column is looked
// up directly on fN's own dataset; the second follows one level of
// RESAMPLE indirection, which may move the lookup onto another
// dataset (resampling always targets the first operand's dataset, so
// only the second operand can have come from one).
func (m *Manager) binaryLinked(fN int, op derive.Kind) (fN1, fN2 int) {
	fN1, fN2 = -1, -1
	f := &m.Figures[fN]
	if !f.Busy {
		return
	}
	dN := f.DatasetID
	p := m.pipelines[dN]
	if p == nil {
		return
	}
	d := m.resolve(dN)
	if d == nil {
		return
	}
	sN := f.ColumnY - d.ColumnN
	if !p.InRange(sN) || p.Kind(sN) != op {
		return
	}
	col1, col2, ok := p.BinaryOperands(sN)
	if !ok {
		return
	}

	fN1 = m.findFigureByYColumn(dN, col1)

	dN2, cN2 := dN, col2
	sE := col2 - d.ColumnN
	if p.InRange(sE) && p.Kind(sE) == derive.Resample {
		if srcDN, srcCol, ok := p.ResampleSource(sE); ok {
			dN2, cN2 = srcDN, srcCol
		}
	}
	fN2 = m.findFigureByYColumn(dN2, cN2)
	return
}

// SubtractSwitch toggles between two source figures visible and their
// already-computed binary-combination figure visible, without
// recreating any derived state, matching plotFigureSubtractSwitch.
// With exactly one figure visible that is itself a binary-op result,
// its two sources are revealed in its place. With exactly two figures
// visible, an existing result figure combining them (if any) is
// revealed in their place; otherwise SubtractBinary computes one.
func (m *Manager) SubtractSwitch(op derive.Kind) {
	var visible []int
	for i := range m.Figures {
		if m.Figures[i].Busy && !m.Figures[i].Hidden {
			visible = append(visible, i)
		}
	}

	switch len(visible) {
	case 1:
		fN := visible[0]
		fN1, fN2 := m.binaryLinked(fN, op)
		if fN1 != -1 && fN2 != -1 {
			m.Figures[fN].Hidden = true
			m.Figures[fN1].Hidden = false
			m.Figures[fN2].Hidden = false
			m.focus(m.Figures[fN1].AxisX, m.Figures[fN1].AxisY)
		}

	case 2:
		fN1, fN2 := visible[0], visible[1]
		result := -1
		for i := range m.Figures {
			if !m.Figures[i].Busy {
				continue
			}
			a, b := m.binaryLinked(i, op)
			if (a == fN1 && b == fN2) || (a == fN2 && b == fN1) {
				result = i
				break
			}
		}

		if result != -1 {
			m.Figures[fN1].Hidden = true
			m.Figures[fN2].Hidden = true
			m.Figures[result].Hidden = false
			f, f1, f2 := &m.Figures[result], &m.Figures[fN1], &m.Figures[fN2]
			if f.AxisX == f1.AxisX && f.AxisX == f2.AxisX {
				_ = m.ScaleAutoCond(f.AxisY, f.AxisX)
			} else if f.AxisY == f1.AxisY && f.AxisY == f2.AxisY {
				_ = m.ScaleAutoCond(f.AxisX, f.AxisY)
			}
			m.focus(f.AxisX, f.AxisY)
			return
		}

		newFN := m.SubtractBinary(fN1, fN2, op)
		if newFN >= 0 {
			m.Figures[fN1].Hidden = true
			m.Figures[fN2].Hidden = true
			nf := &m.Figures[newFN]
			_ = m.ScaleAutoCond(nf.AxisY, nf.AxisX)
			m.focus(nf.AxisX, nf.AxisY)
		}
	}
}
