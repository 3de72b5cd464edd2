// Package derive implements the derived-column pipeline (component C):
// virtual columns computed lazily from other columns, recomputed on
// demand, with incrementally maintained state for the stateful filter
// operators. Each dataset gets its own Pipeline, one slot per
// limits.SubtractMax, dispatched on a single tagged-variant switch —
// the execution engine never topologically sorts, so callers must pick
// slot indices so dependencies precede dependents (§5).
package derive

import (
	"math"

	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/plog"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

// Kind mirrors store.SubtractKind; re-exported so callers of this
// package don't need to import internal/store just to name a kind.
type Kind = store.SubtractKind

const (
	Free          = store.SubtractFree
	TimeUnwrap    = store.SubtractTimeUnwrap
	Scale         = store.SubtractScale
	BinarySub     = store.SubtractBinarySub
	BinaryAdd     = store.SubtractBinaryAdd
	BinaryMul     = store.SubtractBinaryMul
	BinaryHyp     = store.SubtractBinaryHyp
	FilterDiff    = store.SubtractFilterDiff
	FilterCum     = store.SubtractFilterCum
	FilterBitmask = store.SubtractFilterBitmask
	FilterLowpass = store.SubtractFilterLowpass
	Resample      = store.SubtractResample
	Polyfit       = store.SubtractPolyfit
)

// Params bundles every derived-operator's configuration in one struct;
// only the fields relevant to Kind are read. Column1/Column2 of -1
// designate the synthetic row-index column (§3).
type Params struct {
	Column1, Column2 int

	ScaleA, ScaleB float64

	BitLo, BitHi int // FILTER_BITMASK: bits [lo, hi] inclusive

	Gain float64 // FILTER_LOWPASS pole

	// RESAMPLE
	SourceDataset *store.Dataset
	SourceColumnX int
	SourceColumnY int

	// POLYFIT
	PolyDegree int
}

type slot struct {
	kind   Kind
	params Params

	// running state
	unwrap, prev, prev2 float64
	filterState         float64

	polyCoefs []float64
	polyStdev float64
}

// Pipeline owns the derived-column slots for one dataset.
type Pipeline struct {
	d     *store.Dataset
	slots [limits.SubtractMax]slot
}

// New wraps d with an empty derived-column pipeline.
func New(d *store.Dataset) *Pipeline {
	return &Pipeline{d: d}
}

// Dataset returns the wrapped dataset.
func (p *Pipeline) Dataset() *store.Dataset { return p.d }

// Column returns the absolute column index a slot owns.
func (p *Pipeline) Column(slotIdx int) int { return p.d.ColumnN + slotIdx }

// Alloc reserves a free slot for kind/params and returns its index, or
// -1 if every slot is occupied (resource exhaustion, §7 — logged, not
// an error return the caller must check beyond the sentinel).
//
// SCALE and TIME_UNWRAP are deduplicated by (source column, parameters)
// before allocating, so repeatedly attaching slave axes to the same
// source column reuses one slot instead of growing without bound.
func (p *Pipeline) Alloc(kind Kind, params Params) int {
	if kind == Scale || kind == TimeUnwrap {
		if idx := p.findDup(kind, params); idx >= 0 {
			return idx
		}
	}
	for i := range p.slots {
		if p.slots[i].kind == Free {
			p.slots[i] = slot{kind: kind, params: params}
			p.resetState(i)
			p.d.Subs[i].Kind = kind
			return i
		}
	}
	plog.Errorf("derive: no free subtract slot for dataset %d", p.d.ID())
	return -1
}

func (p *Pipeline) findDup(kind Kind, params Params) int {
	for i := range p.slots {
		s := &p.slots[i]
		if s.kind != kind || s.params.Column1 != params.Column1 {
			continue
		}
		switch kind {
		case Scale:
			if s.params.ScaleA == params.ScaleA && s.params.ScaleB == params.ScaleB {
				return i
			}
		case TimeUnwrap:
			return i
		}
	}
	return -1
}

// Free releases slotIdx, regardless of whether anything still
// references it — callers run GarbageSweep first.
func (p *Pipeline) Free(slotIdx int) {
	if slotIdx < 0 || slotIdx >= limits.SubtractMax {
		return
	}
	p.slots[slotIdx] = slot{}
	p.d.Subs[slotIdx].Kind = Free
}

// Kind reports a slot's current tag.
func (p *Pipeline) Kind(slotIdx int) Kind { return p.slots[slotIdx].kind }

// Sources returns the column indices slotIdx reads from directly
// (within this dataset); used by GarbageSweep's fixpoint scan. Columns
// on other datasets (RESAMPLE) are not reported since the sweep only
// frees slots of the dataset being swept.
func (p *Pipeline) Sources(slotIdx int) []int {
	s := &p.slots[slotIdx]
	switch s.kind {
	case TimeUnwrap, Scale, FilterDiff, FilterCum, FilterBitmask, FilterLowpass, Polyfit:
		return []int{s.params.Column1}
	case BinarySub, BinaryAdd, BinaryMul, BinaryHyp:
		return []int{s.params.Column1, s.params.Column2}
	case Resample:
		return []int{s.params.Column1}
	default:
		return nil
	}
}

func (p *Pipeline) resetState(i int) {
	s := &p.slots[i]
	switch s.kind {
	case TimeUnwrap:
		s.unwrap, s.prev, s.prev2 = 0, math.NaN(), math.NaN()
	case FilterDiff, FilterLowpass:
		s.filterState = math.NaN()
	case FilterCum:
		s.filterState = 0
	}
}

func (p *Pipeline) srcValue(row []float64, idN int64, col int) float64 {
	if col < 0 {
		return float64(idN)
	}
	return row[col]
}

// Subtract applies derived slots over a row span, matching
// original_source/src/plot.c's plotDataSubtract: sN < 0 applies every
// occupied slot over [sub_N, tail_N) and advances the watermark to
// tail_N; sN >= 0 applies a single slot over [head_N, tail_N) without
// moving the watermark (the batch path RESAMPLE/POLYFIT coefficient
// fitting relies on). Per-row evaluation itself is identical either way
// — only the starting row and which slots run differ.
func (p *Pipeline) Subtract(sN int, resolve func(id int) *store.Dataset) {
	d := p.d
	start, end := sN, sN+1
	var rS int
	if sN < 0 {
		start, end = 0, limits.SubtractMax
		rS = d.SubN
		d.SubN = d.TailN
	} else {
		rS = d.HeadN
	}

	for s := start; s < end; s++ {
		slt := &p.slots[s]
		if slt.kind == Free {
			continue
		}
		p.applySlot(s, slt, rS, resolve)
	}
}

func (p *Pipeline) applySlot(s int, slt *slot, rS int, resolve func(id int) *store.Dataset) {
	d := p.d
	col := p.Column(s)
	fresh := rS == d.HeadN

	switch slt.kind {
	case TimeUnwrap:
		if fresh {
			slt.unwrap, slt.prev, slt.prev2 = 0, math.NaN(), math.NaN()
		}
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			if x1 < slt.prev {
				slt.unwrap += slt.prev - x1
				if slt.prev2 < slt.prev {
					slt.unwrap += slt.prev - slt.prev2
				}
			}
			row[col] = x1 + slt.unwrap
			if !math.IsNaN(x1) {
				slt.prev2 = slt.prev
				slt.prev = x1
			}
		})

	case Scale:
		a, b := slt.params.ScaleA, slt.params.ScaleB
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			row[col] = x1*a + b
		})

	case BinarySub:
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			x2 := p.srcValue(row, idN, slt.params.Column2)
			row[col] = x1 - x2
		})
	case BinaryAdd:
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			x2 := p.srcValue(row, idN, slt.params.Column2)
			row[col] = x1 + x2
		})
	case BinaryMul:
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			x2 := p.srcValue(row, idN, slt.params.Column2)
			row[col] = x1 * x2
		})
	case BinaryHyp:
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			x2 := p.srcValue(row, idN, slt.params.Column2)
			row[col] = math.Sqrt(x1*x1 + x2*x2)
		})

	case FilterDiff:
		if fresh {
			slt.filterState = math.NaN()
		}
		prev := slt.filterState
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			row[col] = x1 - prev
			prev = x1
		})
		slt.filterState = prev

	case FilterCum:
		if fresh {
			slt.filterState = 0
		}
		acc := slt.filterState
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			if !math.IsNaN(x1) && !math.IsInf(x1, 0) {
				acc += x1
			}
			row[col] = acc
		})
		slt.filterState = acc

	case FilterBitmask:
		var mask uint64
		for b := slt.params.BitHi; b >= slt.params.BitLo; b-- {
			mask |= 1 << uint(b)
		}
		lo := slt.params.BitLo
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			row[col] = float64((uint64(x1) & mask) >> uint(lo))
		})

	case FilterLowpass:
		if fresh {
			slt.filterState = math.NaN()
		}
		y := slt.filterState
		g := slt.params.Gain
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			if !math.IsNaN(x1) && !math.IsInf(x1, 0) {
				if math.IsNaN(y) {
					y = x1
				} else {
					y += (x1 - y) * g
				}
			}
			row[col] = y
		})
		slt.filterState = y

	case Resample:
		if fresh {
			if resolve == nil {
				plog.Errorf("derive: resample slot %d has no dataset resolver", s)
				return
			}
			src := slt.params.SourceDataset
			if src == nil {
				plog.Errorf("derive: resample slot %d has no source dataset", s)
				return
			}
			p.resample(col, slt.params.Column1, src, slt.params.SourceColumnX, slt.params.SourceColumnY)
		}

	case Polyfit:
		coefs := slt.polyCoefs
		p.walk(rS, func(row []float64, idN int64) {
			x1 := p.srcValue(row, idN, slt.params.Column1)
			y := 0.0
			if len(coefs) > 0 {
				y = coefs[len(coefs)-1]
				for i := len(coefs) - 2; i >= 0; i-- {
					y = y*x1 + coefs[i]
				}
			}
			row[col] = y
		})
	}
}

// walk drives a Write cursor from r0 to the dataset's tail, applying fn
// to each row along with its logical id.
func (p *Pipeline) walk(r0 int, fn func(row []float64, idN int64)) {
	d := p.d
	r := r0
	idN := d.LogicalID(r0)
	for {
		row, ok := d.Write(&r)
		if !ok {
			return
		}
		fn(row, idN)
		idN++
	}
}

// resample fills column dstCol of p.d from src's (srcX, srcY) via
// piecewise-linear interpolation sampled at p.d's own dstX column,
// holding the last valid sample at the boundaries. This is the one
// operator that reads another dataset and, per §4.3/§9(b), is only
// ever invoked as a full batch recompute — there is no incremental
// update path because the lookup stream is external.
func (p *Pipeline) resample(dstCol, dstX int, src *store.Dataset, srcX, srcY int) {
	d := p.d

	rR := src.HeadN
	var rX, rY float64
	found := false
	for {
		row, ok := src.Get(&rR)
		if !ok {
			break
		}
		idN := src.LogicalID(rR - 1)
		if rR == 0 {
			idN = src.LogicalID(src.LengthN - 1)
		}
		rX = p.srcValueOf(row, idN, srcX)
		rY = p.srcValueOf(row, idN, srcY)
		if !math.IsNaN(rX) {
			found = true
			break
		}
	}
	if !found {
		plog.Errorf("derive: no data to resample from dataset %d column %d", src.ID(), srcX)
		return
	}
	rXPrev, rYPrev := rX, rY

	r := d.HeadN
	idN := d.LogicalID(r)
	for {
		row, ok := d.Write(&r)
		if !ok {
			return
		}
		x := p.srcValue(row, idN, dstX)
		var y float64
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			for rX < x {
				nrow, ok := src.Get(&rR)
				if !ok {
					break
				}
				if !math.IsNaN(rX) {
					rXPrev, rYPrev = rX, rY
				}
				nidN := src.LogicalID(rR - 1)
				if rR == 0 {
					nidN = src.LogicalID(src.LengthN - 1)
				}
				rX = p.srcValueOf(nrow, nidN, srcX)
				rY = p.srcValueOf(nrow, nidN, srcY)
			}
			switch {
			case rX >= x:
				if rXPrev <= x {
					q := (x - rXPrev) / (rX - rXPrev)
					y = rYPrev + (rY-rYPrev)*q
				} else {
					y = rYPrev
				}
			default:
				y = rY
			}
		} else {
			y = math.NaN()
		}
		row[dstCol] = y
		idN++
	}
}

func (p *Pipeline) srcValueOf(row []float64, idN int64, col int) float64 {
	if col < 0 {
		return float64(idN)
	}
	return row[col]
}

// GarbageSweep runs a fixpoint pass freeing any slot whose owned
// column is neither reported as referenced by referenced, nor used as
// an input by another still-live slot.
func (p *Pipeline) GarbageSweep(referenced func(col int) bool) {
	for {
		freedAny := false
		for i := range p.slots {
			if p.slots[i].kind == Free {
				continue
			}
			col := p.Column(i)
			if referenced(col) {
				continue
			}
			usedByOther := false
			for j := range p.slots {
				if j == i || p.slots[j].kind == Free {
					continue
				}
				for _, src := range p.Sources(j) {
					if src == col {
						usedByOther = true
					}
				}
			}
			if !usedByOther {
				p.Free(i)
				freedAny = true
			}
		}
		if !freedAny {
			return
		}
	}
}

// FitPolyfit runs the least-squares fit for a POLYFIT slot over rows
// whose (x, y) both fall in the [0,1] normalized viewport given by
// (scaleX, offsetX) and (scaleY, offsetY), skipping whole chunks the
// range cache reports as entirely outside that window. It stores the
// resulting coefficients and standard deviation into the slot; the
// per-row evaluation in Subtract then just applies them like a SCALE.
//
// Per DESIGN.md open question (c), the Y-column window check below
// uses scaleY/offsetY (not scaleX/offsetX, which the source's
// corresponding expression used) — the spec's documented fix.
func (p *Pipeline) FitPolyfit(slotIdx int, solver LeastSquares, rc *rangecache.Cache, colX, colY int, scaleX, offsetX, scaleY, offsetY float64, degree int) {
	d := p.d
	slt := &p.slots[slotIdx]

	solver.Initiate(limits.LSQCascadeMax, degree+1, 1)

	var xEntry, yEntry rangecache.Entry
	if colX >= 0 {
		xEntry = rc.Fetch(d, colX)
	}
	if colY >= 0 {
		yEntry = rc.Fetch(d, colY)
	}

	r := d.HeadN
	idN := d.LogicalID(r)
	row := make([]float64, degree+2)

	for {
		chunk, _ := d.ChunkOf(r)
		job := true

		if colX >= 0 {
			if finite, fmin, fmax := xEntry.ChunkFinite(chunk); finite {
				lo := fmin*scaleX + offsetX
				hi := fmax*scaleX + offsetX
				if lo > 1 || hi < 0 {
					job = false
				}
			} else {
				job = false
			}
		}
		if job && colY >= 0 {
			if finite, fmin, fmax := yEntry.ChunkFinite(chunk); finite {
				lo := fmin*scaleY + offsetY
				hi := fmax*scaleY + offsetY
				if lo > 1 || hi < 0 {
					job = false
				}
			} else {
				job = false
			}
		}

		if job {
			for {
				c2, _ := d.ChunkOf(r)
				if c2 != chunk {
					break
				}
				rowData, ok := d.Get(&r)
				if !ok {
					break
				}
				x := p.srcValue(rowData, idN, colX)
				y := p.srcValue(rowData, idN, colY)
				if !math.IsNaN(x) && !math.IsNaN(y) {
					nx := x*scaleX + offsetX
					ny := y*scaleY + offsetY
					if nx >= 0 && nx <= 1 && ny >= 0 && ny <= 1 {
						row[0] = 1
						for i := 0; i < degree; i++ {
							row[i+1] = row[i] * x
						}
						row[degree+1] = y
						solver.Insert(row)
					}
				}
				idN++
			}
		} else {
			d.Skip(&r, &idN, d.RowsPerChunk())
		}

		if r == d.TailN {
			break
		}
	}

	coefs, stdev := solver.Finalise()
	slt.polyCoefs = coefs
	slt.polyStdev = stdev
}

// PolyfitResult returns the coefficients and standard deviation of the
// last fit on slotIdx, for internal/layout's data-box POLYFIT mode.
func (p *Pipeline) PolyfitResult(slotIdx int) (coefs []float64, stdev float64) {
	s := &p.slots[slotIdx]
	return s.polyCoefs, s.polyStdev
}

// InRange reports whether slotIdx is a valid slot index; it does not
// check whether the slot is allocated.
func (p *Pipeline) InRange(slotIdx int) bool {
	return slotIdx >= 0 && slotIdx < limits.SubtractMax
}

// BinaryOperands returns a BINARY_* slot's two source columns, or
// ok=false if slotIdx isn't such a slot — used by internal/axis's
// SubtractSwitch to walk back from a combined figure to its sources.
func (p *Pipeline) BinaryOperands(slotIdx int) (col1, col2 int, ok bool) {
	if !p.InRange(slotIdx) {
		return 0, 0, false
	}
	s := &p.slots[slotIdx]
	switch s.kind {
	case BinarySub, BinaryAdd, BinaryMul, BinaryHyp:
		return s.params.Column1, s.params.Column2, true
	}
	return 0, 0, false
}

// ResampleSource returns a RESAMPLE slot's source dataset id and
// source Y column, or ok=false if slotIdx isn't such a slot.
func (p *Pipeline) ResampleSource(slotIdx int) (datasetID, columnY int, ok bool) {
	if !p.InRange(slotIdx) {
		return 0, 0, false
	}
	s := &p.slots[slotIdx]
	if s.kind != Resample || s.params.SourceDataset == nil {
		return 0, 0, false
	}
	return s.params.SourceDataset.ID(), s.params.SourceColumnY, true
}

// LeastSquares is the §6 collaborator interface for the external
// least-squares solver: Initiate configures it, Insert feeds rows of
// (x-powers..., z), and Finalise returns the solved coefficients and
// the standard deviation of the single z column.
type LeastSquares interface {
	Initiate(cascades, nx, nz int)
	Insert(row []float64)
	Finalise() (coefs []float64, stdev float64)
}
