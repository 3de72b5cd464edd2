package axis

import (
	"math"

	"github.com/iafilius/plotcore/internal/store"
)

// RangeAxis implements component F: the range of column cN over
// dataset d, restricted to rows visible on axis aN. It collects every
// live, non-hidden figure over d that plots cN against aN on one side
// (or whose other side is a slave of aN), and folds each through
// RangeCond; with no matching figure it falls back to the
// unconditional range cache fetch.
func (m *Manager) RangeAxis(d *store.Dataset, cN, aN int) (float64, float64) {
	started := false
	var fmin, fmax float64
	dN := d.ID()

	for i := range m.Figures {
		f := &m.Figures[i]
		if !f.Busy || f.Hidden || f.DatasetID != dN {
			continue
		}

		job := false
		scale, offset := 1.0, 0.0
		cCond := -1

		switch {
		case f.AxisX == aN && f.ColumnY == cN:
			cCond, job = f.ColumnX, true
		case f.AxisY == aN && f.ColumnX == cN:
			cCond, job = f.ColumnY, true
		}

		xN, yN := f.AxisX, f.AxisY
		if m.Axes[xN].Slave && m.Axes[xN].SlaveOf == aN && f.ColumnY == cN {
			scale, offset = m.Axes[xN].SlaveScale, m.Axes[xN].SlaveOffset
			cCond, job = f.ColumnX, true
		} else if m.Axes[yN].Slave && m.Axes[yN].SlaveOf == aN && f.ColumnX == cN {
			scale, offset = m.Axes[yN].SlaveScale, m.Axes[yN].SlaveOffset
			cCond, job = f.ColumnY, true
		}

		if !job {
			continue
		}
		scale *= m.Axes[aN].Scale
		offset = offset*m.Axes[aN].Scale + m.Axes[aN].Offset

		started, fmin, fmax = m.RangeCond(d, cN, cCond, started, scale, offset, fmin, fmax)
	}

	if started {
		return fmin, fmax
	}
	e := m.rc.Fetch(d, cN)
	return e.FMin, e.FMax
}

// RangeCond scans dataset d for rows where scale*row[cCond]+offset is
// within [0,1], tracking min/max of row[cN] across those rows, seeded
// with (started, fmin, fmax) so repeated calls (one per contributing
// figure) can accumulate. Whole chunks are skipped when the cond
// column's cached bound maps entirely outside [0,1], and absorbed
// directly from the cN column's cached bound (without a row scan)
// when the cond bound maps entirely inside [0,1] and that bound is
// itself known.
func (m *Manager) RangeCond(d *store.Dataset, cN, cCond int, started bool, scale, offset float64, fmin, fmax float64) (bool, float64, float64) {
	condEntry := m.rc.Fetch(d, cCond)
	valEntry := m.rc.Fetch(d, cN)

	r := d.HeadN
	idN := d.LogicalID(r)

	for {
		kN, _ := d.ChunkOf(r)
		job := true

		if finite, cfmin, cfmax := condEntry.ChunkFinite(kN); finite {
			vmin := cfmin*scale + offset
			vmax := cfmax*scale + offset

			if vfinite, vfmin, vfmax := valEntry.ChunkFinite(kN); vmin >= 0 && vmin <= 1 && vmax >= 0 && vmax <= 1 {
				job = false
				if vfinite {
					if started {
						fmin, fmax = minOf(fmin, vfmin), maxOf(fmax, vfmax)
					} else {
						started, fmin, fmax = true, vfmin, vfmax
					}
				}
			} else if vmin > 1 || vmax < 0 {
				job = false
			}
		} else {
			job = false
		}

		if job {
			for {
				ck, _ := d.ChunkOf(r)
				if ck != kN {
					break
				}
				row, ok := d.Get(&r)
				if !ok {
					break
				}
				fval := valueOf(row, idN, cN)
				fcond := valueOf(row, idN, cCond)*scale + offset
				if fcond >= 0 && fcond <= 1 && !math.IsNaN(fval) && !math.IsInf(fval, 0) {
					if started {
						fmin, fmax = minOf(fmin, fval), maxOf(fmax, fval)
					} else {
						started, fmin, fmax = true, fval, fval
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

	return started, fmin, fmax
}

func valueOf(row []float64, idN int64, col int) float64 {
	if col < 0 {
		return float64(idN)
	}
	return row[col]
}
