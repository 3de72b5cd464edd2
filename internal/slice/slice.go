// Package slice implements the nearest-in-value row query (component
// D): given a target value, find the row whose value at a given
// column is closest to it, using the range cache to skip chunks that
// cannot contain a better candidate than the SLICE_SPAN budget allows.
package slice

import (
	"math"

	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

// Result is the outcome of Get.
type Result struct {
	Found     bool
	LogicalID int64
	Row       []float64
}

func valueAt(row []float64, idN int64, column int) float64 {
	if column < 0 {
		return float64(idN)
	}
	return row[column]
}

// Get finds the row of d whose value at column is closest (by absolute
// difference) to target, per §4.4's strategy: walk chunks in ring
// order, scanning any chunk whose cached finite bound contains target
// (up to limits.SliceSpan such chunks), and if none contains it, fall
// back to scanning the single chunk whose bound lies closest.
func Get(d *store.Dataset, rc *rangecache.Cache, column int, target float64) Result {
	entry := rc.Fetch(d, column)

	r := d.HeadN
	idN := d.LogicalID(r)

	started := false
	var best float64
	var bestID int64
	span := 0

	repChunk := -1
	haveRep := false
	var nearDist float64

	for {
		kN, _ := d.ChunkOf(r)
		job := true

		if finite, fmin, fmax := entry.ChunkFinite(kN); finite {
			if target < fmin || target > fmax {
				job = false
				dMin := math.Abs(fmin - target)
				dMax := math.Abs(fmax - target)
				if haveRep {
					if dMin < nearDist {
						nearDist = dMin
						repChunk = kN
					}
					if dMax < nearDist {
						nearDist = dMax
						repChunk = kN
					}
				} else {
					if dMin < dMax {
						nearDist = dMin
					} else {
						nearDist = dMax
					}
					repChunk = kN
					haveRep = true
				}
			}
		} else {
			job = false
		}

		if job {
			span++
			started, best, bestID = scanChunk(d, &r, &idN, kN, column, target, started, best, bestID)
			if span >= limits.SliceSpan {
				break
			}
		} else {
			d.Skip(&r, &idN, d.RowsPerChunk())
		}

		if r == d.TailN {
			break
		}
	}

	if !started && haveRep {
		r = d.HeadN
		idN = d.LogicalID(r)
		for {
			kN, _ := d.ChunkOf(r)
			if kN == repChunk {
				started, best, bestID = scanChunk(d, &r, &idN, kN, column, target, started, best, bestID)
			} else {
				d.Skip(&r, &idN, d.RowsPerChunk())
			}
			if r == d.TailN {
				break
			}
		}
	}

	if !started {
		return Result{}
	}

	lN := d.LengthN
	rN := d.HeadN + int(bestID-d.LogicalID(d.HeadN))
	if rN > lN-1 {
		rN -= lN
	}
	row, ok := d.Get(&rN)
	if !ok {
		return Result{}
	}
	return Result{Found: true, LogicalID: bestID, Row: row}
}

func scanChunk(d *store.Dataset, r *int, idN *int64, kN, column int, target float64, started bool, best float64, bestID int64) (bool, float64, int64) {
	for {
		ck, _ := d.ChunkOf(*r)
		if ck != kN {
			break
		}
		row, ok := d.Get(r)
		if !ok {
			break
		}
		fval := valueAt(row, *idN, column)
		if !math.IsNaN(fval) && !math.IsInf(fval, 0) {
			delta := math.Abs(target - fval)
			if !started || delta < best {
				started = true
				best = delta
				bestID = *idN
			}
		}
		*idN++
	}
	return started, best, bestID
}
