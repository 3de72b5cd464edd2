// Package rangecache implements the per (dataset, column, chunk)
// finite-min/finite-max cache (component B) used to accelerate
// auto-scaling, LOD culling during drawing, and conditional range
// queries. Entries are kept in a fixed-size rotating pool, like the
// chunk cache in internal/store. InvalidateAll and ReleaseColumnsAbove
// only mark entries unused; a new entry always takes the next slot in
// rotation, overwriting whatever it held.
package rangecache

import (
	"math"

	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/store"
)

// chunkBound is the per-chunk finite bound, valid only while Computed.
type chunkBound struct {
	Computed bool
	Finite   bool
	FMin     float64
	FMax     float64
}

type entry struct {
	busy    bool
	dataset int
	column  int
	cached  bool
	finite  bool
	fmin    float64
	fmax    float64
	chunks  [limits.ChunkMax]chunkBound
}

// Cache is the fixed-size rotating range-cache pool. One Cache serves
// every dataset; entries are keyed by (dataset, column).
type Cache struct {
	entries   [limits.RangeCacheSize]entry
	rotateID  int
	lastWipeD int
	lastWipeK int
}

// New returns an empty cache.
func New() *Cache {
	c := &Cache{lastWipeD: -1, lastWipeK: -1}
	return c
}

func (c *Cache) findNode(datasetID, column int) int {
	for i := range c.entries {
		e := &c.entries[i]
		if e.busy && e.dataset == datasetID && e.column == column {
			return i
		}
	}
	return -1
}

// InvalidateChunk implements store.Invalidator: clears the computed bit
// for chunk on every entry belonging to datasetID, and drops that
// entry's aggregate cache.
func (c *Cache) InvalidateChunk(datasetID, chunk int) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.busy && e.dataset == datasetID {
			if chunk >= 0 && chunk < limits.ChunkMax {
				e.chunks[chunk].Computed = false
			}
			e.cached = false
		}
	}
}

// InvalidateAll implements store.Invalidator: releases every entry
// belonging to datasetID (used on dataset clean/grow/resize).
func (c *Cache) InvalidateAll(datasetID int) {
	for i := range c.entries {
		if c.entries[i].dataset == datasetID {
			c.entries[i].busy = false
		}
	}
}

// ReleaseColumnsAbove drops entries referring to columns >= width for
// datasetID — called when a derived slot is freed so its range-cache
// entry doesn't linger pointing at a now-unreferenced column index.
func (c *Cache) ReleaseColumnsAbove(datasetID, width int) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.busy && e.dataset == datasetID && e.column >= width {
			e.busy = false
		}
	}
}

var _ store.Invalidator = (*Cache)(nil)

// Entry is the read-only view returned by Fetch.
type Entry struct {
	Finite      bool
	FMin, FMax  float64
	ChunkFinite func(chunk int) (finite bool, fmin, fmax float64)
}

// Fetch ensures an entry exists for (d, column) and every chunk is
// computed. An entry left cached since its last computation (no write
// has invalidated it) is returned as is; otherwise every chunk without
// a computed bound is scanned, and the tail chunk is rescanned even if
// computed since it may still be receiving writes. It returns the aggregate finite min/max
// over the dataset's valid rows along with a per-chunk bound accessor.
func (c *Cache) Fetch(d *store.Dataset, column int) Entry {
	xN := c.findNode(d.ID(), column)
	if xN >= 0 && c.entries[xN].cached {
		return c.entryView(xN)
	}

	if xN < 0 {
		xN = c.rotateID
		c.rotateID++
		if c.rotateID >= limits.RangeCacheSize {
			c.rotateID = 0
		}
		c.entries[xN] = entry{}
		for k := range c.entries[xN].chunks {
			c.entries[xN].chunks[k].Computed = false
		}
	}
	e := &c.entries[xN]

	rN := d.HeadN
	idN := d.IDN
	tailChunk := d.TailChunk()

	var fmin, fmax float64
	started := false

	for {
		kN, _ := d.ChunkOf(rN)
		cb := &e.chunks[kN]

		needScan := !cb.Computed || kN == tailChunk
		if needScan {
			finite := false
			var ymin, ymax float64
			for {
				ck, _ := d.ChunkOf(rN)
				if ck != kN {
					break
				}
				row, ok := d.Get(&rN)
				if !ok {
					break
				}
				var fval float64
				if column < 0 {
					fval = float64(idN)
				} else {
					fval = row[column]
				}
				if !math.IsNaN(fval) && !math.IsInf(fval, 0) {
					if finite {
						if fval < ymin {
							ymin = fval
						}
						if fval > ymax {
							ymax = fval
						}
					} else {
						finite = true
						ymin, ymax = fval, fval
					}
				}
				idN++
			}
			cb.Computed = true
			cb.Finite = finite
			if finite {
				cb.FMin, cb.FMax = ymin, ymax
			}
		} else {
			d.Skip(&rN, &idN, d.RowsPerChunk())
		}

		if cb.Finite {
			if started {
				if cb.FMin < fmin {
					fmin = cb.FMin
				}
				if cb.FMax > fmax {
					fmax = cb.FMax
				}
			} else {
				started = true
				fmin, fmax = cb.FMin, cb.FMax
			}
		}

		if rN == d.TailN {
			break
		}
	}

	e.busy = true
	e.dataset = d.ID()
	e.column = column
	e.cached = true
	e.finite = started
	e.fmin, e.fmax = fmin, fmax

	return c.entryView(xN)
}

func (c *Cache) entryView(xN int) Entry {
	e := &c.entries[xN]
	return Entry{
		Finite: e.finite,
		FMin:   e.fmin,
		FMax:   e.fmax,
		ChunkFinite: func(chunk int) (bool, float64, float64) {
			if chunk < 0 || chunk >= limits.ChunkMax {
				return false, 0, 0
			}
			cb := e.chunks[chunk]
			return cb.Finite && cb.Computed, cb.FMin, cb.FMax
		},
	}
}
