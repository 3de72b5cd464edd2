// Package store implements the chunked, ring-buffered, optionally
// compressed column store (component A). A Dataset is a fixed-geometry
// ring of row chunks; chunk geometry is chosen once at creation so that
// rows_per_chunk * rowBytes >= limits.ChunkSize, and storage never grows
// beyond limits.ChunkMax chunk slots.
package store

import (
	"math"

	"github.com/iafilius/plotcore/internal/limits"
	"github.com/iafilius/plotcore/internal/plog"
)

// Invalidator is notified when a chunk is about to be written to, so the
// range cache (component B) can drop its cached bounds for that chunk.
// Dataset holds one and calls it from Write/Insert; the range cache is
// the only implementation, but keeping this as an interface avoids a
// store -> rangecache import.
type Invalidator interface {
	InvalidateChunk(datasetID, chunk int)
	InvalidateAll(datasetID int)
}

// SubtractKind tags a derived-column slot. The zero value is Free.
type SubtractKind int

const (
	SubtractFree SubtractKind = iota
	SubtractTimeUnwrap
	SubtractScale
	SubtractBinarySub
	SubtractBinaryAdd
	SubtractBinaryMul
	SubtractBinaryHyp
	SubtractFilterDiff
	SubtractFilterCum
	SubtractFilterBitmask
	SubtractFilterLowpass
	SubtractResample
	SubtractPolyfit
)

// SubtractSlot is a derived-column slot's tag. internal/derive keeps
// each slot's parameters and running state and owns the semantics of
// each kind; a free slot's column is simply never written.
type SubtractSlot struct {
	Kind SubtractKind
}

// GroupInfo is a user-defined label/hint attached to a column (§3's
// map[c]). Column -1 designates the synthetic row-index column.
type GroupInfo struct {
	Label      string
	TimeUnwrap bool
	ScaleA     float64
	ScaleB     float64
}

type cacheEntry struct {
	chunk int // index into chunks this buffer currently holds, -1 if unused
	dirty bool
	data  []float64
}

// Dataset is a ring buffer of rows with ColumnN+SubtractMax fields per
// row. See spec.md §3 for the full invariant list.
type Dataset struct {
	id int

	ColumnN int
	LengthN int
	HeadN   int
	TailN   int
	IDN     int64
	SubN    int

	chunkShift   uint
	chunkMask    int
	rowsPerChunk int
	rowWidth     int // ColumnN + limits.SubtractMax

	compress bool

	// raw[k] is the decompressed buffer for chunk k, or nil if the chunk
	// is either compressed-only or (when compress is disabled and the
	// dataset has not been allocated that far) does not exist.
	raw [limits.ChunkMax][]float64
	// compressed[k] is the compressed blob for chunk k, or nil.
	compressed [limits.ChunkMax][]byte

	cache   [limits.ChunkCache]cacheEntry
	cacheID int

	// lastWipeChunk memoizes the last chunk wiped from the range cache so
	// a streak of writes to the same chunk invalidates it only once.
	lastWipeChunk int

	Groups map[int]GroupInfo
	Subs   [limits.SubtractMax]SubtractSlot

	invalidator Invalidator
}

// New allocates a dataset with the given column width and row capacity
// (rounded up to a whole number of chunks sized to limits.ChunkSize
// bytes). id is the dataset's own slot index, used only when talking to
// inv.
func New(id, columnN, length int, compress bool, inv Invalidator) *Dataset {
	return NewWithChunkSize(id, columnN, length, compress, inv, limits.ChunkSize)
}

// NewWithChunkSize is New with an explicit target chunk size in bytes,
// used by tests that need to exercise specific ring geometries (e.g.
// spec.md §8 scenario A's length=4 ring) without the production chunk
// target swallowing the whole dataset into a single chunk.
func NewWithChunkSize(id, columnN, length int, compress bool, inv Invalidator, chunkSizeBytes int) *Dataset {
	if columnN < 1 || length < 1 {
		plog.Errorf("store: invalid dataset geometry columnN=%d length=%d", columnN, length)
		return nil
	}

	d := &Dataset{
		id:            id,
		ColumnN:       columnN,
		compress:      compress,
		invalidator:   inv,
		lastWipeChunk: -1,
		Groups:        make(map[int]GroupInfo),
	}
	d.rowWidth = columnN + limits.SubtractMax

	for shift := uint(0); shift < 30; shift++ {
		bsize := 8 * d.rowWidth * (1 << shift)
		if bsize >= chunkSizeBytes {
			d.chunkShift = shift
			d.chunkMask = (1 << shift) - 1
			d.rowsPerChunk = 1 << shift
			break
		}
	}
	for i := range d.cache {
		d.cache[i].chunk = -1
	}

	d.allocChunks(length)
	return d
}

func (d *Dataset) allocChunks(length int) {
	kN := length >> d.chunkShift
	if length&d.chunkMask != 0 {
		kN++
	}
	if kN > limits.ChunkMax {
		kN = limits.ChunkMax
	}
	length = kN * d.rowsPerChunk

	if d.compress {
		for n := kN; n < limits.ChunkMax; n++ {
			d.compressed[n] = nil
		}
	} else {
		for n := 0; n < kN; n++ {
			if d.raw[n] == nil {
				d.raw[n] = make([]float64, d.rowsPerChunk*d.rowWidth)
			}
		}
		for n := kN; n < limits.ChunkMax; n++ {
			d.raw[n] = nil
		}
	}

	d.LengthN = length
}

// Resize grows or shrinks the dataset's row capacity. Under length
// reduction every cursor is reset rather than compacted — this is the
// source's documented FIXME-acknowledged behavior (DESIGN.md open
// question (a)), preserved deliberately.
func (d *Dataset) Resize(length int) {
	if length < 1 {
		plog.Errorf("store: resize length too short: %d", length)
		return
	}
	if d.invalidator != nil {
		d.invalidator.InvalidateAll(d.id)
	}
	if length < d.LengthN {
		d.HeadN, d.TailN, d.IDN, d.SubN = 0, 0, 0, 0
	}
	d.allocChunks(length)
}

// Clean releases all chunk storage, groups and slot tags and marks the
// dataset unallocated (ColumnN == 0). HeadN, TailN, IDN and SubN are
// left as they were.
func (d *Dataset) Clean() {
	if d.ColumnN == 0 {
		return
	}
	if d.invalidator != nil {
		d.invalidator.InvalidateAll(d.id)
	}
	d.ColumnN = 0
	d.LengthN = 0
	for i := range d.raw {
		d.raw[i] = nil
	}
	for i := range d.compressed {
		d.compressed[i] = nil
	}
	for i := range d.cache {
		d.cache[i] = cacheEntry{chunk: -1}
	}
	d.Groups = nil
	for i := range d.Subs {
		d.Subs[i] = SubtractSlot{}
	}
}

// Live reports whether the dataset currently holds a valid allocation.
func (d *Dataset) Live() bool { return d.ColumnN != 0 }

// ID returns the dataset's own slot index.
func (d *Dataset) ID() int { return d.id }

// RowWidth is ColumnN + limits.SubtractMax, the stride of a row.
func (d *Dataset) RowWidth() int { return d.rowWidth }

// RowsPerChunk returns the chunk geometry.
func (d *Dataset) RowsPerChunk() int { return d.rowsPerChunk }

// ChunkOf returns the chunk index and in-chunk offset of ring index r.
func (d *Dataset) ChunkOf(r int) (chunk, offset int) {
	return r >> d.chunkShift, r & d.chunkMask
}

// Count returns the number of valid rows currently held.
func (d *Dataset) Count() int {
	n := d.TailN - d.HeadN
	if n < 0 {
		n += d.LengthN
	}
	return n
}

// LogicalID returns the stable external row identity of ring index r.
func (d *Dataset) LogicalID(r int) int64 {
	n := r - d.HeadN
	if n < 0 {
		n += d.LengthN
	}
	return d.IDN + int64(n)
}

// cacheGetNode picks a cache slot to hold chunk kN, reusing a free slot
// or rotating to the next slot that is not the chunk containing TailN
// (to avoid thrashing writes to the most recent chunk).
func (d *Dataset) cacheGetNode() int {
	for n := range d.cache {
		if d.cache[n].chunk < 0 {
			return n
		}
	}
	tailChunk, _ := d.ChunkOf(d.TailN)
	n := d.cacheID + 1
	if n >= limits.ChunkCache {
		n = 0
	}
	if d.cache[n].chunk == tailChunk {
		n++
		if n >= limits.ChunkCache {
			n = 0
		}
	}
	d.cacheID = n
	return n
}

func (d *Dataset) cacheFetch(kN int) {
	xN := d.cacheGetNode()
	entry := &d.cache[xN]

	if entry.data != nil {
		kNZ := entry.chunk
		if entry.dirty {
			d.compressChunk(kNZ, entry.data)
		}
		d.raw[kNZ] = nil
	} else {
		entry.data = make([]float64, d.rowsPerChunk*d.rowWidth)
	}

	entry.chunk = kN
	entry.dirty = false
	d.raw[kN] = entry.data

	if blob := d.compressed[kN]; blob != nil {
		if err := decompressInto(blob, entry.data); err != nil {
			plog.Errorf("store: decompress chunk %d of dataset %d: %v", kN, d.id, err)
		}
	} else {
		for i := range entry.data {
			entry.data[i] = math.NaN()
		}
	}
}

func (d *Dataset) compressChunk(kN int, data []float64) {
	blob, err := compressFloats(data)
	if err != nil {
		plog.Errorf("store: compress chunk %d of dataset %d: %v", kN, d.id, err)
		d.compressed[kN] = nil
		return
	}
	d.compressed[kN] = blob
}

func (d *Dataset) chunkFetch(kN int) {
	if d.raw[kN] == nil && d.LengthN != 0 {
		d.cacheFetch(kN)
	}
}

func (d *Dataset) chunkWrite(kN int) {
	if d.raw[kN] == nil && d.LengthN != 0 {
		d.cacheFetch(kN)
	}
	if d.raw[kN] != nil {
		for n := range d.cache {
			if d.cache[n].chunk == kN {
				d.cache[n].dirty = true
				break
			}
		}
	}
}

func (d *Dataset) wipeRangeCache(kN int) {
	if d.invalidator == nil {
		return
	}
	if d.lastWipeChunk != kN {
		d.invalidator.InvalidateChunk(d.id, kN)
		d.lastWipeChunk = kN
	}
}

// Insert copies row (length ColumnN) into the next ring slot, evicting
// the oldest row on overflow. It fails silently (drops the row) only if
// the target chunk could not be materialized.
func (d *Dataset) Insert(row []float64) {
	kN, jN := d.ChunkOf(d.TailN)

	if d.compress {
		d.chunkWrite(kN)
	}
	d.wipeRangeCache(kN)

	place := d.raw[kN]
	if place == nil {
		plog.Errorf("store: chunk %d of dataset %d unavailable, dropping row", kN, d.id)
		return
	}

	off := jN * d.rowWidth
	copy(place[off:off+d.ColumnN], row)

	tN := d.TailN
	if tN < d.LengthN-1 {
		tN++
	} else {
		tN = 0
	}
	if d.HeadN == tN {
		d.IDN++
		if d.HeadN < d.LengthN-1 {
			d.HeadN++
		} else {
			d.HeadN = 0
		}
		if d.SubN == tN {
			d.SubN = d.HeadN
		}
	}
	d.TailN = tN
}

// Get returns a read-only view of row r and advances r to the next ring
// index. It returns nil, false when r == TailN.
func (d *Dataset) Get(r *int) ([]float64, bool) {
	// A read ends the current write streak, so the next Write or Insert
	// invalidates its chunk's range-cache bounds again.
	d.lastWipeChunk = -1
	if *r == d.TailN {
		return nil, false
	}
	kN, jN := d.ChunkOf(*r)
	if d.compress {
		d.chunkFetch(kN)
	}
	row := d.raw[kN]
	if row == nil {
		return nil, false
	}
	off := jN * d.rowWidth
	if *r < d.LengthN-1 {
		*r++
	} else {
		*r = 0
	}
	return row[off : off+d.rowWidth], true
}

// Write is like Get but also marks the chunk dirty and invalidates the
// range cache entry for (d, chunk_of_r) once per write streak.
func (d *Dataset) Write(r *int) ([]float64, bool) {
	if *r == d.TailN {
		return nil, false
	}
	kN, jN := d.ChunkOf(*r)
	if d.compress {
		d.chunkWrite(kN)
	}
	d.wipeRangeCache(kN)

	row := d.raw[kN]
	if row == nil {
		return nil, false
	}
	off := jN * d.rowWidth
	if *r < d.LengthN-1 {
		*r++
	} else {
		*r = 0
	}
	return row[off : off+d.rowWidth], true
}

// Skip advances the ring cursor r (and logical id idN, if non-nil) by n
// rows, clamped to [head, tail].
func (d *Dataset) Skip(r *int, idN *int64, n int) {
	lN := d.LengthN

	pos := *r - d.HeadN
	if pos < 0 {
		pos += lN
	}
	tpos := d.TailN - d.HeadN
	if tpos < 0 {
		tpos += lN
	}

	if pos+n < 0 {
		n = -pos
	}
	if pos+n > tpos {
		n = tpos - pos
	}
	pos += n

	nr := d.HeadN + pos
	if nr > lN-1 {
		nr -= lN
	}
	*r = nr
	if idN != nil {
		*idN += int64(n)
	}
}

// ValueAt reads column c of ring row r directly (fetching its chunk if
// compressed), without advancing any cursor.
func (d *Dataset) ValueAt(r, c int) float64 {
	kN, jN := d.ChunkOf(r)
	if d.compress {
		d.chunkFetch(kN)
	}
	row := d.raw[kN]
	if row == nil {
		return math.NaN()
	}
	return row[jN*d.rowWidth+c]
}

// TailChunk returns the chunk index containing TailN, used by the range
// cache to always rescan the in-progress tail chunk rather than trust a
// stale cached bound for it.
func (d *Dataset) TailChunk() int {
	c, _ := d.ChunkOf(d.TailN)
	return c
}

// ChunkCount returns the number of whole chunks the dataset spans.
func (d *Dataset) ChunkCount() int {
	if d.rowsPerChunk == 0 {
		return 0
	}
	return (d.LengthN + d.rowsPerChunk - 1) / d.rowsPerChunk
}

// MemoryUsage reports the number of bytes currently held, compressed or
// not (mirrors plotDataMemoryUsage).
func (d *Dataset) MemoryUsage() uint64 {
	var n uint64
	bsize := uint64(d.rowsPerChunk * d.rowWidth * 8)
	for k := 0; k < limits.ChunkMax; k++ {
		if d.raw[k] != nil {
			n += bsize
		}
		if d.compressed[k] != nil {
			n += uint64(len(d.compressed[k]))
		}
	}
	return n
}
