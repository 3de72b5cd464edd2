// Package limits collects the fixed-capacity bounds the engine is built
// around. The source (original_source/src/plot.c) allocates every pool —
// datasets, axes, figures, derived-column slots, chunk slots, cache
// entries, sketch chunks — to a compile-time maximum and never grows them.
// We keep that discipline: these are array lengths, not soft defaults.
package limits

const (
	// DatasetMax is the number of dataset slots the engine can hold.
	DatasetMax = 16
	// ColumnMax bounds a dataset's declared column width (excluding derived slots).
	ColumnMax = 32
	// AxisMax is the number of axis slots across all figures.
	AxisMax = 32
	// FigureMax is the number of figure slots.
	FigureMax = 64
	// GroupMax bounds the number of user-defined column groups.
	GroupMax = 16
	// SubtractMax (K) is the number of derived-column slots per dataset.
	SubtractMax = 16

	// ChunkMax is the fixed number of chunk slots per dataset.
	ChunkMax = 1024
	// ChunkCache is the number of decompressed chunk buffers kept live.
	ChunkCache = 8
	// ChunkSize is the target number of bytes per chunk (rows_per_chunk * rowBytes >= ChunkSize).
	ChunkSize = 64 * 1024

	// RangeCacheSize is the number of (dataset, column) range-cache entries kept live.
	RangeCacheSize = 64

	// SliceSpan bounds how many value-containing chunks sliceGet will scan
	// before giving up and returning its best candidate.
	SliceSpan = 4

	// SketchChunkSize is the number of (X,Y) point pairs held per sketch chunk.
	SketchChunkSize = 256
	// SketchChunkMax is the number of sketch chunks in the shared free pool.
	SketchChunkMax = 4096

	// LSQCascadeMax is the cascade count passed to the least-squares
	// collaborator's Initiate; internal/lstsq accepts it but does not
	// use it (it solves in one batch).
	LSQCascadeMax = 4

	// DataBoxMax is the number of text rows the layout data box can hold
	// (one per figure in SLICE mode, one per polyfit coefficient plus a
	// trailing standard-deviation row in POLYFIT mode).
	DataBoxMax = 16
	// MarkMax bounds the number of sample markers laid out per figure.
	MarkMax = 64
)
