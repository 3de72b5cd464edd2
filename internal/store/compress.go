package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"
)

// compressFloats serializes a chunk's float64 buffer to little-endian
// bytes and LZ4-block-compresses it. We use the block codec (not the
// frame format) since each chunk already carries its own length via
// compressed[k]'s slice length and decompressInto's destination buffer
// size — there is no need for the frame format's streaming headers.
func compressFloats(data []float64) ([]byte, error) {
	raw := make([]byte, len(data)*8)
	for i, v := range data {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	bound := lz4.CompressBlockBound(len(raw))
	dst := make([]byte, bound)

	var c lz4.Compressor
	n, err := c.CompressBlock(raw, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible input: CompressBlock reports n==0 rather than
		// growing the output; store the raw bytes verbatim with a
		// sentinel-free length check in decompressInto.
		return raw, nil
	}
	return dst[:n], nil
}

// decompressInto reconstructs data (length already known from the
// caller's buffer) from a compressed or verbatim blob.
func decompressInto(blob []byte, data []float64) error {
	want := len(data) * 8
	if len(blob) == want {
		// Verbatim fallback written by compressFloats when the block
		// codec couldn't shrink the chunk.
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
		}
		return nil
	}

	raw := make([]byte, want)
	n, err := lz4.UncompressBlock(blob, raw)
	if err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != want {
		return fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, want)
	}
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return nil
}
