package rangecache

import (
	"math"
	"testing"

	"github.com/iafilius/plotcore/internal/store"
)

func TestFetchReportsTrueRange(t *testing.T) {
	c := New()
	d := store.New(0, 1, 64, false, c)
	for _, v := range []float64{3, 1, math.NaN(), 7, -2} {
		d.Insert([]float64{v})
	}

	e := c.Fetch(d, 0)
	if !e.Finite {
		t.Fatal("expected finite range")
	}
	if e.FMin != -2 || e.FMax != 7 {
		t.Fatalf("range = [%v, %v], want [-2, 7]", e.FMin, e.FMax)
	}
}

func TestWriteInvalidatesComputedBit(t *testing.T) {
	c := New()
	d := store.New(0, 1, 64, false, c)
	for i := 0; i < 5; i++ {
		d.Insert([]float64{float64(i)})
	}
	_ = c.Fetch(d, 0)

	r := d.HeadN
	row, ok := d.Write(&r)
	if !ok {
		t.Fatal("expected writable row")
	}
	row[0] = 999

	// The chunk containing head is now dirty; refetch must pick up 999.
	e := c.Fetch(d, 0)
	if e.FMax != 999 {
		t.Fatalf("FMax = %v, want 999 after write invalidation", e.FMax)
	}
}

func TestAllNonFiniteChunkIsNotFinite(t *testing.T) {
	c := New()
	d := store.New(0, 1, 64, false, c)
	for i := 0; i < 3; i++ {
		d.Insert([]float64{math.NaN()})
	}
	e := c.Fetch(d, 0)
	if e.Finite {
		t.Fatal("expected non-finite aggregate over all-NaN column")
	}
}
