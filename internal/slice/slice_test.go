package slice

import (
	"testing"

	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

func TestGetReturnsNearestValue(t *testing.T) {
	rc := rangecache.New()
	d := store.New(0, 1, 64, false, rc)
	for _, v := range []float64{1, 4, 9, 16, 25} {
		d.Insert([]float64{v})
	}

	res := Get(d, rc, 0, 10)
	if !res.Found {
		t.Fatal("expected a result")
	}
	if res.Row[0] != 9 {
		t.Fatalf("nearest to 10 = %v, want 9", res.Row[0])
	}
}

func TestGetOutOfRangeFallsBackToNearestChunk(t *testing.T) {
	rc := rangecache.New()
	d := store.New(0, 1, 64, false, rc)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		d.Insert([]float64{v})
	}

	res := Get(d, rc, 0, 1000)
	if !res.Found {
		t.Fatal("expected a result even when target is outside every chunk's range")
	}
	if res.Row[0] != 5 {
		t.Fatalf("nearest to 1000 = %v, want 5", res.Row[0])
	}
}
