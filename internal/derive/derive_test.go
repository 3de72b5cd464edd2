package derive

import (
	"math"
	"testing"

	"github.com/iafilius/plotcore/internal/lstsq"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/store"
)

const eps = 1e-9

func noResolve(id int) *store.Dataset { return nil }

// TestTimeUnwrapNonDecreasing checks invariant 3: the produced sequence
// is non-decreasing over finite inputs. The exact numeric trajectory
// follows §4.3's two-tick correction (see DESIGN.md open question (f)
// for why this diverges from spec.md §8 scenario B's own worked
// arithmetic, which does not apply its own stated algorithm correctly).
func TestTimeUnwrapNonDecreasing(t *testing.T) {
	d := store.New(0, 1, 64, false, nil)
	p := New(d)
	slotIdx := p.Alloc(TimeUnwrap, Params{Column1: 0})

	for _, v := range []float64{0.0, 0.5, 1.0, 0.2, 0.7, 1.2} {
		d.Insert([]float64{v})
	}
	p.Subtract(-1, noResolve)

	col := p.Column(slotIdx)
	r := d.HeadN
	prev := math.Inf(-1)
	for {
		row, ok := d.Get(&r)
		if !ok {
			break
		}
		v := row[col]
		if v < prev {
			t.Fatalf("time-unwrap output decreased: %v after %v", v, prev)
		}
		prev = v
	}
}

// TestScaleAffine checks invariant 5.
func TestScaleAffine(t *testing.T) {
	d := store.New(0, 1, 64, false, nil)
	p := New(d)
	slotIdx := p.Alloc(Scale, Params{Column1: 0, ScaleA: 2, ScaleB: 3})

	vals := []float64{1, 2, math.NaN(), 4}
	for _, v := range vals {
		d.Insert([]float64{v})
	}
	p.Subtract(-1, noResolve)

	col := p.Column(slotIdx)
	r := d.HeadN
	i := 0
	for {
		row, ok := d.Get(&r)
		if !ok {
			break
		}
		want := vals[i]*2 + 3
		got := row[col]
		if math.IsNaN(vals[i]) {
			if !math.IsNaN(got) {
				t.Fatalf("row %d: got %v, want NaN", i, got)
			}
		} else if got != want {
			t.Fatalf("row %d: got %v, want %v", i, got, want)
		}
		i++
	}
}

// TestFilterCumRunningSum checks invariant 4: the n-th output equals
// the sum of finite inputs up to and including row n.
func TestFilterCumRunningSum(t *testing.T) {
	d := store.New(0, 1, 64, false, nil)
	p := New(d)
	slotIdx := p.Alloc(FilterCum, Params{Column1: 0})

	vals := []float64{1, 2, math.NaN(), 3}
	for _, v := range vals {
		d.Insert([]float64{v})
	}
	p.Subtract(-1, noResolve)

	col := p.Column(slotIdx)
	r := d.HeadN
	want := []float64{1, 3, 3, 6}
	i := 0
	for {
		row, ok := d.Get(&r)
		if !ok {
			break
		}
		if got := row[col]; got != want[i] {
			t.Fatalf("row %d: got %v, want %v", i, got, want[i])
		}
		i++
	}
}

// TestBinarySubAfterResample covers scenario C: dataset X has rows
// (t=0,y=0), (t=1,y=10); dataset Y has a single row (t=0.5,y=5). A
// RESAMPLE of Y.y sampled at X.t, subtracted from X.y, yields
// row deltas [-5, 5] (boundary hold-last on both sides of the single
// source sample).
func TestBinarySubAfterResample(t *testing.T) {
	y := store.New(1, 2, 64, false, nil)
	y.Insert([]float64{0.5, 5})

	x := store.New(0, 2, 64, false, nil)
	p := New(x)

	resampleSlot := p.Alloc(Resample, Params{
		Column1:       0, // X.t drives the sample points
		SourceDataset: y,
		SourceColumnX: 0,
		SourceColumnY: 1,
	})
	subSlot := p.Alloc(BinarySub, Params{Column1: 1, Column2: p.Column(resampleSlot)})

	x.Insert([]float64{0, 0})
	x.Insert([]float64{1, 10})

	p.Subtract(-1, noResolve)

	col := p.Column(subSlot)
	r := x.HeadN
	want := []float64{-5, 5}
	i := 0
	for {
		row, ok := x.Get(&r)
		if !ok {
			break
		}
		if got := row[col]; got < want[i]-eps || got > want[i]+eps {
			t.Fatalf("row %d: got %v, want %v", i, got, want[i])
		}
		i++
	}
}

// TestGarbageSweepFreesUnreferencedSlot covers invariant 9's derived
// slot half: a slot not read by anything and not feeding another slot
// is freed.
func TestGarbageSweepFreesUnreferencedSlot(t *testing.T) {
	d := store.New(0, 1, 64, false, nil)
	p := New(d)
	idx := p.Alloc(Scale, Params{Column1: 0, ScaleA: 1, ScaleB: 0})

	p.GarbageSweep(func(col int) bool { return false })

	if p.Kind(idx) != Free {
		t.Fatalf("expected slot %d freed, still has kind %v", idx, p.Kind(idx))
	}
}

// TestScaleDedupReusesSlot checks the SCALE dedup-by-parameters rule
// from §4.3.
func TestScaleDedupReusesSlot(t *testing.T) {
	d := store.New(0, 1, 64, false, nil)
	p := New(d)
	a := p.Alloc(Scale, Params{Column1: 0, ScaleA: 2, ScaleB: 1})
	b := p.Alloc(Scale, Params{Column1: 0, ScaleA: 2, ScaleB: 1})
	if a != b {
		t.Fatalf("expected duplicate SCALE alloc to reuse slot %d, got %d", a, b)
	}
	c := p.Alloc(Scale, Params{Column1: 0, ScaleA: 3, ScaleB: 1})
	if c == a {
		t.Fatalf("expected differently-parameterized SCALE to allocate a new slot")
	}
}

// TestPolyfitFitThenEvaluate fits y = 0.1 + 0.2x exactly over a viewport
// covering every row, then checks the POLYFIT slot evaluates each row
// back to its true y (§4.3's static-polynomial evaluation, using
// internal/lstsq as the external least-squares collaborator).
func TestPolyfitFitThenEvaluate(t *testing.T) {
	rc := rangecache.New()
	d := store.New(0, 2, 64, false, rc)
	p := New(d)

	xs := []float64{0, 0.5, 1}
	for _, x := range xs {
		d.Insert([]float64{x, 0.1 + 0.2*x})
	}

	idx := p.Alloc(Polyfit, Params{Column1: 0, PolyDegree: 1})
	solver := lstsq.New()
	p.FitPolyfit(idx, solver, rc, 0, 1, 1, 0, 1, 0, 1)
	p.Subtract(idx, noResolve)

	col := p.Column(idx)
	r := d.HeadN
	i := 0
	for {
		row, ok := d.Get(&r)
		if !ok {
			break
		}
		want := 0.1 + 0.2*xs[i]
		if got := row[col]; got < want-1e-6 || got > want+1e-6 {
			t.Fatalf("row %d: got %v, want %v", i, got, want)
		}
		i++
	}
}
