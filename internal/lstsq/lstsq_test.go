package lstsq

import "testing"

const eps = 1e-6

func TestFitsExactLine(t *testing.T) {
	s := New()
	s.Initiate(4, 2, 1)
	// z = 2 + 3x
	for x := 0.0; x <= 5; x++ {
		s.Insert([]float64{1, x, 2 + 3*x})
	}
	coefs, stdev := s.Finalise()
	if len(coefs) != 2 {
		t.Fatalf("len(coefs) = %d, want 2", len(coefs))
	}
	if diff := coefs[0] - 2; diff > eps || diff < -eps {
		t.Errorf("coefs[0] = %v, want 2", coefs[0])
	}
	if diff := coefs[1] - 3; diff > eps || diff < -eps {
		t.Errorf("coefs[1] = %v, want 3", coefs[1])
	}
	if stdev > eps {
		t.Errorf("stdev = %v, want ~0 for an exact fit", stdev)
	}
}

func TestInsufficientRowsReturnsNil(t *testing.T) {
	s := New()
	s.Initiate(4, 3, 1)
	s.Insert([]float64{1, 0, 0, 5})
	coefs, _ := s.Finalise()
	if coefs != nil {
		t.Fatalf("expected nil coefs with fewer rows than columns, got %v", coefs)
	}
}
