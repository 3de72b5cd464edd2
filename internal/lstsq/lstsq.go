// Package lstsq provides the least-squares collaborator used by
// internal/derive's POLYFIT operator (§6's "least-squares solver"
// external collaborator). The collaborator shape — Initiate/Insert/
// Finalise — comes from the cascaded-Cholesky solver the engine was
// distilled from, but POLYFIT only ever needs a single batch solve
// (DESIGN.md open question (d)), so this implementation collects rows
// into a design matrix and solves once via QR rather than maintaining
// the incremental triangular cascade.
package lstsq

import (
	"math"

	"github.com/iafilius/plotcore/internal/plog"
	"gonum.org/v1/gonum/mat"
)

// Solver accumulates rows of (x-powers..., z) and solves the resulting
// linear least-squares system on Finalise. It satisfies
// internal/derive.LeastSquares.
type Solver struct {
	cascades int
	nx, nz   int
	rows     [][]float64
}

// New returns an unconfigured Solver; call Initiate before use.
func New() *Solver {
	return &Solver{}
}

// Initiate configures the solver for a fresh fit. cascades is accepted
// for interface compatibility with the collaborator's cascaded-update
// origin but unused — this implementation always does a single batch
// solve.
func (s *Solver) Initiate(cascades, nx, nz int) {
	s.cascades = cascades
	s.nx = nx
	s.nz = nz
	s.rows = s.rows[:0]
}

// Insert appends one (x-powers..., z) row. row must have length nx+nz.
func (s *Solver) Insert(row []float64) {
	if len(row) != s.nx+s.nz {
		plog.Errorf("lstsq: row length %d, want %d", len(row), s.nx+s.nz)
		return
	}
	cp := make([]float64, len(row))
	copy(cp, row)
	s.rows = append(s.rows, cp)
}

// Finalise solves the accumulated system and returns the coefficient
// vector b (length nx) along with the standard deviation of the
// residual, mirroring lse.h's e(i) = norm(Rz(:,i)) / sqrt(n_total - 1),
// just computed from the QR residual instead of the cascaded
// triangular norm. Only the first z column is fit; POLYFIT's
// collaborator use is always nz == 1.
func (s *Solver) Finalise() (coefs []float64, stdev float64) {
	n := len(s.rows)
	if n < s.nx || s.nx == 0 {
		plog.Errorf("lstsq: insufficient rows for fit: got %d, need >= %d", n, s.nx)
		return nil, 0
	}

	x := mat.NewDense(n, s.nx, nil)
	z := mat.NewVecDense(n, nil)
	for i, row := range s.rows {
		for j := 0; j < s.nx; j++ {
			x.Set(i, j, row[j])
		}
		z.SetVec(i, row[s.nx])
	}

	var qr mat.QR
	qr.Factorize(x)

	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, z); err != nil {
		plog.Errorf("lstsq: QR solve failed: %v", err)
		return nil, 0
	}

	coefs = make([]float64, s.nx)
	for i := 0; i < s.nx; i++ {
		coefs[i] = b.AtVec(i)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &b)
	var resid mat.VecDense
	resid.SubVec(z, &fitted)

	ss := 0.0
	for i := 0; i < n; i++ {
		v := resid.AtVec(i)
		ss += v * v
	}
	denom := float64(n - 1)
	if denom <= 0 {
		denom = 1
	}
	stdev = math.Sqrt(ss / denom)

	return coefs, stdev
}
