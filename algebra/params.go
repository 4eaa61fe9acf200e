package algebra

import (
	"math"

	"golang.org/x/xerrors"
)

// Params are the public lattice parameters of an election.
type Params struct {
	N          int     // N is the ring degree, the ring is Z_Q[X]/(X^N+1).
	Q          uint64  // Q is an NTT-friendly prime, Q = 1 mod 2N.
	Width      int     // Width is the length of a commitment opening.
	Kappa      int     // Kappa is the number of nonzero coefficients of a challenge.
	SigmaC     float64 // SigmaC is the mask width of the commitment proofs.
	SigmaE     float64 // SigmaE is the mask width of the encryption proof.
	RejectionM float64 // RejectionM is the rejection sampling constant.
	TailCut    float64 // TailCut scales the accepted response norms.
}

// DefaultParams are the parameters used when an election file does not
// override them.
var DefaultParams = Params{
	N:          1024,
	Q:          4294955009,
	Width:      3,
	Kappa:      36,
	SigmaC:     54000,
	SigmaE:     54000,
	RejectionM: 3,
	TailCut:    2,
}

// Validate checks that the parameters describe a usable ring.
func (p Params) Validate() error {
	if p.N < 64 || p.N&(p.N-1) != 0 {
		return xerrors.Errorf("ring degree %d is not a power of two >= 64", p.N)
	}
	if p.Q < 1<<20 || p.Q >= 1<<61 {
		return xerrors.Errorf("modulus %d out of range", p.Q)
	}
	if p.Q%uint64(2*p.N) != 1 {
		return xerrors.Errorf("modulus %d is not 1 mod %d", p.Q, 2*p.N)
	}
	if p.Width < 3 {
		return xerrors.New("commitment width must be at least 3")
	}
	if p.Kappa < 1 || p.Kappa > p.N {
		return xerrors.Errorf("challenge weight %d out of range", p.Kappa)
	}
	if p.SigmaC <= 0 || p.SigmaE <= 0 {
		return xerrors.New("gaussian widths must be positive")
	}
	if p.RejectionM < 1 || p.TailCut < 1 {
		return xerrors.New("rejection constants must be at least 1")
	}
	return nil
}

// Bound returns the largest accepted euclidean norm of a response of the
// given dimension, counted in polynomials, masked at width sigma.
func (p Params) Bound(sigma float64, polys int) float64 {
	return p.TailCut * sigma * math.Sqrt(float64(polys*p.N))
}
