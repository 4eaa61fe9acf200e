// Package sigma contains the zero-knowledge proofs on commitments: a proof
// of a linear relation between committed messages, with the linear and sum
// relations as special cases, and a shuffle of known values.
//
// All proofs are made non-interactive with Fiat-Shamir and use gaussian
// masks with rejection sampling.
package sigma

import (
	"math"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
)

const maxAttempts = 1000

// Term is a coefficient applied to the message of a commitment.
type Term struct {
	Alpha algebra.Poly
	C     commit.Commitment
}

// Relation is the statement sum(alpha_j * m_j) + Const = 0 where m_j is the
// message committed in the j-th term.
type Relation struct {
	Label string
	Terms []Term
	Const algebra.Poly
}

// Proof is the transcript of a relation proof: the commitments to the
// masks T, their combined second coordinate U and the flattened responses
// Z, Width polynomials per term.
type Proof struct {
	T []algebra.Poly
	U algebra.Poly
	Z []algebra.Poly
}

func (rel *Relation) challenge(ctx *algebra.Context, key *commit.Key, t []algebra.Poly, u algebra.Poly) algebra.Poly {
	tr := ctx.NewTranscript("lbvs/sigma/" + rel.Label)
	key.Bind(tr)
	tr.Uint64(uint64(len(rel.Terms)))
	for _, term := range rel.Terms {
		tr.Poly("alpha", term.Alpha)
		commit.Statement(tr, "x", term.C)
	}
	tr.Poly("const", rel.Const)
	tr.Poly("t", t...)
	tr.Poly("u", u)
	return tr.Challenge()
}

func bound(ctx *algebra.Context, terms int) float64 {
	p := ctx.Params()
	return p.Bound(p.SigmaC, terms*p.Width)
}

// ProveRelation proves the relation given an opening per term.
func ProveRelation(ctx *algebra.Context, key *commit.Key, rel *Relation, openings []*commit.Opening) (*Proof, error) {
	if len(openings) != len(rel.Terms) || len(rel.Terms) == 0 {
		return nil, xerrors.New("need one opening per term")
	}
	p := ctx.Params()
	witness := make([]algebra.Poly, 0, len(openings)*p.Width)
	for _, o := range openings {
		if o == nil || len(o.R) != p.Width {
			return nil, xerrors.New("malformed opening")
		}
		witness = append(witness, o.R...)
	}
	b := bound(ctx, len(rel.Terms))

	for attempt := 0; attempt < maxAttempts; attempt++ {
		y := ctx.SampleGaussianVector(p.SigmaC, len(witness))
		t := make([]algebra.Poly, len(rel.Terms))
		u := ctx.Zero()
		for j, term := range rel.Terms {
			yj := y[j*p.Width : (j+1)*p.Width]
			t[j] = ctx.InnerProduct(key.B1, yj)
			u = ctx.Add(u, ctx.Mul(term.Alpha, ctx.InnerProduct(key.B2, yj)))
		}
		c := rel.challenge(ctx, key, t, u)
		shift := ctx.ScaleVector(c, witness)
		z := ctx.AddVector(y, shift)
		if reject(ctx, z, shift, p.SigmaC, b) {
			continue
		}
		log.Lvlf3("sigma/%s: accepted after %d attempts", rel.Label, attempt+1)
		return &Proof{T: t, U: u, Z: z}, nil
	}
	return nil, xerrors.New("rejection sampling did not terminate")
}

func reject(ctx *algebra.Context, z, v []algebra.Poly, sigma, bound float64) bool {
	if ctx.Norm2Sq(z...) > bound*bound {
		return true
	}
	exponent := (-2*ctx.InnerCentered(z, v) + ctx.Norm2Sq(v...)) / (2 * sigma * sigma)
	return ctx.Float() >= math.Exp(exponent)/ctx.Params().RejectionM
}

// VerifyRelation checks a relation proof and returns the reason of a
// failure.
func VerifyRelation(ctx *algebra.Context, key *commit.Key, rel *Relation, proof *Proof) error {
	p := ctx.Params()
	n := len(rel.Terms)
	if proof == nil || n == 0 {
		return xerrors.New("empty proof")
	}
	if err := ctx.CheckVector(proof.T, n); err != nil {
		return xerrors.Errorf("t: %v", err)
	}
	if err := ctx.CheckVector(proof.Z, n*p.Width); err != nil {
		return xerrors.Errorf("z: %v", err)
	}
	if err := ctx.Check(proof.U); err != nil {
		return xerrors.Errorf("u: %v", err)
	}
	for _, term := range rel.Terms {
		if term.C.Check(ctx) != nil || ctx.Check(term.Alpha) != nil {
			return xerrors.New("malformed statement")
		}
	}
	b := bound(ctx, n)
	if ctx.Norm2Sq(proof.Z...) > b*b {
		return xerrors.New("response too long")
	}

	c := rel.challenge(ctx, key, proof.T, proof.U)
	lhs := ctx.Zero()
	rhs := ctx.Copy(rel.Const)
	for j, term := range rel.Terms {
		zj := proof.Z[j*p.Width : (j+1)*p.Width]
		if !ctx.Equal(ctx.InnerProduct(key.B1, zj), ctx.Add(proof.T[j], ctx.Mul(c, term.C.C1))) {
			return xerrors.Errorf("term %d: first coordinate does not match", j)
		}
		lhs = ctx.Add(lhs, ctx.Mul(term.Alpha, ctx.InnerProduct(key.B2, zj)))
		rhs = ctx.Add(rhs, ctx.Mul(term.Alpha, term.C.C2))
	}
	if !ctx.Equal(lhs, ctx.Add(proof.U, ctx.Mul(c, rhs))) {
		return xerrors.New("relation does not hold")
	}
	return nil
}
