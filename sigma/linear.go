package sigma

import (
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
)

// LinearProof shows that x2 = alpha*x1 + beta for the messages of two
// commitments and public alpha, beta.
type LinearProof Proof

// SumProof shows that x3 = x1 + x2 for the messages of three commitments.
type SumProof Proof

func linear(alpha, beta algebra.Poly, c1, c2 commit.Commitment, minusOne algebra.Poly) *Relation {
	return &Relation{
		Label: "linear",
		Terms: []Term{{Alpha: alpha, C: c1}, {Alpha: minusOne, C: c2}},
		Const: beta,
	}
}

// ProveLinear proves that the message of c2 is alpha times the message of
// c1 plus beta.
func ProveLinear(ctx *algebra.Context, key *commit.Key, alpha, beta algebra.Poly,
	c1, c2 commit.Commitment, o1, o2 *commit.Opening) (*LinearProof, error) {
	p, err := ProveRelation(ctx, key, linear(alpha, beta, c1, c2, ctx.MinusOne()), []*commit.Opening{o1, o2})
	return (*LinearProof)(p), err
}

// VerifyLinear checks a linear proof.
func VerifyLinear(ctx *algebra.Context, key *commit.Key, alpha, beta algebra.Poly,
	c1, c2 commit.Commitment, proof *LinearProof) bool {
	err := VerifyRelation(ctx, key, linear(alpha, beta, c1, c2, ctx.MinusOne()), (*Proof)(proof))
	if err != nil {
		log.Lvl3("linear proof:", err)
	}
	return err == nil
}

func sum(ctx *algebra.Context, c1, c2, c3 commit.Commitment) *Relation {
	return &Relation{
		Label: "sum",
		Terms: []Term{{Alpha: ctx.One(), C: c1}, {Alpha: ctx.One(), C: c2}, {Alpha: ctx.MinusOne(), C: c3}},
		Const: ctx.Zero(),
	}
}

// ProveSum proves that the message of c3 is the sum of the messages of c1
// and c2.
func ProveSum(ctx *algebra.Context, key *commit.Key, c1, c2, c3 commit.Commitment,
	o1, o2, o3 *commit.Opening) (*SumProof, error) {
	p, err := ProveRelation(ctx, key, sum(ctx, c1, c2, c3), []*commit.Opening{o1, o2, o3})
	return (*SumProof)(p), err
}

// CheckSum verifies a sum proof and returns ErrSumProofInvalid on failure.
func CheckSum(ctx *algebra.Context, key *commit.Key, c1, c2, c3 commit.Commitment, proof *SumProof) error {
	if err := VerifyRelation(ctx, key, sum(ctx, c1, c2, c3), (*Proof)(proof)); err != nil {
		return xerrors.Errorf("%v: %w", err, lbvs.ErrSumProofInvalid)
	}
	return nil
}

// VerifySum tells if the sum proof is valid.
func VerifySum(ctx *algebra.Context, key *commit.Key, c1, c2, c3 commit.Commitment, proof *SumProof) bool {
	err := CheckSum(ctx, key, c1, c2, c3, proof)
	if err != nil {
		log.Lvl3(err)
	}
	return err == nil
}
