package election

import (
	"math/big"
	"sort"

	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
)

// EncodeVote returns the ring element with a one at every selected answer.
func EncodeVote(ctx *algebra.Context, selection []int) (algebra.Poly, error) {
	v := ctx.Zero()
	for _, i := range selection {
		if i < 0 || i >= ctx.N() {
			return algebra.Poly{}, xerrors.Errorf("answer %d does not fit the ring: %w", i, lbvs.ErrInvalidVote)
		}
		v.Coeffs[i] = 1
	}
	return v, nil
}

// DecodeVote returns the sorted selection encoded in v and checks it
// against the question.
func DecodeVote(ctx *algebra.Context, q *Question, v algebra.Poly) ([]int, error) {
	if err := ctx.Check(v); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, lbvs.ErrInvalidVote)
	}
	var sel []int
	for i, c := range v.Coeffs {
		switch {
		case c == 0:
		case c == 1 && i < len(q.Answers):
			sel = append(sel, i)
		default:
			return nil, xerrors.Errorf("coefficient %d is not a selection: %w", i, lbvs.ErrInvalidVote)
		}
	}
	sort.Ints(sel)
	if err := q.ValidateVote(sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// Tally counts the decrypted votes of one question. A single invalid vote
// makes the whole tally fail since the votes are already past the shuffle.
func Tally(ctx *algebra.Context, q *Question, votes []algebra.Poly) (Results, error) {
	res := Results{Question: q, Counts: make([]int, len(q.Answers))}
	for i, v := range votes {
		sel, err := DecodeVote(ctx, q, v)
		if err != nil {
			return Results{}, xerrors.Errorf("vote %d: %w", i, err)
		}
		for _, a := range sel {
			res.Counts[a]++
		}
	}
	return res, nil
}

func bigInt(x int) *big.Int {
	return big.NewInt(int64(x))
}
