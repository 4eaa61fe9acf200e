package scheme

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/election"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

var board = election.Question{Text: "Board", Answers: []string{"alice", "bob", "carol"}, Min: 1, Max: 2}

type fixture struct {
	s  *Scheme
	pk *PK
	dk *DK
	ck *CK
}

func newFixture(t *testing.T) *fixture {
	ctx, err := algebra.NewContext(algebra.DefaultParams)
	require.NoError(t, err)
	f := &fixture{s: New(ctx)}
	f.pk, f.dk, f.ck = f.s.Setup()
	require.NoError(t, f.pk.Check(ctx))
	return f
}

func (f *fixture) vote(t *testing.T, sel ...int) algebra.Poly {
	v, err := election.EncodeVote(f.s.Context(), sel)
	require.NoError(t, err)
	return v
}

func TestScheme_Code(t *testing.T) {
	f := newFixture(t)
	ctx := f.s.Context()
	vvk, vck, precode := f.s.Register(f.pk)
	v := f.vote(t, 0, 2)

	ev, proof, err := f.s.Cast(f.pk, vck, v)
	require.NoError(t, err)
	require.NoError(t, f.s.CheckBallot(f.pk, vvk, ev, proof))

	r, ok := f.s.Code(f.pk, f.ck, vvk, ev, proof)
	require.True(t, ok)
	require.True(t, ctx.Equal(precode(v), r))

	key := NewPRFKey()
	require.Equal(t, f.s.ExpectedCode(key, vck.A, v), f.s.PRF(key, r))

	table, err := f.s.ComputeTable(key, vck.A, &board)
	require.NoError(t, err)
	require.Len(t, table, 6)
	require.Equal(t, f.s.PRF(key, r), table[ctx.Encode(r)])

	b64, err := f.s.ComputeTableBase64(key, vck.A, &board)
	require.NoError(t, err)
	require.Len(t, b64, 6)
}

func TestScheme_CodeRejects(t *testing.T) {
	f := newFixture(t)
	ctx := f.s.Context()
	vvk, vck, _ := f.s.Register(f.pk)
	other, _, _ := f.s.Register(f.pk)
	ev, proof, err := f.s.Cast(f.pk, vck, f.vote(t, 1))
	require.NoError(t, err)

	_, ok := f.s.Code(f.pk, f.ck, other, ev, proof)
	require.False(t, ok)
	err = f.s.CheckBallot(f.pk, other, ev, proof)
	require.True(t, xerrors.Is(err, lbvs.ErrSumProofInvalid))

	tampered := *ev
	tampered.EC = ctx.Neg(ev.EC)
	err = f.s.CheckBallot(f.pk, vvk, &tampered, proof)
	require.True(t, xerrors.Is(err, lbvs.ErrVerifiableEncryptionInvalid))

	// The precode encryption must be under pk_R.
	swapped := *f.pk
	swapped.R = f.pk.V
	_, ok = f.s.Code(&swapped, f.ck, vvk, ev, proof)
	require.False(t, ok)

	_, ok = f.s.Code(f.pk, f.ck, vvk, ev, nil)
	require.False(t, ok)
}

func TestScheme_CastVotes(t *testing.T) {
	f := newFixture(t)
	questions := []election.Question{board, {Text: "Budget", Answers: []string{"yes", "no"}, Min: 1, Max: 1}}

	_, vck, _ := f.s.Register(f.pk)
	ballots, proofs, err := f.s.CastVotes(f.pk, vck, questions, [][]int{{0, 1, 2}, {0}})
	require.True(t, xerrors.Is(err, lbvs.ErrInvalidVote))
	require.Nil(t, ballots)
	require.Nil(t, proofs)
	require.True(t, f.s.Context().IsZero(vck.A))

	vvk, vck, _ := f.s.Register(f.pk)
	_, _, err = f.s.CastVotes(f.pk, vck, questions, [][]int{{0}})
	require.True(t, xerrors.Is(err, lbvs.ErrInvalidVote))

	_, vck, _ = f.s.Register(f.pk)
	_, _, err = f.s.CastVotes(f.pk, vck, questions, [][]int{{0}, {1, 1}})
	require.True(t, xerrors.Is(err, lbvs.ErrInvalidVote))

	vvk, vck, _ = f.s.Register(f.pk)
	ballots, proofs, err = f.s.CastVotes(f.pk, vck, questions, [][]int{{2}, {1}})
	require.NoError(t, err)
	require.Len(t, ballots, 2)
	for i := range ballots {
		require.NoError(t, f.s.CheckBallot(f.pk, vvk, ballots[i], proofs[i]))
	}
	require.True(t, f.s.Context().IsZero(vck.A))
	require.True(t, vck.Used())

	ballots, proofs, err = f.s.CastVotes(f.pk, vck, questions, [][]int{{1}, {0}})
	require.True(t, xerrors.Is(err, lbvs.ErrAlreadyCast))
	require.Nil(t, ballots)
	require.Nil(t, proofs)
	_, _, err = f.s.CastVotes(f.pk, nil, questions, [][]int{{1}, {0}})
	require.True(t, xerrors.Is(err, lbvs.ErrAlreadyCast))
}

func TestScheme_RegisterPrecode(t *testing.T) {
	f := newFixture(t)
	ctx := f.s.Context()
	_, vck, precode := f.s.Register(f.pk)
	require.False(t, vck.Used())
	v := f.vote(t, 1)
	require.True(t, ctx.Equal(ctx.Add(v, vck.A), precode(v)))

	vck.Wipe()
	require.True(t, vck.Used())
	require.True(t, ctx.Equal(v, precode(v)))
}

func TestScheme_CountVerify(t *testing.T) {
	f := newFixture(t)
	ctx := f.s.Context()
	for _, n := range []int{1, 2, 25} {
		var ballots []*EncryptedBallot
		var cast []string
		for i := 0; i < n; i++ {
			_, vck, _ := f.s.Register(f.pk)
			v := f.vote(t, board.RandomSelection()...)
			ev, _, err := f.s.Cast(f.pk, vck, v)
			require.NoError(t, err)
			ballots = append(ballots, ev)
			cast = append(cast, ctx.Encode(v))
		}

		votes, proof, err := f.s.Count(f.dk, ballots)
		require.NoError(t, err)
		require.True(t, f.s.Verify(f.pk, ballots, votes, proof))

		var counted []string
		for _, v := range votes {
			counted = append(counted, ctx.Encode(v))
		}
		sort.Strings(cast)
		sort.Strings(counted)
		require.Equal(t, cast, counted)

		forged := append([]algebra.Poly{}, votes...)
		forged[0] = f.vote(t, 0, 1, 2)
		err = f.s.CheckCount(f.pk, ballots, forged, proof)
		require.True(t, xerrors.Is(err, lbvs.ErrShuffleProofInvalid))
	}

	_, _, err := f.s.Count(f.dk, nil)
	require.Error(t, err)
}

func TestScheme_CountWrongKey(t *testing.T) {
	f := newFixture(t)
	_, vck, _ := f.s.Register(f.pk)
	ev, _, err := f.s.Cast(f.pk, vck, f.vote(t, 0))
	require.NoError(t, err)

	_, _, err = f.s.Count(&DK{C: f.dk.C, V: f.ck.R}, []*EncryptedBallot{ev})
	require.Error(t, err)
}

func TestEqualCodes(t *testing.T) {
	a := [][]byte{{1, 2}, {3}}
	require.True(t, EqualCodes(a, [][]byte{{1, 2}, {3}}))
	require.False(t, EqualCodes(a, [][]byte{{1, 2}, {4}}))
	require.False(t, EqualCodes(a, a[:1]))
}

func TestKeys_Wipe(t *testing.T) {
	f := newFixture(t)
	ctx := f.s.Context()
	f.dk.Wipe()
	f.ck.Wipe()
	require.True(t, ctx.IsZero(f.dk.V.S))
	require.True(t, ctx.IsZero(f.ck.R.S))

	key := NewPRFKey()
	require.Len(t, key, 32)
	key.Wipe()
	require.Equal(t, make([]byte, 32), []byte(key))
}
