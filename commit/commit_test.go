package commit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func setup(t *testing.T) (*algebra.Context, *Key) {
	ctx, err := algebra.NewContext(algebra.DefaultParams)
	require.NoError(t, err)
	key := KeyGen(ctx)
	require.NoError(t, key.Check(ctx))
	return ctx, key
}

func TestCommit_Open(t *testing.T) {
	ctx, key := setup(t)
	m := ctx.SampleUniform()
	c, o := Commit(ctx, key, m)

	require.True(t, Open(ctx, key, c, m, o))
	require.False(t, Open(ctx, key, c, ctx.Add(m, ctx.One()), o))
	require.False(t, Open(ctx, key, c, m, nil))
	require.False(t, Open(ctx, key, c, m, &Opening{R: o.R[:1]}))

	long := &Opening{R: []algebra.Poly{ctx.SampleUniform(), o.R[1], o.R[2]}, F: ctx.One()}
	err := Verify(ctx, key, c, m, long)
	require.True(t, xerrors.Is(err, lbvs.ErrOpeningInvalid))

	c2 := Commitment{C1: c.C1, C2: ctx.Add(c.C2, ctx.One())}
	require.False(t, Open(ctx, key, c2, m, o))
}

func TestCommit_Randomness(t *testing.T) {
	ctx, key := setup(t)
	m := ctx.SampleTernary()
	r := ctx.SampleTernaryVector(ctx.Params().Width)

	c1, _, err := CommitWith(ctx, key, m, r)
	require.NoError(t, err)
	c2, _, err := CommitWith(ctx, key, m, r)
	require.NoError(t, err)
	c3, _ := Commit(ctx, key, m)
	require.True(t, Equal(ctx, c1, c2))
	require.False(t, Equal(ctx, c1, c3))
}

func TestCommitWith_BadRandomness(t *testing.T) {
	ctx, key := setup(t)
	m := ctx.SampleTernary()
	w := ctx.Params().Width

	_, _, err := CommitWith(ctx, key, m, ctx.SampleTernaryVector(w-1))
	require.Error(t, err)
	_, _, err = CommitWith(ctx, key, m, ctx.SampleTernaryVector(w+1))
	require.Error(t, err)
	_, _, err = CommitWith(ctx, key, m, nil)
	require.Error(t, err)

	short := ctx.SampleTernaryVector(w)
	short[1] = algebra.Poly{Coeffs: short[1].Coeffs[:1]}
	_, _, err = CommitWith(ctx, key, m, short)
	require.Error(t, err)
}

func TestCommit_Homomorphism(t *testing.T) {
	ctx, key := setup(t)
	for i := 0; i < 100; i++ {
		m1, m2 := ctx.SampleUniform(), ctx.SampleUniform()
		c1, o1 := Commit(ctx, key, m1)
		c2, o2 := Commit(ctx, key, m2)

		sum := Add(ctx, c1, c2)
		o := AddOpenings(ctx, o1, o2)
		require.True(t, Open(ctx, key, sum, ctx.Add(m1, m2), o))

		diff := Sub(ctx, sum, c2)
		require.True(t, Equal(ctx, c1, diff))
	}
}

func TestCommit_Constant(t *testing.T) {
	ctx, key := setup(t)
	m, rho := ctx.SampleUniform(), ctx.SampleUniform()
	c, o := Commit(ctx, key, m)

	shifted := Sub(ctx, c, CommitConstant(ctx, rho))
	require.True(t, Open(ctx, key, shifted, ctx.Sub(m, rho), o))
}

func TestCommit_MessageRecover(t *testing.T) {
	ctx, key := setup(t)
	m := ctx.SampleTernary()
	c, o := Commit(ctx, key, m)

	got, err := MessageRecover(ctx, key, c, o)
	require.NoError(t, err)
	require.True(t, ctx.Equal(m, got))

	bad := Commitment{C1: ctx.Add(c.C1, ctx.One()), C2: c.C2}
	_, err = MessageRecover(ctx, key, bad, o)
	require.True(t, xerrors.Is(err, lbvs.ErrMessageRecoveryFailed))

	_, err = MessageRecover(ctx, key, c, &Opening{R: o.R, F: ctx.MinusOne()})
	require.True(t, xerrors.Is(err, lbvs.ErrMessageRecoveryFailed))

	_, err = MessageRecover(ctx, key, c, nil)
	require.Error(t, err)
}

func TestOpening_Wipe(t *testing.T) {
	ctx, key := setup(t)
	_, o := Commit(ctx, key, ctx.One())
	o.Wipe()
	for _, r := range o.R {
		require.True(t, ctx.IsZero(r))
	}
	require.True(t, ctx.IsZero(o.F))
	var nilOpening *Opening
	nilOpening.Wipe()
}

func TestKey_Check(t *testing.T) {
	ctx, key := setup(t)
	bad := &Key{B1: key.B1, B2: []algebra.Poly{key.B2[1], key.B2[0], key.B2[2]}}
	require.Error(t, bad.Check(ctx))
	require.Error(t, (&Key{}).Check(ctx))
}
