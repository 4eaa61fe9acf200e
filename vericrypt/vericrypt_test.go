package vericrypt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

type fixture struct {
	ctx *algebra.Context
	key *commit.Key
	pk  *PublicKey
	sk  *PrivateKey
	c   commit.Commitment
	o   *commit.Opening
}

func newFixture(t *testing.T) *fixture {
	ctx, err := algebra.NewContext(algebra.DefaultParams)
	require.NoError(t, err)
	f := &fixture{ctx: ctx, key: commit.KeyGen(ctx)}
	f.pk, f.sk = KeyGen(ctx)
	f.c, f.o = commit.Commit(ctx, f.key, ctx.SampleTernary())
	return f
}

func TestVericrypt_RoundTrip(t *testing.T) {
	f := newFixture(t)
	vt, ok := Encrypt(f.ctx, f.pk, f.key.B1, f.c.C1, f.o.R)
	require.True(t, ok)
	require.True(t, Verify(f.ctx, vt, f.key.B1, f.c.C1, f.pk))

	m, challenge, ok := Decrypt(f.ctx, vt, f.key.B1, f.c.C1, f.pk, f.sk)
	require.True(t, ok)
	require.True(t, f.ctx.Equal(f.ctx.One(), challenge))
	require.Len(t, m, len(f.o.R))
	for i := range m {
		require.True(t, f.ctx.Equal(f.o.R[i], m[i]))
	}
	require.True(t, commit.Open(f.ctx, f.key, f.c, mustRecover(t, f, m), &commit.Opening{R: m, F: challenge}))

	plain, err := DecryptCiphertexts(f.ctx, vt.Cipher, f.sk)
	require.NoError(t, err)
	require.True(t, f.ctx.Equal(m[0], plain[0]))
}

func mustRecover(t *testing.T, f *fixture, r []algebra.Poly) algebra.Poly {
	msg, err := commit.MessageRecover(f.ctx, f.key, f.c, &commit.Opening{R: r})
	require.NoError(t, err)
	return msg
}

func TestVericrypt_WrongStatement(t *testing.T) {
	f := newFixture(t)
	vt, ok := Encrypt(f.ctx, f.pk, f.key.B1, f.c.C1, f.o.R)
	require.True(t, ok)

	other, _ := commit.Commit(f.ctx, f.key, f.ctx.One())
	err := Check(f.ctx, vt, f.key.B1, other.C1, f.pk)
	require.True(t, xerrors.Is(err, lbvs.ErrVerifiableEncryptionInvalid))

	pk2, sk2 := KeyGen(f.ctx)
	require.False(t, Verify(f.ctx, vt, f.key.B1, f.c.C1, pk2))

	_, _, ok = Decrypt(f.ctx, vt, f.key.B1, f.c.C1, f.pk, sk2)
	require.False(t, ok)
}

func TestVericrypt_Tamper(t *testing.T) {
	f := newFixture(t)
	vt, ok := Encrypt(f.ctx, f.pk, f.key.B1, f.c.C1, f.o.R)
	require.True(t, ok)

	tampered := *vt
	tampered.Cipher = append([]Ciphertext{}, vt.Cipher...)
	tampered.Cipher[1].W = f.ctx.Add(vt.Cipher[1].W, f.ctx.Constant(f.ctx.Q()/4))
	require.False(t, Verify(f.ctx, &tampered, f.key.B1, f.c.C1, f.pk))

	tampered = *vt
	tampered.Z = append([]algebra.Poly{}, vt.Z...)
	tampered.Z[0] = f.ctx.Add(vt.Z[0], f.ctx.One())
	require.False(t, Verify(f.ctx, &tampered, f.key.B1, f.c.C1, f.pk))

	tampered = *vt
	tampered.Z = vt.Z[1:]
	require.False(t, Verify(f.ctx, &tampered, f.key.B1, f.c.C1, f.pk))
	require.False(t, Verify(f.ctx, nil, f.key.B1, f.c.C1, f.pk))
}

func TestVericrypt_BadMessage(t *testing.T) {
	f := newFixture(t)
	_, ok := Encrypt(f.ctx, f.pk, f.key.B1, f.c.C1, f.o.R[:2])
	require.False(t, ok)

	wrong := []algebra.Poly{f.ctx.SampleTernary(), f.o.R[1], f.o.R[2]}
	_, ok = Encrypt(f.ctx, f.pk, f.key.B1, f.c.C1, wrong)
	require.False(t, ok)
}

func TestDecryptCiphertexts_Garbage(t *testing.T) {
	f := newFixture(t)
	ct := []Ciphertext{{V: f.ctx.SampleUniform(), W: f.ctx.SampleUniform()}}
	_, err := DecryptCiphertexts(f.ctx, ct, f.sk)
	require.True(t, xerrors.Is(err, lbvs.ErrDecryptionFailed))

	_, err = DecryptCiphertexts(f.ctx, []Ciphertext{{}}, f.sk)
	require.Error(t, err)
}

func TestPrivateKey_Wipe(t *testing.T) {
	f := newFixture(t)
	f.sk.Wipe()
	require.True(t, f.ctx.IsZero(f.sk.S))
}
