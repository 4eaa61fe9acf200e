// Package scheme composes the commitment, encryption and proof primitives
// into the six algorithms of the voting scheme: Setup, Register, Cast,
// Code, Count and Verify.
package scheme

import (
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
	"go.dedis.ch/lbvs/vericrypt"
)

// Scheme runs the algorithms over a single crypto context.
type Scheme struct {
	ctx *algebra.Context
}

// New returns a scheme over ctx.
func New(ctx *algebra.Context) *Scheme {
	return &Scheme{ctx: ctx}
}

// Context returns the crypto context of the scheme.
func (s *Scheme) Context() *algebra.Context {
	return s.ctx
}

// PK is the public election key (pk_C, pk_V, pk_R).
type PK struct {
	C *commit.Key
	V *vericrypt.PublicKey
	R *vericrypt.PublicKey
}

// Check validates every component of the key.
func (pk *PK) Check(ctx *algebra.Context) error {
	if pk == nil || pk.C == nil {
		return xerrors.New("missing public key")
	}
	if err := pk.C.Check(ctx); err != nil {
		return err
	}
	if err := pk.V.Check(ctx); err != nil {
		return err
	}
	return pk.R.Check(ctx)
}

// DK is the decryption key of the shuffle server (pk_C, dk_V).
type DK struct {
	C *commit.Key
	V *vericrypt.PrivateKey
}

// Wipe zeroes the private part.
func (dk *DK) Wipe() {
	if dk != nil {
		dk.V.Wipe()
	}
}

// CK is the code key of the return code server (pk_C, pk_V, dk_R).
type CK struct {
	C *commit.Key
	V *vericrypt.PublicKey
	R *vericrypt.PrivateKey
}

// Wipe zeroes the private part.
func (ck *CK) Wipe() {
	if ck != nil {
		ck.R.Wipe()
	}
}

// VerificationKey is the public commitment to the blinding of a voter.
type VerificationKey struct {
	CA commit.Commitment
}

// CastingKey is the secret of a voter: the blinding A, its commitment and
// its opening.
type CastingKey struct {
	A  algebra.Poly
	CA commit.Commitment
	DA *commit.Opening
}

// Used tells if the key was wiped, as it is after a cast. A uniform
// blinding is never null.
func (vck *CastingKey) Used() bool {
	if vck == nil || vck.DA == nil {
		return true
	}
	for _, x := range vck.A.Coeffs {
		if x != 0 {
			return false
		}
	}
	return true
}

// Wipe zeroes the blinding and its opening.
func (vck *CastingKey) Wipe() {
	if vck == nil {
		return
	}
	vck.A.Wipe()
	vck.DA.Wipe()
}

// Setup returns fresh election keys.
func (s *Scheme) Setup() (*PK, *DK, *CK) {
	key := commit.KeyGen(s.ctx)
	pkV, dkV := vericrypt.KeyGen(s.ctx)
	pkR, dkR := vericrypt.KeyGen(s.ctx)
	log.Lvl2("Generated the election keys")
	return &PK{C: key, V: pkV, R: pkR},
		&DK{C: key, V: dkV},
		&CK{C: key, V: pkV, R: dkR}
}

// Register returns the keys of a new voter and the precode function
// v -> v + a, kept for self tests. The function reads the blinding of the
// casting key and holds no copy of it: once the key is wiped it returns v.
func (s *Scheme) Register(pk *PK) (*VerificationKey, *CastingKey, func(algebra.Poly) algebra.Poly) {
	a := s.ctx.SampleUniform()
	ca, da := commit.Commit(s.ctx, pk.C, a)
	vck := &CastingKey{A: a, CA: ca, DA: da}
	f := func(v algebra.Poly) algebra.Poly {
		return s.ctx.Add(v, vck.A)
	}
	return &VerificationKey{CA: ca}, vck, f
}
