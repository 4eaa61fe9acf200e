// Package vericrypt is a verifiable RLWE encryption of a short vector m
// bound to a public linear relation u = <t, m>. In the voting scheme m is
// the opening of a commitment, t the first row of the commitment key and u
// the first coordinate of the commitment.
//
// Each coordinate of m is encrypted as (v, w) = (a*rho + e1, b*rho + e2 +
// delta*m). The veritext carries a Fiat-Shamir proof with aborts of
// knowledge of (rho, e1, e2, m) satisfying the encryption equations and the
// relation.
package vericrypt

import (
	"math"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
)

// maxAttempts bounds the rejection sampling loop of the prover.
const maxAttempts = 1000

// PublicKey of the encryption scheme, b = a*s + e.
type PublicKey struct {
	A algebra.Poly
	B algebra.Poly
}

// PrivateKey of the encryption scheme.
type PrivateKey struct {
	S algebra.Poly
}

// Wipe zeroes the private key.
func (sk *PrivateKey) Wipe() {
	if sk != nil {
		sk.S.Wipe()
	}
}

// Ciphertext of a single polynomial.
type Ciphertext struct {
	V algebra.Poly
	W algebra.Poly
}

// Veritext is a list of ciphertexts together with the proof transcript:
// the challenge C and the response Z.
type Veritext struct {
	Cipher []Ciphertext
	C      algebra.Poly
	Z      []algebra.Poly
}

// KeyGen returns a fresh key pair.
func KeyGen(ctx *algebra.Context) (*PublicKey, *PrivateKey) {
	a := ctx.SampleUniform()
	s := ctx.SampleTernary()
	e := ctx.SampleTernary()
	defer e.Wipe()
	return &PublicKey{A: a, B: ctx.Add(ctx.Mul(a, s), e)}, &PrivateKey{S: s}
}

func delta(ctx *algebra.Context) uint64 {
	return ctx.Q() / 4
}

// witness layout: rho | e1 | e2 | m, each of the message width.
type witness []algebra.Poly

func (w witness) part(k, width int) []algebra.Poly {
	return w[k*width : (k+1)*width]
}

// apply computes the linear map of the proven statement: for each
// coordinate a*rho+e1 and b*rho+e2+delta*m, then <t, m>.
func apply(ctx *algebra.Context, pk *PublicKey, t []algebra.Poly, x witness) []algebra.Poly {
	width := len(t)
	rho, e1, e2, m := x.part(0, width), x.part(1, width), x.part(2, width), x.part(3, width)
	out := make([]algebra.Poly, 0, 2*width+1)
	d := delta(ctx)
	for i := 0; i < width; i++ {
		out = append(out, ctx.Add(ctx.Mul(pk.A, rho[i]), e1[i]))
	}
	for i := 0; i < width; i++ {
		w := ctx.Add(ctx.Mul(pk.B, rho[i]), e2[i])
		out = append(out, ctx.Add(w, ctx.MulScalar(m[i], d)))
	}
	return append(out, ctx.InnerProduct(t, m))
}

func statement(cipher []Ciphertext, u algebra.Poly) []algebra.Poly {
	out := make([]algebra.Poly, 0, 2*len(cipher)+1)
	for _, ct := range cipher {
		out = append(out, ct.V)
	}
	for _, ct := range cipher {
		out = append(out, ct.W)
	}
	return append(out, u)
}

func challenge(ctx *algebra.Context, pk *PublicKey, t []algebra.Poly, u algebra.Poly,
	cipher []Ciphertext, w []algebra.Poly) algebra.Poly {
	tr := ctx.NewTranscript("lbvs/vericrypt")
	tr.Poly("pk", pk.A, pk.B)
	tr.Poly("t", t...)
	tr.Poly("u", u)
	tr.Poly("cipher", statement(cipher, u)...)
	tr.Poly("w", w...)
	return tr.Challenge()
}

func bound(ctx *algebra.Context, width int) float64 {
	p := ctx.Params()
	return p.Bound(p.SigmaE, 4*width)
}

// Encrypt encrypts the short vector msg and proves that <t, msg> = u.
func Encrypt(ctx *algebra.Context, pk *PublicKey, t []algebra.Poly, u algebra.Poly,
	msg []algebra.Poly) (*Veritext, bool) {
	width := len(t)
	if len(msg) != width || width == 0 || ctx.NormInf(msg...) > 1 {
		return nil, false
	}
	if !ctx.Equal(ctx.InnerProduct(t, msg), u) {
		log.Lvl2("vericrypt: message does not satisfy the relation")
		return nil, false
	}

	x := make(witness, 0, 4*width)
	x = append(x, ctx.SampleTernaryVector(width)...)
	x = append(x, ctx.SampleTernaryVector(width)...)
	x = append(x, ctx.SampleTernaryVector(width)...)
	for _, m := range msg {
		x = append(x, ctx.Copy(m))
	}
	defer func() {
		for _, p := range x {
			p.Wipe()
		}
	}()

	y := apply(ctx, pk, t, x)
	cipher := make([]Ciphertext, width)
	for i := range cipher {
		cipher[i] = Ciphertext{V: y[i], W: y[width+i]}
	}

	sigma := ctx.Params().SigmaE
	b := bound(ctx, width)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		mask := ctx.SampleGaussianVector(sigma, len(x))
		c := challenge(ctx, pk, t, u, cipher, apply(ctx, pk, t, mask))
		shift := ctx.ScaleVector(c, x)
		z := ctx.AddVector(mask, shift)
		if reject(ctx, z, shift, sigma, b) {
			continue
		}
		log.Lvlf3("vericrypt: accepted after %d attempts", attempt+1)
		return &Veritext{Cipher: cipher, C: c, Z: z}, true
	}
	log.Error("vericrypt: rejection sampling did not terminate")
	return nil, false
}

// reject tells if the response z = y + v must be discarded. It follows the
// gaussian rejection of Lyubashevsky and drops responses above the bound.
func reject(ctx *algebra.Context, z, v []algebra.Poly, sigma, bound float64) bool {
	if ctx.Norm2Sq(z...) > bound*bound {
		return true
	}
	exponent := (-2*ctx.InnerCentered(z, v) + ctx.Norm2Sq(v...)) / (2 * sigma * sigma)
	p := math.Exp(exponent) / ctx.Params().RejectionM
	return ctx.Float() >= p
}

// Check validates the shape of the veritext for the given width.
func (vt *Veritext) Check(ctx *algebra.Context, width int) error {
	if vt == nil || len(vt.Cipher) != width {
		return xerrors.New("wrong number of ciphertexts")
	}
	for _, ct := range vt.Cipher {
		if ctx.Check(ct.V) != nil || ctx.Check(ct.W) != nil {
			return xerrors.New("malformed ciphertext")
		}
	}
	if err := ctx.Check(vt.C); err != nil {
		return err
	}
	return ctx.CheckVector(vt.Z, 4*width)
}

// Check validates the shape of the public key.
func (pk *PublicKey) Check(ctx *algebra.Context) error {
	if pk == nil {
		return xerrors.New("missing public key")
	}
	if err := ctx.Check(pk.A); err != nil {
		return err
	}
	return ctx.Check(pk.B)
}

// Check verifies the veritext and returns the reason of a failure.
func Check(ctx *algebra.Context, vt *Veritext, t []algebra.Poly, u algebra.Poly, pk *PublicKey) error {
	width := len(t)
	if width == 0 || pk.Check(ctx) != nil {
		return xerrors.Errorf("bad statement: %w", lbvs.ErrVerifiableEncryptionInvalid)
	}
	if err := vt.Check(ctx, width); err != nil {
		return xerrors.Errorf("%v: %w", err, lbvs.ErrVerifiableEncryptionInvalid)
	}
	if ctx.NormInf(vt.C) != 1 {
		return xerrors.Errorf("challenge not ternary: %w", lbvs.ErrVerifiableEncryptionInvalid)
	}
	b := bound(ctx, width)
	if ctx.Norm2Sq(vt.Z...) > b*b {
		return xerrors.Errorf("response too long: %w", lbvs.ErrVerifiableEncryptionInvalid)
	}

	az := apply(ctx, pk, t, vt.Z)
	y := statement(vt.Cipher, u)
	w := make([]algebra.Poly, len(az))
	for i := range az {
		w[i] = ctx.Sub(az[i], ctx.Mul(vt.C, y[i]))
	}
	if !ctx.Equal(vt.C, challenge(ctx, pk, t, u, vt.Cipher, w)) {
		return xerrors.Errorf("challenge mismatch: %w", lbvs.ErrVerifiableEncryptionInvalid)
	}
	return nil
}

// Verify tells if the veritext proves an encryption of a message m with
// <t, m> = u under pk.
func Verify(ctx *algebra.Context, vt *Veritext, t []algebra.Poly, u algebra.Poly, pk *PublicKey) bool {
	err := Check(ctx, vt, t, u, pk)
	if err != nil {
		log.Lvl2("vericrypt:", err)
	}
	return err == nil
}

// DecryptCiphertexts decrypts the ciphertexts without looking at a proof.
// The result must be short, else ErrDecryptionFailed is returned.
func DecryptCiphertexts(ctx *algebra.Context, cipher []Ciphertext, sk *PrivateKey) ([]algebra.Poly, error) {
	d := float64(delta(ctx))
	out := make([]algebra.Poly, len(cipher))
	for i, ct := range cipher {
		if ctx.Check(ct.V) != nil || ctx.Check(ct.W) != nil {
			return nil, xerrors.Errorf("malformed ciphertext %d: %w", i, lbvs.ErrDecryptionFailed)
		}
		noisy := ctx.Sub(ct.W, ctx.Mul(ct.V, sk.S))
		m := ctx.Zero()
		for j := range noisy.Coeffs {
			x := math.Round(float64(ctx.Centered(noisy, j)) / d)
			if x < -1 || x > 1 {
				wipeAll(out[:i])
				return nil, xerrors.Errorf("coefficient out of range: %w", lbvs.ErrDecryptionFailed)
			}
			m.Coeffs[j] = ctx.FromInt(int64(x))
		}
		noisy.Wipe()
		out[i] = m
	}
	return out, nil
}

// Decrypt verifies the veritext and decrypts it. It returns the message
// and the relaxation factor of the opening, which is one for this scheme.
func Decrypt(ctx *algebra.Context, vt *Veritext, t []algebra.Poly, u algebra.Poly,
	pk *PublicKey, sk *PrivateKey) ([]algebra.Poly, algebra.Poly, bool) {
	if !Verify(ctx, vt, t, u, pk) {
		return nil, algebra.Poly{}, false
	}
	m, err := DecryptCiphertexts(ctx, vt.Cipher, sk)
	if err != nil {
		log.Lvl2("vericrypt:", err)
		return nil, algebra.Poly{}, false
	}
	if !ctx.Equal(ctx.InnerProduct(t, m), u) {
		log.Lvl2("vericrypt: decrypted message does not satisfy the relation")
		wipeAll(m)
		return nil, algebra.Poly{}, false
	}
	return m, ctx.One(), true
}

func wipeAll(v []algebra.Poly) {
	for _, p := range v {
		p.Wipe()
	}
}
