// Package commit implements a linearly homomorphic commitment to ring
// elements, hiding and binding under module-SIS/LWE.
//
// The key is B1 = [1, a1, ..., a_{w-1}], b2 = [0, 1, a'_2, ..., a'_{w-1}]
// for uniform a's, and a message m is committed with a short vector r as
//
//	c1 = <B1, r>
//	c2 = <b2, r> + m
package commit

import (
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
)

// Key is the public commitment key.
type Key struct {
	B1 []algebra.Poly
	B2 []algebra.Poly
}

// Commitment to a single ring element.
type Commitment struct {
	C1 algebra.Poly
	C2 algebra.Poly
}

// Opening of a commitment. F is the relaxation factor, one for openings
// produced by Commit.
type Opening struct {
	R []algebra.Poly
	F algebra.Poly
}

// Wipe zeroes the opening.
func (o *Opening) Wipe() {
	if o == nil {
		return
	}
	for _, r := range o.R {
		r.Wipe()
	}
	o.F.Wipe()
}

// KeyGen returns a fresh commitment key.
func KeyGen(ctx *algebra.Context) *Key {
	w := ctx.Params().Width
	k := &Key{B1: make([]algebra.Poly, w), B2: make([]algebra.Poly, w)}
	k.B1[0] = ctx.One()
	k.B2[0] = ctx.Zero()
	k.B2[1] = ctx.One()
	for i := 1; i < w; i++ {
		k.B1[i] = ctx.SampleUniform()
		if i > 1 {
			k.B2[i] = ctx.SampleUniform()
		}
	}
	return k
}

// Check validates the shape of the key.
func (k *Key) Check(ctx *algebra.Context) error {
	w := ctx.Params().Width
	if err := ctx.CheckVector(k.B1, w); err != nil {
		return xerrors.Errorf("B1: %v", err)
	}
	if err := ctx.CheckVector(k.B2, w); err != nil {
		return xerrors.Errorf("b2: %v", err)
	}
	if !ctx.Equal(k.B1[0], ctx.One()) || !ctx.IsZero(k.B2[0]) || !ctx.Equal(k.B2[1], ctx.One()) {
		return xerrors.New("commitment key is not in systematic form")
	}
	return nil
}

// Check validates the shape of the commitment.
func (c Commitment) Check(ctx *algebra.Context) error {
	if err := ctx.Check(c.C1); err != nil {
		return err
	}
	return ctx.Check(c.C2)
}

// Commit commits to msg with a fresh ternary vector.
func Commit(ctx *algebra.Context, key *Key, msg algebra.Poly) (Commitment, *Opening) {
	return commit(ctx, key, msg, ctx.SampleTernaryVector(ctx.Params().Width))
}

// CommitWith commits to msg with the given randomness, which must be a
// vector of Width reduced polynomials.
func CommitWith(ctx *algebra.Context, key *Key, msg algebra.Poly, rnd []algebra.Poly) (Commitment, *Opening, error) {
	if err := ctx.CheckVector(rnd, ctx.Params().Width); err != nil {
		return Commitment{}, nil, xerrors.Errorf("randomness: %v", err)
	}
	if err := ctx.Check(msg); err != nil {
		return Commitment{}, nil, xerrors.Errorf("message: %v", err)
	}
	c, o := commit(ctx, key, msg, rnd)
	return c, o, nil
}

func commit(ctx *algebra.Context, key *Key, msg algebra.Poly, rnd []algebra.Poly) (Commitment, *Opening) {
	c := Commitment{
		C1: ctx.InnerProduct(key.B1, rnd),
		C2: ctx.Add(ctx.InnerProduct(key.B2, rnd), msg),
	}
	return c, &Opening{R: rnd, F: ctx.One()}
}

// CommitConstant commits to msg with null randomness. It is the public
// offset added to a commitment to shift its message.
func CommitConstant(ctx *algebra.Context, msg algebra.Poly) Commitment {
	return Commitment{C1: ctx.Zero(), C2: ctx.Copy(msg)}
}

// OpeningBound is the largest accepted euclidean norm of an opening.
func OpeningBound(ctx *algebra.Context) float64 {
	p := ctx.Params()
	return 2 * p.Bound(p.SigmaC, p.Width)
}

// Verify is Open returning the reason of a failure.
func Verify(ctx *algebra.Context, key *Key, c Commitment, msg algebra.Poly, o *Opening) error {
	if o == nil || ctx.CheckVector(o.R, ctx.Params().Width) != nil {
		return lbvs.ErrOpeningInvalid
	}
	f := o.F
	if f.Coeffs == nil {
		f = ctx.One()
	}
	if ctx.IsZero(f) || ctx.NormInf(f) > 2 {
		return xerrors.Errorf("relaxation factor out of range: %w", lbvs.ErrOpeningInvalid)
	}
	bound := OpeningBound(ctx)
	if ctx.Norm2Sq(o.R...) > bound*bound {
		return xerrors.Errorf("opening too long: %w", lbvs.ErrOpeningInvalid)
	}
	if !ctx.Equal(ctx.Mul(f, c.C1), ctx.InnerProduct(key.B1, o.R)) {
		return xerrors.Errorf("first coordinate: %w", lbvs.ErrOpeningInvalid)
	}
	rhs := ctx.Add(ctx.InnerProduct(key.B2, o.R), ctx.Mul(f, msg))
	if !ctx.Equal(ctx.Mul(f, c.C2), rhs) {
		return xerrors.Errorf("second coordinate: %w", lbvs.ErrOpeningInvalid)
	}
	return nil
}

// Open tells if o opens c to msg.
func Open(ctx *algebra.Context, key *Key, c Commitment, msg algebra.Poly, o *Opening) bool {
	err := Verify(ctx, key, c, msg, o)
	if err != nil {
		log.Lvl3("open:", err)
	}
	return err == nil
}

// MessageRecover returns the message committed in c given an opening with
// unit relaxation factor.
func MessageRecover(ctx *algebra.Context, key *Key, c Commitment, o *Opening) (algebra.Poly, error) {
	if o == nil || ctx.CheckVector(o.R, ctx.Params().Width) != nil {
		return algebra.Poly{}, lbvs.ErrMessageRecoveryFailed
	}
	if o.F.Coeffs != nil && !ctx.Equal(o.F, ctx.One()) {
		return algebra.Poly{}, xerrors.Errorf("relaxed opening: %w", lbvs.ErrMessageRecoveryFailed)
	}
	bound := OpeningBound(ctx)
	if ctx.Norm2Sq(o.R...) > bound*bound {
		return algebra.Poly{}, xerrors.Errorf("opening too long: %w", lbvs.ErrMessageRecoveryFailed)
	}
	if c.Check(ctx) != nil || !ctx.Equal(c.C1, ctx.InnerProduct(key.B1, o.R)) {
		return algebra.Poly{}, xerrors.Errorf("opening does not match: %w", lbvs.ErrMessageRecoveryFailed)
	}
	return ctx.Sub(c.C2, ctx.InnerProduct(key.B2, o.R)), nil
}

// Add returns the commitment to the sum of the messages.
func Add(ctx *algebra.Context, a, b Commitment) Commitment {
	return Commitment{C1: ctx.Add(a.C1, b.C1), C2: ctx.Add(a.C2, b.C2)}
}

// Sub returns the commitment to the difference of the messages.
func Sub(ctx *algebra.Context, a, b Commitment) Commitment {
	return Commitment{C1: ctx.Sub(a.C1, b.C1), C2: ctx.Sub(a.C2, b.C2)}
}

// AddOpenings returns the opening of Add(a, b). Both must have unit
// relaxation factor.
func AddOpenings(ctx *algebra.Context, a, b *Opening) *Opening {
	return &Opening{R: ctx.AddVector(a.R, b.R), F: ctx.One()}
}

// Equal tells if both commitments are identical.
func Equal(ctx *algebra.Context, a, b Commitment) bool {
	return ctx.Equal(a.C1, b.C1) && ctx.Equal(a.C2, b.C2)
}

// Statement writes the commitments to a transcript.
func Statement(t *algebra.Transcript, label string, cs ...Commitment) {
	t.Label(label)
	t.Uint64(uint64(len(cs)))
	for _, c := range cs {
		t.Poly("c", c.C1, c.C2)
	}
}

// Bind writes the key to a transcript.
func (k *Key) Bind(t *algebra.Transcript) {
	t.Poly("B1", k.B1...)
	t.Poly("b2", k.B2...)
}
