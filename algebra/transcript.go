package algebra

import (
	"encoding/binary"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
)

// Transcript is a Fiat-Shamir transcript. Everything written to it is
// length prefixed and labelled so two different statements never hash the
// same way.
type Transcript struct {
	ctx *Context
	xof kyber.XOF
}

// NewTranscript starts a transcript for the given protocol label.
func (c *Context) NewTranscript(label string) *Transcript {
	t := &Transcript{ctx: c, xof: blake2xb.New(nil)}
	t.Label(label)
	t.Uint64(uint64(c.params.N))
	t.Uint64(c.params.Q)
	return t
}

// Label writes a domain separator.
func (t *Transcript) Label(label string) {
	t.Raw([]byte(label))
}

// Raw writes a length prefixed byte string.
func (t *Transcript) Raw(b []byte) {
	t.Uint64(uint64(len(b)))
	t.xof.Write(b)
}

// Uint64 writes an integer.
func (t *Transcript) Uint64(x uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	t.xof.Write(buf[:])
}

// Poly writes polynomials under a label.
func (t *Transcript) Poly(label string, ps ...Poly) {
	t.Label(label)
	t.Uint64(uint64(len(ps)))
	for _, p := range ps {
		t.xof.Write(t.ctx.Bytes(p))
	}
}

// Challenge derives a sparse challenge from the current state. The
// transcript can still be written to afterwards.
func (t *Transcript) Challenge() Poly {
	p, err := t.ctx.ChallengeFrom(t.fork("challenge"))
	if err != nil {
		panic(err)
	}
	return p
}

// Uniform derives a uniform ring element from the current state.
func (t *Transcript) Uniform(label string) Poly {
	p, err := t.ctx.UniformFrom(t.fork(label))
	if err != nil {
		panic(err)
	}
	return p
}

func (t *Transcript) fork(label string) kyber.XOF {
	x := t.xof.Clone()
	x.Write([]byte(label))
	return x
}
