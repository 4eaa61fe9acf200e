// Package algebra wraps the lattigo ring to provide the polynomial
// arithmetic of the voting scheme over Z_Q[X]/(X^N+1).
//
// A Context is built once per election and handed to every other package.
// Polynomials are kept in coefficient form, reduced mod Q, so they can be
// encoded, compared and wiped directly. Multiplication goes through the
// NTT of the underlying ring.
package algebra

import (
	"math/bits"
	"sync"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
	"golang.org/x/xerrors"
)

// Poly is a ring element in coefficient form.
type Poly struct {
	Coeffs []uint64
}

// Wipe zeroes the coefficients in place.
func (p Poly) Wipe() {
	for i := range p.Coeffs {
		p.Coeffs[i] = 0
	}
}

// Context holds the parameters, the lattigo ring and the samplers.
type Context struct {
	params Params
	ring   *ring.Ring

	mu       sync.Mutex
	uniform  ring.Sampler
	ternary  ring.Sampler
	gaussian map[float64]ring.Sampler
	prng     sampling.PRNG
}

// NewContext validates the parameters and builds the ring.
func NewContext(p Params) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r, err := ring.NewRing(p.N, []uint64{p.Q})
	if err != nil {
		return nil, xerrors.Errorf("building ring: %v", err)
	}
	prng, err := sampling.NewPRNG()
	if err != nil {
		return nil, xerrors.Errorf("seeding prng: %v", err)
	}
	c := &Context{
		params:   p,
		ring:     r,
		prng:     prng,
		gaussian: make(map[float64]ring.Sampler),
	}
	if c.uniform, err = ring.NewSampler(prng, r, ring.Uniform{}, false); err != nil {
		return nil, xerrors.Errorf("uniform sampler: %v", err)
	}
	if c.ternary, err = ring.NewSampler(prng, r, ring.Ternary{P: 2.0 / 3.0}, false); err != nil {
		return nil, xerrors.Errorf("ternary sampler: %v", err)
	}
	for _, sigma := range []float64{p.SigmaC, p.SigmaE} {
		if _, err = c.gaussianSampler(sigma); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Params returns the parameters of the context.
func (c *Context) Params() Params {
	return c.params
}

// N returns the ring degree.
func (c *Context) N() int {
	return c.params.N
}

// Q returns the modulus.
func (c *Context) Q() uint64 {
	return c.params.Q
}

// Zero returns the null polynomial.
func (c *Context) Zero() Poly {
	return Poly{Coeffs: make([]uint64, c.params.N)}
}

// Constant returns the polynomial with constant term x mod Q.
func (c *Context) Constant(x uint64) Poly {
	p := c.Zero()
	p.Coeffs[0] = x % c.params.Q
	return p
}

// One returns the unit polynomial.
func (c *Context) One() Poly {
	return c.Constant(1)
}

// MinusOne returns -1.
func (c *Context) MinusOne() Poly {
	return c.Constant(c.params.Q - 1)
}

// Copy returns a deep copy of p.
func (c *Context) Copy(p Poly) Poly {
	out := c.Zero()
	copy(out.Coeffs, p.Coeffs)
	return out
}

// Check returns an error if p is not a reduced element of the ring.
func (c *Context) Check(p Poly) error {
	if len(p.Coeffs) != c.params.N {
		return xerrors.Errorf("polynomial has %d coefficients, want %d", len(p.Coeffs), c.params.N)
	}
	for i, x := range p.Coeffs {
		if x >= c.params.Q {
			return xerrors.Errorf("coefficient %d not reduced", i)
		}
	}
	return nil
}

// CheckVector checks each polynomial of v and the length of v.
func (c *Context) CheckVector(v []Poly, width int) error {
	if len(v) != width {
		return xerrors.Errorf("vector has %d polynomials, want %d", len(v), width)
	}
	for _, p := range v {
		if err := c.Check(p); err != nil {
			return err
		}
	}
	return nil
}

// Equal tells if a and b are the same polynomial.
func (c *Context) Equal(a, b Poly) bool {
	if len(a.Coeffs) != len(b.Coeffs) {
		return false
	}
	for i := range a.Coeffs {
		if a.Coeffs[i] != b.Coeffs[i] {
			return false
		}
	}
	return true
}

// IsZero tells if all coefficients of p are null.
func (c *Context) IsZero(p Poly) bool {
	for _, x := range p.Coeffs {
		if x != 0 {
			return false
		}
	}
	return true
}

func (c *Context) lift(p Poly) ring.Poly {
	rp := c.ring.NewPoly()
	copy(rp.Coeffs[0], p.Coeffs)
	return rp
}

func (c *Context) lower(rp ring.Poly) Poly {
	out := c.Zero()
	copy(out.Coeffs, rp.Coeffs[0])
	return out
}

// Add returns a+b.
func (c *Context) Add(a, b Poly) Poly {
	ra, rb := c.lift(a), c.lift(b)
	c.ring.Add(ra, rb, ra)
	return c.lower(ra)
}

// Sub returns a-b.
func (c *Context) Sub(a, b Poly) Poly {
	ra, rb := c.lift(a), c.lift(b)
	c.ring.Sub(ra, rb, ra)
	return c.lower(ra)
}

// Neg returns -a.
func (c *Context) Neg(a Poly) Poly {
	ra := c.lift(a)
	c.ring.Neg(ra, ra)
	return c.lower(ra)
}

// Mul returns a*b mod X^N+1.
func (c *Context) Mul(a, b Poly) Poly {
	ra, rb := c.lift(a), c.lift(b)
	c.ring.NTT(ra, ra)
	c.ring.NTT(rb, rb)
	c.ring.MForm(ra, ra)
	c.ring.MulCoeffsMontgomery(ra, rb, ra)
	c.ring.INTT(ra, ra)
	return c.lower(ra)
}

// MulScalar returns s*a.
func (c *Context) MulScalar(a Poly, s uint64) Poly {
	out := c.Zero()
	s %= c.params.Q
	for i, x := range a.Coeffs {
		out.Coeffs[i] = mulMod(x, s, c.params.Q)
	}
	return out
}

// InnerProduct returns the sum of a_i*b_i.
func (c *Context) InnerProduct(a, b []Poly) Poly {
	acc := c.ring.NewPoly()
	tmp := c.ring.NewPoly()
	for i := range a {
		ra, rb := c.lift(a[i]), c.lift(b[i])
		c.ring.NTT(ra, ra)
		c.ring.NTT(rb, rb)
		c.ring.MForm(ra, ra)
		c.ring.MulCoeffsMontgomery(ra, rb, tmp)
		c.ring.Add(acc, tmp, acc)
	}
	c.ring.INTT(acc, acc)
	return c.lower(acc)
}

// AddVector returns a+b coordinate-wise.
func (c *Context) AddVector(a, b []Poly) []Poly {
	out := make([]Poly, len(a))
	for i := range a {
		out[i] = c.Add(a[i], b[i])
	}
	return out
}

// ScaleVector returns s*v coordinate-wise, s a ring element.
func (c *Context) ScaleVector(s Poly, v []Poly) []Poly {
	out := make([]Poly, len(v))
	for i := range v {
		out[i] = c.Mul(s, v[i])
	}
	return out
}

// Split is the CRT representation of a ring element: its N evaluations at
// the primitive 2N-th roots of unity.
type Split struct {
	Slots []uint64
}

// Split returns the CRT representation of p.
func (c *Context) Split(p Poly) Split {
	rp := c.lift(p)
	c.ring.NTT(rp, rp)
	slots := make([]uint64, c.params.N)
	copy(slots, rp.Coeffs[0])
	return Split{Slots: slots}
}

// Recombine is the inverse of Split.
func (c *Context) Recombine(s Split) Poly {
	rp := c.ring.NewPoly()
	copy(rp.Coeffs[0], s.Slots)
	c.ring.INTT(rp, rp)
	return c.lower(rp)
}

// IsInvertible tells if p is a unit, which is when none of its CRT slots
// is null.
func (c *Context) IsInvertible(p Poly) bool {
	for _, x := range c.Split(p).Slots {
		if x == 0 {
			return false
		}
	}
	return true
}

// Inverse returns the inverse of p in the ring.
func (c *Context) Inverse(p Poly) (Poly, error) {
	s := c.Split(p)
	for i, x := range s.Slots {
		if x == 0 {
			return Poly{}, xerrors.New("polynomial is not invertible")
		}
		s.Slots[i] = powMod(x, c.params.Q-2, c.params.Q)
	}
	return c.Recombine(s), nil
}

// Centered returns the i-th coefficient of p in (-Q/2, Q/2].
func (c *Context) Centered(p Poly, i int) int64 {
	x := p.Coeffs[i]
	if x > c.params.Q/2 {
		return -int64(c.params.Q - x)
	}
	return int64(x)
}

// FromInt maps a small signed integer into Z_Q.
func (c *Context) FromInt(x int64) uint64 {
	if x < 0 {
		return c.params.Q - uint64(-x)%c.params.Q
	}
	return uint64(x) % c.params.Q
}

// NormInf returns the largest centered coefficient of the vector.
func (c *Context) NormInf(v ...Poly) uint64 {
	var max uint64
	for _, p := range v {
		for i := range p.Coeffs {
			x := c.Centered(p, i)
			if x < 0 {
				x = -x
			}
			if uint64(x) > max {
				max = uint64(x)
			}
		}
	}
	return max
}

// Norm2Sq returns the squared euclidean norm of the vector, centered.
func (c *Context) Norm2Sq(v ...Poly) float64 {
	var sum float64
	for _, p := range v {
		for i := range p.Coeffs {
			x := float64(c.Centered(p, i))
			sum += x * x
		}
	}
	return sum
}

// InnerCentered returns the integer inner product of the centered
// coefficient vectors of a and b.
func (c *Context) InnerCentered(a, b []Poly) float64 {
	var sum float64
	for i := range a {
		for j := range a[i].Coeffs {
			sum += float64(c.Centered(a[i], j)) * float64(c.Centered(b[i], j))
		}
	}
	return sum
}

func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%q, lo, q)
	return rem
}

func powMod(x, e, q uint64) uint64 {
	result := uint64(1)
	x %= q
	for e > 0 {
		if e&1 == 1 {
			result = mulMod(result, x, q)
		}
		x = mulMod(x, x, q)
		e >>= 1
	}
	return result
}
