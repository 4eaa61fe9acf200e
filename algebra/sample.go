package algebra

import (
	"crypto/cipher"
	"encoding/binary"
	"io"

	"github.com/tuneinsight/lattigo/v6/ring"
	"golang.org/x/xerrors"
)

func (c *Context) gaussianSampler(sigma float64) (ring.Sampler, error) {
	if s, ok := c.gaussian[sigma]; ok {
		return s, nil
	}
	s, err := ring.NewSampler(c.prng, c.ring, ring.DiscreteGaussian{Sigma: sigma, Bound: 12 * sigma}, false)
	if err != nil {
		return nil, xerrors.Errorf("gaussian sampler: %v", err)
	}
	c.gaussian[sigma] = s
	return s, nil
}

func (c *Context) read(s ring.Sampler) Poly {
	rp := c.ring.NewPoly()
	s.Read(rp)
	return c.lower(rp)
}

// SampleUniform returns a uniformly random element of the ring.
func (c *Context) SampleUniform() Poly {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(c.uniform)
}

// SampleTernary returns a polynomial with coefficients in {-1, 0, 1}.
func (c *Context) SampleTernary() Poly {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(c.ternary)
}

// SampleTernaryVector returns width ternary polynomials.
func (c *Context) SampleTernaryVector(width int) []Poly {
	v := make([]Poly, width)
	for i := range v {
		v[i] = c.SampleTernary()
	}
	return v
}

// SampleGaussian returns a polynomial with discrete gaussian coefficients
// of width sigma.
func (c *Context) SampleGaussian(sigma float64) Poly {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.gaussianSampler(sigma)
	if err != nil {
		// Only reachable for a width that was never registered and that
		// lattigo refuses.
		panic(err)
	}
	return c.read(s)
}

// SampleGaussianVector returns width gaussian polynomials.
func (c *Context) SampleGaussianVector(sigma float64, width int) []Poly {
	v := make([]Poly, width)
	for i := range v {
		v[i] = c.SampleGaussian(sigma)
	}
	return v
}

// Float returns a uniform float in [0, 1) from the context randomness.
func (c *Context) Float() float64 {
	var buf [8]byte
	c.mu.Lock()
	_, err := c.prng.Read(buf[:])
	c.mu.Unlock()
	if err != nil {
		panic(err)
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// UniformFrom reads a uniform ring element from r, rejecting the values
// that would bias the reduction mod Q.
func (c *Context) UniformFrom(r io.Reader) (Poly, error) {
	q := c.params.Q
	limit := ^uint64(0) - (^uint64(0) % q)
	p := c.Zero()
	var buf [8]byte
	for i := range p.Coeffs {
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return Poly{}, err
			}
			x := binary.LittleEndian.Uint64(buf[:])
			if x < limit {
				p.Coeffs[i] = x % q
				break
			}
		}
	}
	return p, nil
}

// UniformStream samples a uniform element from a kyber style random stream.
func (c *Context) UniformStream(rand cipher.Stream) Poly {
	p, err := c.UniformFrom(streamReader{rand})
	if err != nil {
		panic(err)
	}
	return p
}

// ChallengeFrom reads a sparse challenge from r: Kappa coefficients set to
// +1 or -1 at distinct positions, the rest zero.
func (c *Context) ChallengeFrom(r io.Reader) (Poly, error) {
	n := c.params.N
	p := c.Zero()
	seen := make(map[int]bool, c.params.Kappa)
	var buf [3]byte
	for len(seen) < c.params.Kappa {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Poly{}, err
		}
		idx := int(binary.LittleEndian.Uint16(buf[:2])) & (n - 1)
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if buf[2]&1 == 1 {
			p.Coeffs[idx] = c.params.Q - 1
		} else {
			p.Coeffs[idx] = 1
		}
	}
	return p, nil
}

type streamReader struct {
	s cipher.Stream
}

func (r streamReader) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = 0
	}
	r.s.XORKeyStream(b, b)
	return len(b), nil
}
