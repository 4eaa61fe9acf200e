package algebra

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func newContext(t *testing.T) *Context {
	ctx, err := NewContext(DefaultParams)
	require.NoError(t, err)
	return ctx
}

func monomial(ctx *Context, degree int) Poly {
	p := ctx.Zero()
	p.Coeffs[degree] = 1
	return p
}

// schoolbook multiplication mod X^N+1
func negacyclic(ctx *Context, a, b Poly) Poly {
	q := ctx.Q()
	n := ctx.N()
	out := ctx.Zero()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := mulMod(a.Coeffs[i], b.Coeffs[j], q)
			k := i + j
			if k < n {
				out.Coeffs[k] = (out.Coeffs[k] + x) % q
			} else {
				out.Coeffs[k-n] = (out.Coeffs[k-n] + q - x) % q
			}
		}
	}
	return out
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, DefaultParams.Validate())

	p := DefaultParams
	p.N = 1000
	require.Error(t, p.Validate())

	p = DefaultParams
	p.Q = 3906450253
	require.Error(t, p.Validate())

	p = DefaultParams
	p.Width = 2
	require.Error(t, p.Validate())

	_, err := NewContext(p)
	require.Error(t, err)
}

func TestContext_Mul(t *testing.T) {
	ctx := newContext(t)

	x := monomial(ctx, 1)
	xn := monomial(ctx, ctx.N()-1)
	require.True(t, ctx.Equal(ctx.MinusOne(), ctx.Mul(x, xn)))

	a, b := ctx.SampleUniform(), ctx.SampleTernary()
	require.True(t, ctx.Equal(negacyclic(ctx, a, b), ctx.Mul(a, b)))
	require.True(t, ctx.Equal(ctx.Mul(a, b), ctx.Mul(b, a)))
	require.True(t, ctx.Equal(a, ctx.Mul(a, ctx.One())))
	require.True(t, ctx.IsZero(ctx.Mul(a, ctx.Zero())))
}

func TestContext_AddSub(t *testing.T) {
	ctx := newContext(t)
	a, b := ctx.SampleUniform(), ctx.SampleUniform()

	require.True(t, ctx.Equal(a, ctx.Sub(ctx.Add(a, b), b)))
	require.True(t, ctx.IsZero(ctx.Add(a, ctx.Neg(a))))
	require.True(t, ctx.Equal(ctx.Add(a, a), ctx.MulScalar(a, 2)))
	require.True(t, ctx.Equal(ctx.Neg(a), ctx.MulScalar(a, ctx.Q()-1)))
}

func TestContext_InnerProduct(t *testing.T) {
	ctx := newContext(t)
	a := []Poly{ctx.SampleUniform(), ctx.SampleUniform(), ctx.SampleUniform()}
	b := ctx.SampleTernaryVector(3)

	want := ctx.Zero()
	for i := range a {
		want = ctx.Add(want, ctx.Mul(a[i], b[i]))
	}
	require.True(t, ctx.Equal(want, ctx.InnerProduct(a, b)))
}

func TestContext_SplitInverse(t *testing.T) {
	ctx := newContext(t)
	a := ctx.SampleUniform()

	require.True(t, ctx.Equal(a, ctx.Recombine(ctx.Split(a))))
	require.True(t, ctx.IsInvertible(a))
	inv, err := ctx.Inverse(a)
	require.NoError(t, err)
	require.True(t, ctx.Equal(ctx.One(), ctx.Mul(a, inv)))

	require.False(t, ctx.IsInvertible(ctx.Zero()))
	_, err = ctx.Inverse(ctx.Zero())
	require.Error(t, err)

	// A single null slot is enough to make an element a zero divisor.
	root := ctx.Recombine(Split{Slots: append([]uint64{0}, ctx.Split(ctx.One()).Slots[1:]...)})
	require.False(t, ctx.IsInvertible(root))
}

func TestContext_Norms(t *testing.T) {
	ctx := newContext(t)
	p := ctx.Zero()
	p.Coeffs[0] = 3
	p.Coeffs[1] = ctx.FromInt(-4)

	require.Equal(t, int64(-4), ctx.Centered(p, 1))
	require.Equal(t, uint64(4), ctx.NormInf(p))
	require.Equal(t, float64(25), ctx.Norm2Sq(p))
	require.Equal(t, float64(25), ctx.InnerCentered([]Poly{p}, []Poly{p}))

	tern := ctx.SampleTernary()
	require.True(t, ctx.NormInf(tern) <= 1)

	g := ctx.SampleGaussian(DefaultParams.SigmaC)
	require.True(t, ctx.NormInf(g) <= uint64(12*DefaultParams.SigmaC))
	require.True(t, ctx.Norm2Sq(g) > 0)
}

func TestContext_Check(t *testing.T) {
	ctx := newContext(t)
	require.NoError(t, ctx.Check(ctx.SampleUniform()))
	require.Error(t, ctx.Check(Poly{}))
	bad := ctx.Zero()
	bad.Coeffs[3] = ctx.Q()
	require.Error(t, ctx.Check(bad))
	require.Error(t, ctx.CheckVector([]Poly{ctx.Zero()}, 3))
}

func TestContext_Challenge(t *testing.T) {
	ctx := newContext(t)
	tr := ctx.NewTranscript("test")
	tr.Poly("a", ctx.One())
	c1 := tr.Challenge()
	c2 := tr.Challenge()
	require.True(t, ctx.Equal(c1, c2))

	var weight int
	for i := range c1.Coeffs {
		if c1.Coeffs[i] != 0 {
			weight++
		}
	}
	require.Equal(t, DefaultParams.Kappa, weight)
	require.Equal(t, uint64(1), ctx.NormInf(c1))

	tr.Poly("b", ctx.One())
	require.False(t, ctx.Equal(c1, tr.Challenge()))
	require.False(t, ctx.Equal(tr.Uniform("x"), tr.Uniform("y")))
}

func TestContext_UniformStream(t *testing.T) {
	ctx := newContext(t)
	a := ctx.UniformStream(random.New())
	b := ctx.UniformStream(random.New())
	require.NoError(t, ctx.Check(a))
	require.False(t, ctx.Equal(a, b))

	_, err := ctx.UniformFrom(bytes.NewReader(make([]byte, 10)))
	require.Error(t, err)
}

func TestPoly_Wipe(t *testing.T) {
	ctx := newContext(t)
	p := ctx.SampleUniform()
	alias := p
	p.Wipe()
	require.True(t, ctx.IsZero(alias))
}
