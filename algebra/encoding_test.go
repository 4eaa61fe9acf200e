package algebra

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoding_String(t *testing.T) {
	ctx := newContext(t)
	q := strconv.FormatUint(ctx.Q(), 10)

	require.Equal(t, "0 "+q, ctx.Encode(ctx.Zero()))
	p := ctx.Zero()
	p.Coeffs[0] = 1
	p.Coeffs[2] = 1
	require.Equal(t, "3 "+q+" 1 0 1", ctx.Encode(p))

	for _, p := range []Poly{ctx.Zero(), p, ctx.SampleUniform(), ctx.SampleTernary()} {
		back, err := ctx.Decode(ctx.Encode(p))
		require.NoError(t, err)
		require.True(t, ctx.Equal(p, back))
	}

	for _, bad := range []string{
		"",
		"1",
		"1 " + q,
		"2 " + q + " 1",
		"1 17 1",
		"2 " + q + " 1 0",
		"1 " + q + " " + q,
		"x " + q,
	} {
		_, err := ctx.Decode(bad)
		require.Error(t, err, bad)
	}
}

func TestEncoding_List(t *testing.T) {
	ctx := newContext(t)
	p := ctx.Zero()
	p.Coeffs[1] = 1
	p.Coeffs[5] = ctx.Q() - 1
	require.Equal(t, []Term{{1, 1}, {5, ctx.Q() - 1}}, ctx.List(p))
	require.Nil(t, ctx.List(ctx.Zero()))

	for _, p := range []Poly{ctx.Zero(), p, ctx.SampleTernary()} {
		back, err := ctx.FromList(ctx.List(p))
		require.NoError(t, err)
		require.True(t, ctx.Equal(p, back))
	}

	_, err := ctx.FromList([]Term{{2, 1}, {1, 1}})
	require.Error(t, err)
	_, err = ctx.FromList([]Term{{ctx.N(), 1}})
	require.Error(t, err)
	_, err = ctx.FromList([]Term{{0, 0}})
	require.Error(t, err)
}

func TestEncoding_Bytes(t *testing.T) {
	ctx := newContext(t)
	p := ctx.One()
	b := ctx.Bytes(p)
	require.Len(t, b, 8*ctx.N())
	require.Equal(t, byte(1), b[0])
	require.NotEqual(t, b, ctx.Bytes(ctx.Zero()))
}
