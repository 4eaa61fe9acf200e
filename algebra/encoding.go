package algebra

import (
	"encoding/binary"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Encode returns the canonical string form of p: the length of the
// polynomial without its leading zeros, the modulus, then the coefficients
// from degree 0 upwards, separated by single spaces. The null polynomial
// is "0 Q".
func (c *Context) Encode(p Poly) string {
	length := len(p.Coeffs)
	for length > 0 && p.Coeffs[length-1] == 0 {
		length--
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(length))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(c.params.Q, 10))
	for _, x := range p.Coeffs[:length] {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(x, 10))
	}
	return b.String()
}

// Decode parses the string form written by Encode.
func (c *Context) Decode(s string) (Poly, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return Poly{}, xerrors.Errorf("malformed polynomial %q", s)
	}
	length, err := strconv.Atoi(fields[0])
	if err != nil || length < 0 || length > c.params.N {
		return Poly{}, xerrors.Errorf("bad polynomial length %q", fields[0])
	}
	q, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil || q != c.params.Q {
		return Poly{}, xerrors.Errorf("polynomial modulus %q does not match %d", fields[1], c.params.Q)
	}
	if len(fields) != length+2 {
		return Poly{}, xerrors.Errorf("polynomial has %d coefficients, header says %d", len(fields)-2, length)
	}
	p := c.Zero()
	for i, f := range fields[2:] {
		x, err := strconv.ParseUint(f, 10, 64)
		if err != nil || x >= q {
			return Poly{}, xerrors.Errorf("bad coefficient %q", f)
		}
		p.Coeffs[i] = x
	}
	if length > 0 && p.Coeffs[length-1] == 0 {
		return Poly{}, xerrors.New("polynomial encoding is not canonical")
	}
	return p, nil
}

// Term is one entry of the list form: a coefficient and its degree.
type Term struct {
	Index int
	Coeff uint64
}

// List returns the nonzero coefficients of p in increasing degree.
func (c *Context) List(p Poly) []Term {
	var list []Term
	for i, x := range p.Coeffs {
		if x != 0 {
			list = append(list, Term{Index: i, Coeff: x})
		}
	}
	return list
}

// FromList is the inverse of List. Indices must be strictly increasing.
func (c *Context) FromList(list []Term) (Poly, error) {
	p := c.Zero()
	last := -1
	for _, t := range list {
		if t.Index <= last || t.Index >= c.params.N {
			return Poly{}, xerrors.Errorf("bad term index %d", t.Index)
		}
		if t.Coeff == 0 || t.Coeff >= c.params.Q {
			return Poly{}, xerrors.Errorf("bad term coefficient %d", t.Coeff)
		}
		p.Coeffs[t.Index] = t.Coeff
		last = t.Index
	}
	return p, nil
}

// Bytes returns the fixed width little-endian encoding of p, used for
// hashing.
func (c *Context) Bytes(p Poly) []byte {
	buf := make([]byte, 8*c.params.N)
	for i, x := range p.Coeffs {
		binary.LittleEndian.PutUint64(buf[8*i:], x)
	}
	return buf
}
