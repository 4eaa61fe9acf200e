package scheme

import (
	"crypto/subtle"
	"encoding/base64"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/crypto/blake2b"

	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/secret"
)

// CodeSize is the length of a return code in bytes.
const CodeSize = 16

// PRFKey is the secret key of the return code server.
type PRFKey []byte

// Wipe zeroes the key.
func (k PRFKey) Wipe() {
	secret.Bytes(k).Wipe()
}

// NewPRFKey returns a fresh random key.
func NewPRFKey() PRFKey {
	return random.Bits(256, false, random.New())
}

// PRF returns the return code of the precode r: a keyed blake2b of its
// canonical string encoding.
func (s *Scheme) PRF(key PRFKey, r algebra.Poly) []byte {
	h, err := blake2b.New(CodeSize, key)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(s.ctx.Encode(r)))
	return h.Sum(nil)
}

// ExpectedCode is the code a voter with blinding a expects for the vote v.
func (s *Scheme) ExpectedCode(key PRFKey, a, v algebra.Poly) []byte {
	r := s.ctx.Add(v, a)
	defer r.Wipe()
	return s.PRF(key, r)
}

// ComputeTable maps the encoded precode of every valid selection of q to
// its return code.
func (s *Scheme) ComputeTable(key PRFKey, a algebra.Poly, q *election.Question) (map[string][]byte, error) {
	table := make(map[string][]byte)
	for _, sel := range q.Combinations() {
		v, err := election.EncodeVote(s.ctx, sel)
		if err != nil {
			return nil, err
		}
		r := s.ctx.Add(v, a)
		table[s.ctx.Encode(r)] = s.PRF(key, r)
		r.Wipe()
	}
	return table, nil
}

// ComputeTableBase64 is ComputeTable with base64 keys and codes.
func (s *Scheme) ComputeTableBase64(key PRFKey, a algebra.Poly, q *election.Question) (map[string]string, error) {
	table, err := s.ComputeTable(key, a, q)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(table))
	for k, code := range table {
		out[base64.StdEncoding.EncodeToString([]byte(k))] = base64.StdEncoding.EncodeToString(code)
	}
	return out, nil
}

// EqualCodes compares two lists of codes in constant time per code.
func EqualCodes(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	ok := 1
	for i := range a {
		ok &= subtle.ConstantTimeCompare(a[i], b[i])
	}
	return ok == 1
}
