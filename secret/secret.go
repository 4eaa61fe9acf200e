// Package secret holds scoped containers that zero their content when
// released. Use it with defer so every return path wipes:
//
//	scope := secret.NewScope()
//	defer scope.Wipe()
//	r := scope.Poly(ctx.Add(v, a))
//
// Long lived byte keys go into a Locked buffer, outside of the Go heap.
package secret

import (
	"sync"

	"github.com/awnumar/memguard"

	"go.dedis.ch/lbvs/algebra"
)

// Wiper is implemented by every type holding secret material.
type Wiper interface {
	Wipe()
}

// Scope collects secrets and wipes them all at once.
type Scope struct {
	mu    sync.Mutex
	items []Wiper
	done  bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers secrets with the scope. Nil entries are ignored.
func (s *Scope) Add(ws ...Wiper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range ws {
		if w == nil {
			continue
		}
		if s.done {
			w.Wipe()
			continue
		}
		s.items = append(s.items, w)
	}
}

// Poly registers p and returns it.
func (s *Scope) Poly(p algebra.Poly) algebra.Poly {
	s.Add(p)
	return p
}

// Polys registers every polynomial of v and returns v.
func (s *Scope) Polys(v []algebra.Poly) []algebra.Poly {
	for _, p := range v {
		s.Add(p)
	}
	return v
}

// Bytes registers b and returns it.
func (s *Scope) Bytes(b []byte) []byte {
	s.Add(Bytes(b))
	return b
}

// Wipe zeroes every registered secret. Secrets added after Wipe are
// wiped immediately.
func (s *Scope) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.items {
		w.Wipe()
	}
	s.items = nil
	s.done = true
}

// Bytes is a byte slice secret.
type Bytes []byte

// Wipe zeroes the slice.
func (b Bytes) Wipe() {
	for i := range b {
		b[i] = 0
	}
}

// Locked is a byte secret in memory that is locked against swapping and
// guarded by canary pages. Wipe destroys it.
type Locked struct {
	buf *memguard.LockedBuffer
}

// NewLocked moves b into a locked buffer. b is zeroed.
func NewLocked(b []byte) *Locked {
	return &Locked{buf: memguard.NewBufferFromBytes(b)}
}

// Bytes returns the content, nil once wiped. The slice is only valid
// until Wipe.
func (l *Locked) Bytes() []byte {
	if !l.Alive() {
		return nil
	}
	return l.buf.Bytes()
}

// Copy returns the content in a fresh heap slice, for the holders that
// must keep it after Wipe.
func (l *Locked) Copy() []byte {
	return append([]byte(nil), l.Bytes()...)
}

// Alive tells if the secret was not wiped yet.
func (l *Locked) Alive() bool {
	return l != nil && l.buf != nil && l.buf.IsAlive()
}

// Wipe zeroes and releases the buffer.
func (l *Locked) Wipe() {
	if l.Alive() {
		l.buf.Destroy()
	}
}
