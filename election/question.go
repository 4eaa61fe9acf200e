// Package election describes what is voted on: questions with their
// answers and selection limits, how a selection becomes a ring element and
// how decrypted votes are tallied.
package election

import (
	"fmt"
	"sort"
	"strings"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
)

// Question is an approval question: a voter selects between Min and Max
// distinct answers.
type Question struct {
	Text    string   `toml:"text"`
	Answers []string `toml:"answers"`
	Min     int      `toml:"min"`
	Max     int      `toml:"max"`
}

// Validate checks the selection limits against the answers.
func (q *Question) Validate() error {
	if len(q.Answers) == 0 {
		return xerrors.Errorf("question %q has no answers", q.Text)
	}
	if q.Min < 0 || q.Max < q.Min || q.Max > len(q.Answers) {
		return xerrors.Errorf("question %q: need 0 <= min <= max <= %d, got min=%d max=%d",
			q.Text, len(q.Answers), q.Min, q.Max)
	}
	return nil
}

// ValidateVote checks a selection of answer indices. The returned error
// wraps ErrInvalidVote.
func (q *Question) ValidateVote(selection []int) error {
	if len(selection) < q.Min || len(selection) > q.Max {
		return xerrors.Errorf("%d answers selected, want between %d and %d: %w",
			len(selection), q.Min, q.Max, lbvs.ErrInvalidVote)
	}
	seen := make(map[int]bool, len(selection))
	for _, i := range selection {
		if i < 0 || i >= len(q.Answers) {
			return xerrors.Errorf("answer %d out of range: %w", i, lbvs.ErrInvalidVote)
		}
		if seen[i] {
			return xerrors.Errorf("answer %d selected twice: %w", i, lbvs.ErrInvalidVote)
		}
		seen[i] = true
	}
	return nil
}

// Combinations returns every valid selection in increasing size, each
// selection sorted.
func (q *Question) Combinations() [][]int {
	var out [][]int
	for k := q.Min; k <= q.Max; k++ {
		out = append(out, combinations(len(q.Answers), k)...)
	}
	return out
}

func combinations(n, k int) [][]int {
	var out [][]int
	cur := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := start; i <= n-(k-len(cur)); i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// RandomSelection draws a valid selection, used by simulations.
func (q *Question) RandomSelection() []int {
	rand := random.New()
	size := q.Min + int(random.Int(bigInt(q.Max-q.Min+1), rand).Int64())
	perm := make([]int, len(q.Answers))
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := int(random.Int(bigInt(i+1), rand).Int64())
		perm[i], perm[j] = perm[j], perm[i]
	}
	sel := perm[:size]
	sort.Ints(sel)
	return sel
}

// Results are the per-answer counts of one question.
type Results struct {
	Question *Question
	Counts   []int
}

// String prints the results one answer per line.
func (r Results) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Question.Text)
	for i, a := range r.Question.Answers {
		fmt.Fprintf(&b, "  %s: %d\n", a, r.Counts[i])
	}
	return b.String()
}
