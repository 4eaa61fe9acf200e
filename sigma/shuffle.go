package sigma

import (
	"crypto/cipher"
	"strconv"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
	"go.dedis.ch/lbvs/secret"
)

// maxShifts bounds the number of shifts tried before giving up on finding
// one that makes every output invertible.
const maxShifts = 64

// ShuffleProof shows that a list of public values is a permutation of the
// messages of a list of commitments.
//
// Both lists are shifted by a public rho so every output is invertible, the
// prover then commits to D_i = theta_{i-1}*M_i + theta_i*N_i with theta_0 and
// theta_n null, reveals S_i = theta_i + beta*P_i with P_i the alternating
// ratio of the prefix products, and proves every D_i linear in M_i.
type ShuffleProof struct {
	Rho algebra.Poly
	D   []commit.Commitment
	S   []algebra.Poly
	Lin []LinearProof
}

type shuffleStatement struct {
	rho     algebra.Poly
	shifted []commit.Commitment
	outputs []algebra.Poly
	inv     []algebra.Poly
}

// newStatement derives the shift from the transcript and applies it to both
// lists.
func newStatement(ctx *algebra.Context, key *commit.Key, inputs []commit.Commitment,
	permuted []algebra.Poly) (*shuffleStatement, *algebra.Transcript, error) {
	tr := ctx.NewTranscript("lbvs/shuffle")
	key.Bind(tr)
	commit.Statement(tr, "inputs", inputs...)
	tr.Poly("outputs", permuted...)

	for counter := 0; counter < maxShifts; counter++ {
		rho := tr.Uniform("rho/" + strconv.Itoa(counter))
		st := &shuffleStatement{
			rho:     rho,
			shifted: make([]commit.Commitment, len(inputs)),
			outputs: make([]algebra.Poly, len(permuted)),
			inv:     make([]algebra.Poly, len(permuted)),
		}
		ok := true
		for j, m := range permuted {
			st.outputs[j] = ctx.Sub(m, rho)
			inv, err := ctx.Inverse(st.outputs[j])
			if err != nil {
				ok = false
				break
			}
			st.inv[j] = inv
		}
		if !ok {
			continue
		}
		shift := commit.CommitConstant(ctx, rho)
		for i, c := range inputs {
			st.shifted[i] = commit.Sub(ctx, c, shift)
		}
		tr.Poly("rho", rho)
		return st, tr, nil
	}
	return nil, nil, xerrors.New("no invertible shift found")
}

// ends returns S_0 = beta and S_n = (-1)^n beta.
func ends(ctx *algebra.Context, beta algebra.Poly, n int) (algebra.Poly, algebra.Poly) {
	if n%2 == 0 {
		return beta, beta
	}
	return beta, ctx.Neg(beta)
}

func isPermutation(ctx *algebra.Context, a, b []algebra.Poly) bool {
	if len(a) != len(b) {
		return false
	}
	count := make(map[string]int, len(a))
	for _, p := range a {
		count[string(ctx.Bytes(p))]++
	}
	for _, p := range b {
		k := string(ctx.Bytes(p))
		if count[k] == 0 {
			return false
		}
		count[k]--
	}
	return true
}

// ProveShuffle proves that permuted is a permutation of the messages of the
// inputs. The thetas are drawn from rand, random.New() when nil.
func ProveShuffle(ctx *algebra.Context, key *commit.Key, inputs []commit.Commitment,
	messages, permuted []algebra.Poly, openings []*commit.Opening, rand cipher.Stream) (*ShuffleProof, error) {
	n := len(inputs)
	if n == 0 {
		return nil, xerrors.New("nothing to shuffle")
	}
	if len(messages) != n || len(permuted) != n || len(openings) != n {
		return nil, xerrors.New("inputs, messages, outputs and openings differ in length")
	}
	for i := range inputs {
		if err := commit.Verify(ctx, key, inputs[i], messages[i], openings[i]); err != nil {
			return nil, xerrors.Errorf("input %d: %w", i, err)
		}
	}
	if !isPermutation(ctx, messages, permuted) {
		return nil, xerrors.New("outputs are not a permutation of the inputs")
	}
	if rand == nil {
		rand = random.New()
	}

	st, tr, err := newStatement(ctx, key, inputs, permuted)
	if err != nil {
		return nil, err
	}
	scope := secret.NewScope()
	defer scope.Wipe()

	shifted := make([]algebra.Poly, n)
	for i, m := range messages {
		shifted[i] = scope.Poly(ctx.Sub(m, st.rho))
	}
	theta := make([]algebra.Poly, n+1)
	theta[0], theta[n] = ctx.Zero(), ctx.Zero()
	for i := 1; i < n; i++ {
		theta[i] = scope.Poly(ctx.UniformStream(rand))
	}

	proof := &ShuffleProof{
		Rho: st.rho,
		D:   make([]commit.Commitment, n),
		S:   make([]algebra.Poly, n-1),
		Lin: make([]LinearProof, n),
	}
	d := make([]algebra.Poly, n)
	dOpen := make([]*commit.Opening, n)
	for i := 1; i <= n; i++ {
		d[i-1] = scope.Poly(ctx.Add(ctx.Mul(theta[i-1], shifted[i-1]), ctx.Mul(theta[i], st.outputs[i-1])))
		proof.D[i-1], dOpen[i-1] = commit.Commit(ctx, key, d[i-1])
		scope.Add(dOpen[i-1])
	}
	commit.Statement(tr, "d", proof.D...)
	beta := tr.Uniform("beta")

	s := make([]algebra.Poly, n+1)
	s[0], s[n] = ends(ctx, beta, n)
	ratio := ctx.One()
	for i := 1; i < n; i++ {
		ratio = scope.Poly(ctx.Neg(ctx.Mul(ratio, ctx.Mul(shifted[i-1], st.inv[i-1]))))
		s[i] = ctx.Add(theta[i], ctx.Mul(beta, ratio))
		proof.S[i-1] = s[i]
	}

	for i := 1; i <= n; i++ {
		alpha := s[i-1]
		off := ctx.Mul(s[i], st.outputs[i-1])
		lin, err := ProveLinear(ctx, key, alpha, off, st.shifted[i-1], proof.D[i-1], openings[i-1], dOpen[i-1])
		if err != nil {
			return nil, xerrors.Errorf("linear proof %d: %v", i, err)
		}
		proof.Lin[i-1] = *lin
	}
	log.Lvlf2("shuffle: proved a permutation of %d values", n)
	return proof, nil
}

// CheckShuffle verifies a shuffle proof and returns ErrShuffleProofInvalid
// on failure.
func CheckShuffle(ctx *algebra.Context, key *commit.Key, inputs []commit.Commitment,
	permuted []algebra.Poly, proof *ShuffleProof) error {
	n := len(inputs)
	fail := func(format string, args ...interface{}) error {
		return xerrors.Errorf(format+": %w", append(args, lbvs.ErrShuffleProofInvalid)...)
	}
	if n == 0 || proof == nil {
		return fail("empty shuffle")
	}
	if len(permuted) != n || len(proof.D) != n || len(proof.S) != n-1 || len(proof.Lin) != n {
		return fail("proof has the wrong size")
	}
	if err := ctx.CheckVector(permuted, n); err != nil {
		return fail("outputs: %v", err)
	}
	if err := ctx.CheckVector(proof.S, n-1); err != nil {
		return fail("s: %v", err)
	}
	for i := range inputs {
		if inputs[i].Check(ctx) != nil || proof.D[i].Check(ctx) != nil {
			return fail("malformed commitment %d", i)
		}
	}

	st, tr, err := newStatement(ctx, key, inputs, permuted)
	if err != nil {
		return fail("%v", err)
	}
	if !ctx.Equal(st.rho, proof.Rho) {
		return fail("mask was not derived from the statement")
	}
	commit.Statement(tr, "d", proof.D...)
	beta := tr.Uniform("beta")

	s := make([]algebra.Poly, n+1)
	s[0], s[n] = ends(ctx, beta, n)
	copy(s[1:n], proof.S)
	for i := 1; i <= n; i++ {
		off := ctx.Mul(s[i], st.outputs[i-1])
		lin := proof.Lin[i-1]
		if !VerifyLinear(ctx, key, s[i-1], off, st.shifted[i-1], proof.D[i-1], &lin) {
			return fail("linear proof %d", i)
		}
	}
	return nil
}

// VerifyShuffle tells if the shuffle proof is valid.
func VerifyShuffle(ctx *algebra.Context, key *commit.Key, inputs []commit.Commitment,
	permuted []algebra.Poly, proof *ShuffleProof) bool {
	err := CheckShuffle(ctx, key, inputs, permuted, proof)
	if err != nil {
		log.Lvl2(err)
	}
	return err == nil
}
