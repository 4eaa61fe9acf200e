package scheme

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
	"go.dedis.ch/lbvs/secret"
	"go.dedis.ch/lbvs/sigma"
	"go.dedis.ch/lbvs/vericrypt"
)

// Commitments returns the vote commitments of the ballots.
func Commitments(ballots []*EncryptedBallot) []commit.Commitment {
	cs := make([]commit.Commitment, len(ballots))
	for i, b := range ballots {
		cs[i] = b.C
	}
	return cs
}

// permutation draws a uniform permutation of n elements with Fisher-Yates.
func permutation(n int, rand cipher.Stream) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(random.Int(big.NewInt(int64(i+1)), rand).Int64())
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Count decrypts the ballots, outputs the votes in a fresh random order and
// proves the output a permutation of the committed votes.
func (s *Scheme) Count(dk *DK, ballots []*EncryptedBallot) ([]algebra.Poly, *sigma.ShuffleProof, error) {
	ctx := s.ctx
	if len(ballots) == 0 {
		return nil, nil, xerrors.New("no ballot to count")
	}
	scope := secret.NewScope()
	defer scope.Wipe()

	messages := make([]algebra.Poly, len(ballots))
	openings := make([]*commit.Opening, len(ballots))
	for i, b := range ballots {
		d, err := vericrypt.DecryptCiphertexts(ctx, b.Cipher, dk.V)
		if err != nil {
			return nil, nil, xerrors.Errorf("ballot %d: %w", i, err)
		}
		openings[i] = &commit.Opening{R: d, F: ctx.One()}
		scope.Add(openings[i])
		v, err := commit.MessageRecover(ctx, dk.C, b.C, openings[i])
		if err != nil {
			return nil, nil, xerrors.Errorf("ballot %d: %w", i, err)
		}
		messages[i] = scope.Poly(v)
	}

	rand := random.New()
	perm := permutation(len(ballots), rand)
	votes := make([]algebra.Poly, len(ballots))
	for i, m := range messages {
		votes[perm[i]] = ctx.Copy(m)
	}
	proof, err := sigma.ProveShuffle(ctx, dk.C, Commitments(ballots), messages, votes, openings, rand)
	if err != nil {
		return nil, nil, xerrors.Errorf("shuffle: %v", err)
	}
	log.Lvlf2("Counted %d ballots", len(ballots))
	return votes, proof, nil
}

// CheckCount verifies the shuffle of a count and returns
// ErrShuffleProofInvalid on failure.
func (s *Scheme) CheckCount(pk *PK, ballots []*EncryptedBallot, votes []algebra.Poly, proof *sigma.ShuffleProof) error {
	for i, b := range ballots {
		if b == nil {
			return xerrors.Errorf("ballot %d missing: %w", i, lbvs.ErrShuffleProofInvalid)
		}
	}
	return sigma.CheckShuffle(s.ctx, pk.C, Commitments(ballots), votes, proof)
}

// Verify tells if votes is a proven permutation of the votes committed in
// the ballots.
func (s *Scheme) Verify(pk *PK, ballots []*EncryptedBallot, votes []algebra.Poly, proof *sigma.ShuffleProof) bool {
	err := s.CheckCount(pk, ballots, votes, proof)
	if err != nil {
		log.Lvl2("verify:", err)
	}
	return err == nil
}
