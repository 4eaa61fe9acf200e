package scheme

import (
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/commit"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/secret"
	"go.dedis.ch/lbvs/sigma"
	"go.dedis.ch/lbvs/vericrypt"
)

// EncryptedBallot is the commitment C to a vote, the encryption of its
// opening and the challenge EC binding the ciphertexts to C.
type EncryptedBallot struct {
	C      commit.Commitment
	Cipher []vericrypt.Ciphertext
	EC     algebra.Poly
}

// BallotProof holds the response Z of the encryption proof of the ballot,
// the commitment CR to the precode, the verifiable encryption ER of its
// opening and the proof that CR commits to the vote plus the blinding.
type BallotProof struct {
	Z   []algebra.Poly
	CR  commit.Commitment
	ER  *vericrypt.Veritext
	Sum sigma.SumProof
}

// veritext rebuilds the verifiable encryption of the ballot opening.
func (ev *EncryptedBallot) veritext(proof *BallotProof) *vericrypt.Veritext {
	return &vericrypt.Veritext{Cipher: ev.Cipher, C: ev.EC, Z: proof.Z}
}

// Cast encrypts the vote v and proves the ballot well formed. The casting
// key is left untouched, CastVotes wipes it.
func (s *Scheme) Cast(pk *PK, vck *CastingKey, v algebra.Poly) (*EncryptedBallot, *BallotProof, error) {
	ctx := s.ctx
	scope := secret.NewScope()
	defer scope.Wipe()

	c, dv := commit.Commit(ctx, pk.C, v)
	scope.Add(dv)
	r := scope.Poly(ctx.Add(v, vck.A))
	cr, dr := commit.Commit(ctx, pk.C, r)
	scope.Add(dr)

	sum, err := sigma.ProveSum(ctx, pk.C, c, vck.CA, cr, dv, vck.DA, dr)
	if err != nil {
		return nil, nil, xerrors.Errorf("sum proof: %v", err)
	}
	ev, ok := vericrypt.Encrypt(ctx, pk.V, pk.C.B1, c.C1, dv.R)
	if !ok {
		return nil, nil, xerrors.New("could not encrypt the ballot opening")
	}
	er, ok := vericrypt.Encrypt(ctx, pk.R, pk.C.B1, cr.C1, dr.R)
	if !ok {
		return nil, nil, xerrors.New("could not encrypt the precode opening")
	}
	ballot := &EncryptedBallot{C: c, Cipher: ev.Cipher, EC: ev.C}
	proof := &BallotProof{Z: ev.Z, CR: cr, ER: er, Sum: *sum}
	return ballot, proof, nil
}

// CastVotes validates every selection against its question, then casts one
// ballot per question and wipes the casting key. Nothing is encrypted when
// a selection is invalid, or with ErrAlreadyCast when the key is used.
func (s *Scheme) CastVotes(pk *PK, vck *CastingKey, questions []election.Question,
	selections [][]int) ([]*EncryptedBallot, []*BallotProof, error) {
	if vck.Used() {
		return nil, nil, lbvs.ErrAlreadyCast
	}
	defer vck.Wipe()
	if len(selections) != len(questions) {
		return nil, nil, xerrors.Errorf("%d selections for %d questions: %w",
			len(selections), len(questions), lbvs.ErrInvalidVote)
	}
	votes := make([]algebra.Poly, len(questions))
	for i := range questions {
		if err := questions[i].ValidateVote(selections[i]); err != nil {
			return nil, nil, xerrors.Errorf("question %d: %w", i, err)
		}
		v, err := election.EncodeVote(s.ctx, selections[i])
		if err != nil {
			return nil, nil, err
		}
		votes[i] = v
	}
	defer func() {
		for _, v := range votes {
			v.Wipe()
		}
	}()

	ballots := make([]*EncryptedBallot, len(votes))
	proofs := make([]*BallotProof, len(votes))
	for i, v := range votes {
		var err error
		ballots[i], proofs[i], err = s.Cast(pk, vck, v)
		if err != nil {
			return nil, nil, xerrors.Errorf("question %d: %v", i, err)
		}
	}
	return ballots, proofs, nil
}

// CheckBallot verifies the sum proof and both verifiable encryptions of a
// ballot and gives the reason of a failure.
func (s *Scheme) CheckBallot(pk *PK, vvk *VerificationKey, ev *EncryptedBallot, proof *BallotProof) error {
	ctx := s.ctx
	if ev == nil || proof == nil || vvk == nil {
		return xerrors.Errorf("incomplete ballot: %w", lbvs.ErrVerifiableEncryptionInvalid)
	}
	if err := sigma.CheckSum(ctx, pk.C, ev.C, vvk.CA, proof.CR, &proof.Sum); err != nil {
		return err
	}
	if err := vericrypt.Check(ctx, ev.veritext(proof), pk.C.B1, ev.C.C1, pk.V); err != nil {
		return xerrors.Errorf("ballot: %w", err)
	}
	if err := vericrypt.Check(ctx, proof.ER, pk.C.B1, proof.CR.C1, pk.R); err != nil {
		return xerrors.Errorf("precode: %w", err)
	}
	return nil
}

// Code verifies the ballot and recovers its precode v + a. The precode must
// be ignored when valid is false.
func (s *Scheme) Code(pk *PK, ck *CK, vvk *VerificationKey, ev *EncryptedBallot,
	proof *BallotProof) (algebra.Poly, bool) {
	r, err := s.code(pk, ck, vvk, ev, proof)
	if err != nil {
		log.Lvl2("code:", err)
		return algebra.Poly{}, false
	}
	return r, true
}

func (s *Scheme) code(pk *PK, ck *CK, vvk *VerificationKey, ev *EncryptedBallot,
	proof *BallotProof) (algebra.Poly, error) {
	if err := s.CheckBallot(pk, vvk, ev, proof); err != nil {
		return algebra.Poly{}, err
	}
	dr, err := vericrypt.DecryptCiphertexts(s.ctx, proof.ER.Cipher, ck.R)
	if err != nil {
		return algebra.Poly{}, err
	}
	opening := &commit.Opening{R: dr, F: s.ctx.One()}
	defer opening.Wipe()
	return commit.MessageRecover(s.ctx, pk.C, proof.CR, opening)
}
