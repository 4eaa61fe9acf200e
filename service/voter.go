package service

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/scheme"
)

// Computer is the trusted device of a voter. It holds the casting key and
// the signing key.
type Computer struct {
	s      *scheme.Scheme
	pk     *scheme.PK
	vck    *scheme.CastingKey
	signer *key.Pair
}

// Public returns the marshalled public key of the device.
func (c *Computer) Public() ([]byte, error) {
	return c.signer.Public.MarshalBinary()
}

// Cast encrypts one selection per question and signs the ballots. The
// casting key is wiped whatever the outcome.
func (c *Computer) Cast(voter string, questions []election.Question, selections [][]int) (*SubmitBallot, error) {
	evs, proofs, err := c.s.CastVotes(c.pk, c.vck, questions, selections)
	if err != nil {
		return nil, err
	}
	sb := &SubmitBallot{Voter: voter, Ballots: make([]Ballot, len(evs))}
	for i := range evs {
		sb.Ballots[i] = Ballot{Encrypted: *evs[i], Proof: *proofs[i]}
	}
	d, err := sb.Digest()
	if err != nil {
		return nil, err
	}
	sb.Signature, err = schnorr.Sign(lbvs.Suite, c.signer.Private, d)
	if err != nil {
		return nil, err
	}
	return sb, nil
}

// Voter is a registered voter with its device and the means to check the
// return codes: either one code table per question or the delegated PRF
// key.
type Voter struct {
	ID       string
	VVK      *scheme.VerificationKey
	Computer *Computer

	tables    []map[string][]byte
	delegated scheme.PRFKey
	server    kyber.Point
	expected  [][]byte
}

// Prepare validates the selections, computes the expected codes and lets
// the device cast. Nothing is encrypted if a selection is invalid, and a
// voter casts only once: the casting key is wiped on every path.
func (v *Voter) Prepare(questions []election.Question, selections [][]int) (*SubmitBallot, error) {
	if v.Computer.vck.Used() {
		return nil, xerrors.Errorf("voter %s: %w", v.ID, lbvs.ErrAlreadyCast)
	}
	defer v.Computer.vck.Wipe()
	if len(selections) != len(questions) {
		return nil, xerrors.Errorf("%d selections for %d questions: %w", len(selections), len(questions), lbvs.ErrInvalidVote)
	}
	for i := range questions {
		if err := questions[i].ValidateVote(selections[i]); err != nil {
			return nil, xerrors.Errorf("question %d: %w", i, err)
		}
	}
	expected, err := v.expect(selections)
	if err != nil {
		return nil, err
	}
	v.expected = expected
	return v.Computer.Cast(v.ID, questions, selections)
}

func (v *Voter) expect(selections [][]int) ([][]byte, error) {
	s := v.Computer.s
	ctx := s.Context()
	a := v.Computer.vck.A
	out := make([][]byte, len(selections))
	for i, sel := range selections {
		vote, err := election.EncodeVote(ctx, sel)
		if err != nil {
			return nil, err
		}
		if v.delegated != nil {
			out[i] = s.ExpectedCode(v.delegated, a, vote)
			continue
		}
		if i >= len(v.tables) {
			return nil, xerrors.New("no code table")
		}
		r := ctx.Add(vote, a)
		code, ok := v.tables[i][ctx.Encode(r)]
		r.Wipe()
		if !ok {
			return nil, xerrors.Errorf("selection %v not in the code table", sel)
		}
		out[i] = code
	}
	return out, nil
}

// Accept tells whether the reply carries the expected codes under a valid
// countersignature of the return code server.
func (v *Voter) Accept(reply *RequestCodeReply) bool {
	if reply == nil || !reply.Valid || reply.Voter != v.ID {
		return false
	}
	if err := schnorr.Verify(lbvs.Suite, v.server, codesDigest(reply.Voter, reply.Codes), reply.Signature); err != nil {
		return false
	}
	return scheme.EqualCodes(v.expected, reply.Codes)
}

// Codes returns the codes the voter expects after Prepare.
func (v *Voter) Codes() [][]byte {
	return v.expected
}
