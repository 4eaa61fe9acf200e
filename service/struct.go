package service

import (
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	"golang.org/x/crypto/blake2b"

	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/scheme"
	"go.dedis.ch/lbvs/sigma"
)

func init() {
	network.RegisterMessages(
		Registration{}, RegistrationReply{},
		SubmitBallot{}, SubmitBallotReply{},
		RequestCode{}, CodeRequest{}, RequestCodeReply{},
		ConfirmBallot{}, RefuseBallot{}, Ack{},
		GetView{}, View{},
		CountRequest{}, CountReply{},
	)
}

// Ballot is the ballot of a voter for a single question.
type Ballot struct {
	Encrypted scheme.EncryptedBallot
	Proof     scheme.BallotProof
}

// Entry is a record of a role view: the ballots of a voter, one per
// question, and the casting signature.
type Entry struct {
	Voter     string
	Ballots   []Ballot
	Signature []byte
}

// Registration is the public record of a voter: its verification key and
// the public key of its computer.
type Registration struct {
	Voter  string
	VVK    scheme.VerificationKey
	Public []byte
}

// RegistrationReply acknowledges a registration.
type RegistrationReply struct {
	Voter string
}

// SubmitBallot is sent by the voter computer to the ballot box.
type SubmitBallot struct {
	Voter     string
	Ballots   []Ballot
	Signature []byte // Signature of the computer over Digest.
}

// SubmitBallotReply acknowledges a stored ballot.
type SubmitBallotReply struct {
	Voter string
}

// RequestCode asks the ballot box for the return codes of a voter.
type RequestCode struct {
	Voter string
}

// CodeRequest is forwarded by the ballot box to the return code server.
type CodeRequest struct {
	Voter     string
	Ballots   []Ballot
	Signature []byte
}

// RequestCodeReply holds the return codes, one per question, and the
// countersignature of the return code server. Valid is false when a ballot
// did not verify.
type RequestCodeReply struct {
	Voter     string
	Valid     bool
	Codes     [][]byte
	Signature []byte
}

// ConfirmBallot tells the ballot box and the return code server to keep the
// ballots of Voter. The ballot box sets Signature to the one of the ballots
// it keeps when relaying.
type ConfirmBallot struct {
	Voter     string
	Signature []byte
}

// RefuseBallot deletes the ballots of Voter.
type RefuseBallot struct {
	Voter string
}

// Ack is the empty reply.
type Ack struct{}

// GetView asks a role for its stored ballots.
type GetView struct{}

// View is the ordered content of a role, sorted by voter.
type View struct {
	Role    string
	Entries []Entry
}

// CountRequest asks the shuffle server to count one question.
type CountRequest struct {
	Question int64
	Ballots  []scheme.EncryptedBallot
}

// CountReply holds the shuffled votes of a question, the proof and the
// tally computed by the shuffle server.
type CountReply struct {
	Question int64
	Votes    []algebra.Poly
	Proof    sigma.ShuffleProof
	Counts   []int64
}

// Digest is what the voter computer signs: a hash of the voter id and the
// ballots.
func (sb *SubmitBallot) Digest() ([]byte, error) {
	return digest(sb.Voter, sb.Ballots)
}

func digest(voter string, ballots []Ballot) ([]byte, error) {
	buf, err := protobuf.Encode(&struct {
		Voter   string
		Ballots []Ballot
	}{voter, ballots})
	if err != nil {
		return nil, err
	}
	h := blake2b.Sum256(buf)
	return h[:], nil
}

// codesDigest is what the return code server countersigns.
func codesDigest(voter string, codes [][]byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(voter))
	for _, c := range codes {
		h.Write([]byte{byte(len(c))})
		h.Write(c)
	}
	return h.Sum(nil)
}

func (e *Entry) ballots() []*scheme.EncryptedBallot {
	out := make([]*scheme.EncryptedBallot, len(e.Ballots))
	for i := range e.Ballots {
		out[i] = &e.Ballots[i].Encrypted
	}
	return out
}
