package service

import (
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/scheme"
)

// ShuffleServer holds DK. It decrypts the audited ballots of a question,
// shuffles them and proves the shuffle.
type ShuffleServer struct {
	s         *scheme.Scheme
	dk        *scheme.DK
	questions []election.Question
	phase     *phases
}

// Process implements Handler.
func (ss *ShuffleServer) Process(msg network.Message) (network.Message, error) {
	switch m := msg.(type) {
	case *CountRequest:
		return ss.Count(m)
	}
	return nil, unexpected(msg)
}

// Count decrypts and shuffles the ballots of one question and tallies the
// votes.
func (ss *ShuffleServer) Count(req *CountRequest) (*CountReply, error) {
	if err := ss.phase.Require(PhaseCounting); err != nil {
		return nil, err
	}
	if req.Question < 0 || int(req.Question) >= len(ss.questions) {
		return nil, xerrors.Errorf("no question %d", req.Question)
	}
	ballots := make([]*scheme.EncryptedBallot, len(req.Ballots))
	for i := range req.Ballots {
		ballots[i] = &req.Ballots[i]
	}
	votes, proof, err := ss.s.Count(ss.dk, ballots)
	if err != nil {
		return nil, xerrors.Errorf("question %d: %w", req.Question, err)
	}
	res, err := election.Tally(ss.s.Context(), &ss.questions[req.Question], votes)
	if err != nil {
		return nil, err
	}
	log.Lvlf2("Shuffled %d ballots of question %d", len(votes), req.Question)
	reply := &CountReply{Question: req.Question, Votes: votes, Proof: *proof}
	for _, c := range res.Counts {
		reply.Counts = append(reply.Counts, int64(c))
	}
	return reply, nil
}

// Wipe zeroes DK.
func (ss *ShuffleServer) Wipe() {
	ss.dk.Wipe()
}
