package service

import (
	"bytes"
	"sync"

	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/scheme"
)

// Auditor checks that the ballot box and the return code server saw the
// same ballots and that the shuffle of every question is correct.
type Auditor struct {
	sync.Mutex
	s         *scheme.Scheme
	pk        *scheme.PK
	questions []election.Question
	views     map[string]*View
	counts    map[int64]*CountReply
}

func newAuditor(s *scheme.Scheme, pk *scheme.PK, questions []election.Question) *Auditor {
	return &Auditor{
		s:         s,
		pk:        pk,
		questions: questions,
		views:     make(map[string]*View),
		counts:    make(map[int64]*CountReply),
	}
}

// Process implements Handler.
func (a *Auditor) Process(msg network.Message) (network.Message, error) {
	switch m := msg.(type) {
	case *View:
		a.ReceiveView(m)
		return &Ack{}, nil
	case *CountReply:
		a.ReceiveCount(m)
		return &Ack{}, nil
	}
	return nil, unexpected(msg)
}

// ReceiveView stores the view of a role, replacing an earlier one.
func (a *Auditor) ReceiveView(v *View) {
	a.Lock()
	defer a.Unlock()
	a.views[v.Role] = v
}

// ReceiveCount stores the shuffle of a question.
func (a *Auditor) ReceiveCount(c *CountReply) {
	a.Lock()
	defer a.Unlock()
	a.counts[c.Question] = c
}

// Audit compares the views of the ballot box and of the return code server.
func (a *Auditor) Audit() error {
	a.Lock()
	defer a.Unlock()
	b, r := a.views["ballotbox"], a.views["returncode"]
	if b == nil || r == nil {
		return xerrors.Errorf("missing view: %w", lbvs.ErrConsistencyMismatch)
	}
	if err := VerifyConsistence(b, r); err != nil {
		log.Error("Audit failed:", err)
		return err
	}
	log.Lvl2("Audit passed with", len(b.Entries), "voters")
	return nil
}

// VerifyConsistence tells whether both views hold the same entries in the
// same order, comparing their encodings.
func VerifyConsistence(a, b *View) error {
	if len(a.Entries) != len(b.Entries) {
		return xerrors.Errorf("%s has %d voters, %s has %d: %w", a.Role, len(a.Entries),
			b.Role, len(b.Entries), lbvs.ErrConsistencyMismatch)
	}
	for i := range a.Entries {
		ea, err := protobuf.Encode(&a.Entries[i])
		if err != nil {
			return err
		}
		eb, err := protobuf.Encode(&b.Entries[i])
		if err != nil {
			return err
		}
		if !bytes.Equal(ea, eb) {
			return xerrors.Errorf("entry %d (%s, %s): %w", i, a.Entries[i].Voter,
				b.Entries[i].Voter, lbvs.ErrConsistencyMismatch)
		}
	}
	return nil
}

// Ballots returns the audited ballots of question q, sorted by voter.
func (a *Auditor) Ballots(q int) []scheme.EncryptedBallot {
	a.Lock()
	defer a.Unlock()
	v := a.views["ballotbox"]
	if v == nil {
		return nil
	}
	out := make([]scheme.EncryptedBallot, 0, len(v.Entries))
	for _, e := range v.Entries {
		if q < len(e.Ballots) {
			out = append(out, e.Ballots[q].Encrypted)
		}
	}
	return out
}

// Results verifies the shuffle of every question against the audited
// ballots and tallies the votes. The tally of the shuffle server must
// agree.
func (a *Auditor) Results() ([]election.Results, error) {
	results := make([]election.Results, len(a.questions))
	for q := range a.questions {
		ballots := a.Ballots(q)
		res, err := a.result(q, ballots)
		if err != nil {
			return nil, xerrors.Errorf("question %d: %w", q, err)
		}
		results[q] = res
	}
	return results, nil
}

func (a *Auditor) result(q int, ballots []scheme.EncryptedBallot) (election.Results, error) {
	question := &a.questions[q]
	if len(ballots) == 0 {
		return election.Results{Question: question, Counts: make([]int, len(question.Answers))}, nil
	}
	a.Lock()
	reply := a.counts[int64(q)]
	a.Unlock()
	if reply == nil {
		return election.Results{}, xerrors.Errorf("no shuffle: %w", lbvs.ErrShuffleProofInvalid)
	}
	ptrs := make([]*scheme.EncryptedBallot, len(ballots))
	for i := range ballots {
		ptrs[i] = &ballots[i]
	}
	if err := a.s.CheckCount(a.pk, ptrs, reply.Votes, &reply.Proof); err != nil {
		return election.Results{}, err
	}
	res, err := election.Tally(a.s.Context(), question, reply.Votes)
	if err != nil {
		return election.Results{}, err
	}
	if len(res.Counts) != len(reply.Counts) {
		return election.Results{}, xerrors.Errorf("tally of the shuffle server differs: %w", lbvs.ErrConsistencyMismatch)
	}
	for i, c := range res.Counts {
		if int64(c) != reply.Counts[i] {
			return election.Results{}, xerrors.Errorf("tally of the shuffle server differs: %w", lbvs.ErrConsistencyMismatch)
		}
	}
	return res, nil
}
