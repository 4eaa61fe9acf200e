package service

import (
	"sync"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/storage"
)

// BallotStore is the ballot box as seen by the voters.
type BallotStore interface {
	Register(*Registration) (*RegistrationReply, error)
	SubmitBallot(*SubmitBallot) (*SubmitBallotReply, error)
	RequestCode(*RequestCode) (*RequestCodeReply, error)
	ConfirmBallot(*ConfirmBallot) (*Ack, error)
	RefuseBallot(*RefuseBallot) (*Ack, error)
}

var _ BallotStore = (*BallotBox)(nil)

// CodeGenerator is the return code server as seen by the ballot box.
type CodeGenerator interface {
	Code(*CodeRequest) (*RequestCodeReply, error)
	ConfirmBallot(*ConfirmBallot) error
	RefuseBallot(*RefuseBallot) error
}

// BallotBox is the public bulletin of the election. It keeps the
// verification keys and the ballots, and relays code requests. Submitted
// ballots stay pending until the voter confirms them; only the confirmed
// ones are in the view.
type BallotBox struct {
	sync.Mutex
	questions int
	phase     *phases
	codes     CodeGenerator
	regs      *storage.Bucket
	pending   *storage.Bucket
	ballots   *storage.Bucket
}

func newBallotBox(db *storage.DB, phase *phases, questions int, codes CodeGenerator) (*BallotBox, error) {
	b := &BallotBox{questions: questions, phase: phase, codes: codes}
	var err error
	if b.regs, err = db.Bucket("ballotbox/registrations"); err != nil {
		return nil, err
	}
	if b.pending, err = db.Bucket("ballotbox/pending"); err != nil {
		return nil, err
	}
	if b.ballots, err = db.Bucket("ballotbox/ballots"); err != nil {
		return nil, err
	}
	return b, nil
}

// Process implements Handler.
func (b *BallotBox) Process(msg network.Message) (network.Message, error) {
	switch m := msg.(type) {
	case *Registration:
		return b.Register(m)
	case *SubmitBallot:
		return b.SubmitBallot(m)
	case *RequestCode:
		return b.RequestCode(m)
	case *ConfirmBallot:
		return b.ConfirmBallot(m)
	case *RefuseBallot:
		return b.RefuseBallot(m)
	case *GetView:
		return b.View()
	}
	return nil, unexpected(msg)
}

// Register records a voter. A voter can only register once.
func (b *BallotBox) Register(reg *Registration) (*RegistrationReply, error) {
	if err := b.phase.Require(PhaseRegistration); err != nil {
		return nil, err
	}
	if _, err := publicKey(reg.Public); err != nil {
		return nil, err
	}
	ok, err := b.regs.Insert(reg.Voter, reg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.Errorf("voter %s: %w", reg.Voter, lbvs.ErrDuplicateRegistration)
	}
	log.Lvl3("Ballot box registered", reg.Voter)
	return &RegistrationReply{Voter: reg.Voter}, nil
}

// SubmitBallot stores the signed ballots of a registered voter until they
// are confirmed or refused. A new submission replaces a pending one, a
// voter with confirmed ballots gets ErrAlreadyCast.
func (b *BallotBox) SubmitBallot(sb *SubmitBallot) (*SubmitBallotReply, error) {
	if err := b.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	reg, err := lookup(b.regs, sb.Voter)
	if err != nil {
		return nil, err
	}
	if len(sb.Ballots) != b.questions {
		return nil, xerrors.Errorf("got %d ballots for %d questions: %w", len(sb.Ballots), b.questions, lbvs.ErrInvalidVote)
	}
	if err := verifySignature(reg.Public, sb); err != nil {
		return nil, err
	}
	b.Lock()
	defer b.Unlock()
	if err := notCast(b.ballots, sb.Voter); err != nil {
		return nil, err
	}
	entry := &Entry{Voter: sb.Voter, Ballots: sb.Ballots, Signature: sb.Signature}
	if err := b.pending.Put(sb.Voter, entry); err != nil {
		return nil, err
	}
	log.Lvl3("Ballot box stored the ballots of", sb.Voter)
	return &SubmitBallotReply{Voter: sb.Voter}, nil
}

// RequestCode forwards the pending ballots of the voter to the return code
// server and relays the reply.
func (b *BallotBox) RequestCode(rc *RequestCode) (*RequestCodeReply, error) {
	if err := b.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	var entry Entry
	found, err := b.pending.Get(rc.Voter, &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, xerrors.Errorf("no ballot from %s: %w", rc.Voter, lbvs.ErrUnknownVoter)
	}
	return b.codes.Code(&CodeRequest{Voter: entry.Voter, Ballots: entry.Ballots, Signature: entry.Signature})
}

// ConfirmBallot confirms the pending ballots of the voter at the return
// code server, then moves them to the view.
func (b *BallotBox) ConfirmBallot(cb *ConfirmBallot) (*Ack, error) {
	if err := b.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	b.Lock()
	defer b.Unlock()
	var entry Entry
	found, err := b.pending.Get(cb.Voter, &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, xerrors.Errorf("nothing to confirm for %s: %w", cb.Voter, lbvs.ErrUnknownVoter)
	}
	if err := b.codes.ConfirmBallot(&ConfirmBallot{Voter: cb.Voter, Signature: entry.Signature}); err != nil {
		return nil, xerrors.Errorf("confirming at the return code server: %w", err)
	}
	if err := b.ballots.Put(cb.Voter, &entry); err != nil {
		return nil, err
	}
	if err := b.pending.Delete(cb.Voter); err != nil {
		return nil, err
	}
	log.Lvl3("Ballot box confirmed", cb.Voter)
	return &Ack{}, nil
}

// RefuseBallot deletes the pending ballots of the voter here and at the
// return code server. Confirmed ballots are final.
func (b *BallotBox) RefuseBallot(rb *RefuseBallot) (*Ack, error) {
	if err := b.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	b.Lock()
	err := notCast(b.ballots, rb.Voter)
	if err == nil {
		err = b.pending.Delete(rb.Voter)
	}
	b.Unlock()
	if err != nil {
		return nil, err
	}
	log.Warn("Ballot of", rb.Voter, "refused")
	if err := b.codes.RefuseBallot(rb); err != nil {
		return nil, xerrors.Errorf("refusing at the return code server: %v", err)
	}
	return &Ack{}, nil
}

// View returns the stored ballots sorted by voter.
func (b *BallotBox) View() (*View, error) {
	b.Lock()
	defer b.Unlock()
	return readView("ballotbox", b.ballots)
}

func readView(role string, bucket *storage.Bucket) (*View, error) {
	keys, err := bucket.Keys()
	if err != nil {
		return nil, err
	}
	v := &View{Role: role, Entries: make([]Entry, len(keys))}
	for i, k := range keys {
		if _, err := bucket.Get(k, &v.Entries[i]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// notCast returns ErrAlreadyCast if ballots holds an entry of the voter.
func notCast(ballots *storage.Bucket, voter string) error {
	var entry Entry
	found, err := ballots.Get(voter, &entry)
	if err != nil {
		return err
	}
	if found {
		return xerrors.Errorf("voter %s: %w", voter, lbvs.ErrAlreadyCast)
	}
	return nil
}

func lookup(regs *storage.Bucket, voter string) (*Registration, error) {
	var reg Registration
	found, err := regs.Get(voter, &reg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, xerrors.Errorf("voter %s: %w", voter, lbvs.ErrUnknownVoter)
	}
	return &reg, nil
}

func publicKey(buf []byte) (kyber.Point, error) {
	p := lbvs.Suite.Point()
	if err := p.UnmarshalBinary(buf); err != nil {
		return nil, xerrors.Errorf("bad public key: %w", lbvs.ErrInvalidSignature)
	}
	return p, nil
}

func verifySignature(public []byte, sb *SubmitBallot) error {
	pub, err := publicKey(public)
	if err != nil {
		return err
	}
	d, err := sb.Digest()
	if err != nil {
		return err
	}
	if err := schnorr.Verify(lbvs.Suite, pub, d, sb.Signature); err != nil {
		return xerrors.Errorf("ballots of %s: %w", sb.Voter, lbvs.ErrInvalidSignature)
	}
	return nil
}
