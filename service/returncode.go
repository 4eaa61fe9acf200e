package service

import (
	"bytes"
	"sync"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/scheme"
	"go.dedis.ch/lbvs/secret"
	"go.dedis.ch/lbvs/storage"
)

// ReturnCodeServer holds CK and the PRF key. It turns the ballots of a
// voter into return codes and keeps its own copy of the confirmed ballots.
type ReturnCodeServer struct {
	sync.Mutex
	s       *scheme.Scheme
	pk      *scheme.PK
	ck      *scheme.CK
	prf     *secret.Locked
	signer  *key.Pair
	phase   *phases
	regs    *storage.Bucket
	ballots *storage.Bucket
	pending map[string]*Entry
}

// newReturnCodeServer moves prf into locked memory, leaving it zeroed.
func newReturnCodeServer(db *storage.DB, phase *phases, s *scheme.Scheme, pk *scheme.PK,
	ck *scheme.CK, prf scheme.PRFKey) (*ReturnCodeServer, error) {
	regs, err := db.Bucket("returncode/registrations")
	if err != nil {
		return nil, err
	}
	ballots, err := db.Bucket("returncode/ballots")
	if err != nil {
		return nil, err
	}
	return &ReturnCodeServer{
		s:       s,
		pk:      pk,
		ck:      ck,
		prf:     secret.NewLocked(prf),
		signer:  key.NewKeyPair(lbvs.Suite),
		phase:   phase,
		regs:    regs,
		ballots: ballots,
		pending: make(map[string]*Entry),
	}, nil
}

// Process implements Handler.
func (r *ReturnCodeServer) Process(msg network.Message) (network.Message, error) {
	switch m := msg.(type) {
	case *Registration:
		return r.Register(m)
	case *CodeRequest:
		return r.Code(m)
	case *ConfirmBallot:
		return r.ConfirmBallot(m)
	case *RefuseBallot:
		return r.RefuseBallot(m)
	case *GetView:
		return r.View()
	}
	return nil, unexpected(msg)
}

// PublicKey is the key of the countersignatures.
func (r *ReturnCodeServer) PublicKey() kyber.Point {
	return r.signer.Public
}

// Delegate returns a copy of the PRF key for a voter computing its
// expected codes on the fly.
func (r *ReturnCodeServer) Delegate() scheme.PRFKey {
	return scheme.PRFKey(r.prf.Copy())
}

// Register records the voter at the return code server.
func (r *ReturnCodeServer) Register(reg *Registration) (*RegistrationReply, error) {
	if err := r.phase.Require(PhaseRegistration); err != nil {
		return nil, err
	}
	ok, err := r.regs.Insert(reg.Voter, reg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.Errorf("voter %s: %w", reg.Voter, lbvs.ErrDuplicateRegistration)
	}
	return &RegistrationReply{Voter: reg.Voter}, nil
}

// Code verifies the ballots forwarded by the ballot box and returns one
// code per question. A ballot that does not verify gives a reply with
// Valid false and no codes; it is never an error.
func (r *ReturnCodeServer) Code(req *CodeRequest) (*RequestCodeReply, error) {
	if err := r.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	reg, err := lookup(r.regs, req.Voter)
	if err != nil {
		return nil, err
	}
	if err := notCast(r.ballots, req.Voter); err != nil {
		return nil, err
	}
	reply := &RequestCodeReply{Voter: req.Voter}
	sb := &SubmitBallot{Voter: req.Voter, Ballots: req.Ballots, Signature: req.Signature}
	if err := verifySignature(reg.Public, sb); err != nil {
		log.Lvl2("Return code server:", err)
		return r.sign(reply)
	}
	codes := make([][]byte, len(req.Ballots))
	for i := range req.Ballots {
		b := &req.Ballots[i]
		pre, ok := r.s.Code(r.pk, r.ck, &reg.VVK, &b.Encrypted, &b.Proof)
		if !ok {
			log.Lvlf2("Ballot %d of %s does not verify", i, req.Voter)
			return r.sign(reply)
		}
		codes[i] = r.s.PRF(scheme.PRFKey(r.prf.Bytes()), pre)
		pre.Wipe()
	}
	reply.Valid = true
	reply.Codes = codes

	r.Lock()
	r.pending[req.Voter] = &Entry{Voter: req.Voter, Ballots: req.Ballots, Signature: req.Signature}
	r.Unlock()
	return r.sign(reply)
}

func (r *ReturnCodeServer) sign(reply *RequestCodeReply) (*RequestCodeReply, error) {
	sig, err := schnorr.Sign(lbvs.Suite, r.signer.Private, codesDigest(reply.Voter, reply.Codes))
	if err != nil {
		return nil, err
	}
	reply.Signature = sig
	return reply, nil
}

// ConfirmBallot stores the pending ballots of the voter if they are the
// ones under cb.Signature.
func (r *ReturnCodeServer) ConfirmBallot(cb *ConfirmBallot) (*Ack, error) {
	if err := r.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	r.Lock()
	defer r.Unlock()
	if err := notCast(r.ballots, cb.Voter); err != nil {
		return nil, err
	}
	entry, ok := r.pending[cb.Voter]
	if !ok {
		return nil, xerrors.Errorf("nothing to confirm for %s: %w", cb.Voter, lbvs.ErrUnknownVoter)
	}
	if !bytes.Equal(entry.Signature, cb.Signature) {
		return nil, xerrors.Errorf("ballots of %s changed since the code request: %w", cb.Voter, lbvs.ErrInvalidSignature)
	}
	delete(r.pending, cb.Voter)
	if err := r.ballots.Put(cb.Voter, entry); err != nil {
		return nil, err
	}
	log.Lvl3("Return code server confirmed", cb.Voter)
	return &Ack{}, nil
}

// RefuseBallot drops the pending ballots of the voter. Confirmed ballots
// are final.
func (r *ReturnCodeServer) RefuseBallot(rb *RefuseBallot) (*Ack, error) {
	if err := r.phase.Require(PhaseCasting); err != nil {
		return nil, err
	}
	r.Lock()
	defer r.Unlock()
	if err := notCast(r.ballots, rb.Voter); err != nil {
		return nil, err
	}
	delete(r.pending, rb.Voter)
	return &Ack{}, nil
}

// View returns the confirmed ballots sorted by voter.
func (r *ReturnCodeServer) View() (*View, error) {
	r.Lock()
	defer r.Unlock()
	return readView("returncode", r.ballots)
}

// Wipe zeroes CK and the PRF key.
func (r *ReturnCodeServer) Wipe() {
	r.ck.Wipe()
	r.prf.Wipe()
}
