// Package service runs an election between the five roles of the protocol:
// the voters with their computers, the ballot box, the return code server,
// the shuffle server and the auditor.
//
// Every role is a Handler. The roles only talk through the typed messages
// of struct.go, each request and reply going through the tagged network
// encoding, and never share memory.
package service

import (
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/scheme"
	"go.dedis.ch/lbvs/storage"
)

// Config describes a run of an election.
type Config struct {
	File *election.File
	// DB is the path of the role database, a temporary file if empty.
	DB string
	// Tables gives every voter its code tables. Otherwise the voters get
	// the delegated PRF key.
	Tables bool
	// Workers is the number of voters casting in parallel in CastAll.
	Workers int
}

// Election is the authority: it creates the keys and the roles and drives
// the phases.
type Election struct {
	ID        string
	questions []election.Question
	cfg       Config
	s         *scheme.Scheme
	db        *storage.DB
	phase     *phases
	pk        *scheme.PK

	box     *BallotBox
	codes   *ReturnCodeServer
	shuffle *ShuffleServer
	auditor *Auditor

	timings map[Phase]time.Duration
	started time.Time
}

// New opens the database of the election and checks the configuration.
func New(cfg Config) (*Election, error) {
	if cfg.File == nil {
		return nil, xerrors.New("no election file")
	}
	if err := cfg.File.Validate(); err != nil {
		return nil, xerrors.Errorf("election file: %v", err)
	}
	ctx, err := algebra.NewContext(cfg.File.Parameters())
	if err != nil {
		return nil, err
	}
	var db *storage.DB
	if cfg.DB == "" {
		db, err = storage.OpenTemp()
	} else {
		db, err = storage.Open(cfg.DB)
	}
	if err != nil {
		return nil, err
	}
	ph, err := loadPhases(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if ph.Current() != PhaseSetup {
		db.Close()
		return nil, xerrors.Errorf("database already used, %s: %w", ph.Current(), lbvs.ErrWrongPhase)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Election{
		ID:        uuid.NewV4().String(),
		questions: cfg.File.Questions,
		cfg:       cfg,
		s:         scheme.New(ctx),
		db:        db,
		phase:     ph,
		timings:   make(map[Phase]time.Duration),
		started:   time.Now(),
	}, nil
}

// Phase returns the current phase.
func (e *Election) Phase() Phase {
	return e.phase.Current()
}

// Questions returns the questions of the election.
func (e *Election) Questions() []election.Question {
	return e.questions
}

// Timings returns how long each finished phase took.
func (e *Election) Timings() map[Phase]time.Duration {
	return e.timings
}

func (e *Election) advance(from Phase) error {
	if err := e.phase.Advance(from); err != nil {
		return err
	}
	now := time.Now()
	e.timings[from] = now.Sub(e.started)
	e.started = now
	return nil
}

// Setup creates the election keys and hands them to their holders:
// DK to the shuffle server, CK and the PRF key to the return code server.
func (e *Election) Setup() error {
	if err := e.phase.Require(PhaseSetup); err != nil {
		return err
	}
	pk, dk, ck := e.s.Setup()
	e.pk = pk
	var err error
	e.codes, err = newReturnCodeServer(e.db, e.phase, e.s, pk, ck, scheme.NewPRFKey())
	if err != nil {
		return err
	}
	e.box, err = newBallotBox(e.db, e.phase, len(e.questions), codeClient{e.codes})
	if err != nil {
		return err
	}
	e.shuffle = &ShuffleServer{s: e.s, dk: dk, questions: e.questions, phase: e.phase}
	e.auditor = newAuditor(e.s, pk, e.questions)
	log.Lvl2("Election", e.ID, "has", len(e.questions), "questions")
	return e.advance(PhaseSetup)
}

// Register issues the keys of a new voter and records it at the ballot
// box and at the return code server.
func (e *Election) Register() (*Voter, error) {
	if err := e.phase.Require(PhaseRegistration); err != nil {
		return nil, err
	}
	vvk, vck, _ := e.s.Register(e.pk)
	comp := &Computer{s: e.s, pk: e.pk, vck: vck, signer: key.NewKeyPair(lbvs.Suite)}
	v := &Voter{ID: uuid.NewV4().String(), VVK: vvk, Computer: comp, server: e.codes.PublicKey()}
	if err := e.enroll(v); err != nil {
		vck.Wipe()
		return nil, err
	}
	if e.cfg.Tables {
		for i := range e.questions {
			t, err := e.s.ComputeTable(scheme.PRFKey(e.codes.prf.Bytes()), vck.A, &e.questions[i])
			if err != nil {
				return nil, err
			}
			v.tables = append(v.tables, t)
		}
	} else {
		v.delegated = e.codes.Delegate()
	}
	log.Lvl3("Registered voter", v.ID)
	return v, nil
}

func (e *Election) enroll(v *Voter) error {
	pub, err := v.Computer.Public()
	if err != nil {
		return err
	}
	reg := &Registration{Voter: v.ID, VVK: *v.VVK, Public: pub}
	if _, err := call(e.box, reg); err != nil {
		return err
	}
	_, err = call(e.codes, reg)
	return err
}

// OpenCasting ends the registration.
func (e *Election) OpenCasting() error {
	return e.advance(PhaseRegistration)
}

// Cast runs the casting protocol for one voter. It returns ErrBallotRefused
// when the return codes do not match, after the ballots were deleted at
// the ballot box and at the return code server, and ErrAlreadyCast for a
// second cast of the same voter.
func (e *Election) Cast(v *Voter, selections [][]int) error {
	if err := e.phase.Require(PhaseCasting); err != nil {
		return err
	}
	sb, err := v.Prepare(e.questions, selections)
	if err != nil {
		return err
	}
	if _, err := call(e.box, sb); err != nil {
		return lbvs.ErrorOrNil(err, "submitting the ballots")
	}
	msg, err := call(e.box, &RequestCode{Voter: v.ID})
	if err != nil {
		return lbvs.ErrorOrNil(err, "requesting the codes")
	}
	reply, ok := msg.(*RequestCodeReply)
	if !ok {
		return unexpected(msg)
	}
	if !v.Accept(reply) {
		if _, err := call(e.box, &RefuseBallot{Voter: v.ID}); err != nil {
			return err
		}
		return xerrors.Errorf("voter %s: %w", v.ID, lbvs.ErrBallotRefused)
	}
	_, err = call(e.box, &ConfirmBallot{Voter: v.ID})
	return err
}

// CastAll casts for every voter with at most Workers voters at a time.
// The error of voter i is at index i.
func (e *Election) CastAll(voters []*Voter, selections [][][]int) []error {
	errs := make([]error, len(voters))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = e.Cast(voters[i], selections[i])
			}
		}()
	}
	for i := range voters {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return errs
}

// Count closes the casting, audits the views of the ballot box and of the
// return code server, shuffles every question and verifies the shuffles.
// A failed audit or shuffle is fatal: no result is returned.
func (e *Election) Count() ([]election.Results, error) {
	if err := e.advance(PhaseCasting); err != nil {
		return nil, err
	}
	for _, h := range []Handler{e.box, e.codes} {
		v, err := getView(h)
		if err != nil {
			return nil, err
		}
		if _, err := call(e.auditor, v); err != nil {
			return nil, err
		}
	}
	if err := e.auditor.Audit(); err != nil {
		return nil, lbvs.WrapError(err)
	}
	for q := range e.questions {
		ballots := e.auditor.Ballots(q)
		if len(ballots) == 0 {
			continue
		}
		msg, err := call(e.shuffle, &CountRequest{Question: int64(q), Ballots: ballots})
		if err != nil {
			return nil, err
		}
		if _, err := call(e.auditor, msg); err != nil {
			return nil, err
		}
	}
	results, err := e.auditor.Results()
	if err != nil {
		log.Error("Counting aborted:", err)
		return nil, lbvs.WrapError(err)
	}
	if err := e.advance(PhaseCounting); err != nil {
		return nil, err
	}
	return results, nil
}

// Close wipes the keys and closes the database.
func (e *Election) Close() error {
	if e.codes != nil {
		e.codes.Wipe()
	}
	if e.shuffle != nil {
		e.shuffle.Wipe()
	}
	for p, d := range e.timings {
		log.Lvlf2("Phase %s took %s", p, d)
	}
	return e.db.Close()
}
