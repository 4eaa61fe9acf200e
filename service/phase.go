package service

import (
	"sync"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
	"go.dedis.ch/lbvs/storage"
)

// Phase is the stage of an election. Phases only move forward.
type Phase int64

const (
	// PhaseSetup is the initial phase, before the keys exist.
	PhaseSetup Phase = iota
	// PhaseRegistration issues the voter keys.
	PhaseRegistration
	// PhaseCasting accepts ballots.
	PhaseCasting
	// PhaseCounting audits, shuffles and tallies.
	PhaseCounting
	// PhaseFinished is the final phase.
	PhaseFinished
)

var phaseNames = []string{"setup", "registration", "casting", "counting", "finished"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

const phaseKey = "phase"

// phases is the persisted phase marker shared by the roles of an election.
type phases struct {
	sync.Mutex
	db      *storage.DB
	current Phase
}

func loadPhases(db *storage.DB) (*phases, error) {
	v, err := db.Counter(phaseKey)
	if err != nil {
		return nil, err
	}
	return &phases{db: db, current: Phase(v)}, nil
}

// Current returns the phase.
func (p *phases) Current() Phase {
	p.Lock()
	defer p.Unlock()
	return p.current
}

// Require fails with ErrWrongPhase unless the election is in want.
func (p *phases) Require(want Phase) error {
	if cur := p.Current(); cur != want {
		return xerrors.Errorf("in %s, need %s: %w", cur, want, lbvs.ErrWrongPhase)
	}
	return nil
}

// Advance moves from the phase from to the next one.
func (p *phases) Advance(from Phase) error {
	p.Lock()
	defer p.Unlock()
	if p.current != from || from == PhaseFinished {
		return xerrors.Errorf("cannot leave %s while in %s: %w", from, p.current, lbvs.ErrWrongPhase)
	}
	if err := p.db.SetCounter(phaseKey, int64(from+1)); err != nil {
		return err
	}
	p.current = from + 1
	log.Lvl1("Entering phase", p.current)
	return nil
}
