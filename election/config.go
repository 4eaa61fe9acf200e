package election

import (
	"io"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs/algebra"
)

// File is the TOML description of an election:
//
//	name = "board"
//	[params]
//	sigma_c = 54000.0
//	[[question]]
//	text = "Members"
//	answers = ["alice", "bob", "carol"]
//	min = 1
//	max = 2
type File struct {
	Name      string     `toml:"name"`
	Params    Overrides  `toml:"params"`
	Questions []Question `toml:"question"`
}

// Overrides replace the default lattice parameters when non zero.
type Overrides struct {
	N      int     `toml:"n,omitzero"`
	Q      uint64  `toml:"q,omitzero"`
	SigmaC float64 `toml:"sigma_c,omitzero"`
	SigmaE float64 `toml:"sigma_e,omitzero"`
}

// Parse reads an election from its TOML text.
func Parse(config string) (*File, error) {
	f := &File{}
	if _, err := toml.Decode(config, f); err != nil {
		return nil, xerrors.Errorf("parsing election: %v", err)
	}
	return f, f.Validate()
}

// Load reads an election from a TOML file.
func Load(path string) (*File, error) {
	f := &File{}
	if _, err := toml.DecodeFile(path, f); err != nil {
		return nil, xerrors.Errorf("reading %s: %v", path, err)
	}
	return f, f.Validate()
}

// Write encodes the election as TOML.
func (f *File) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(f)
}

// Validate checks every question and the parameters.
func (f *File) Validate() error {
	if len(f.Questions) == 0 {
		return xerrors.New("election has no question")
	}
	for i := range f.Questions {
		if err := f.Questions[i].Validate(); err != nil {
			return err
		}
	}
	p := f.Parameters()
	if err := p.Validate(); err != nil {
		return err
	}
	for _, q := range f.Questions {
		if len(q.Answers) > p.N {
			return xerrors.Errorf("question %q has more answers than the ring degree", q.Text)
		}
	}
	return nil
}

// Parameters returns the default parameters with the overrides applied.
func (f *File) Parameters() algebra.Params {
	p := algebra.DefaultParams
	if f.Params.N != 0 {
		p.N = f.Params.N
	}
	if f.Params.Q != 0 {
		p.Q = f.Params.Q
	}
	if f.Params.SigmaC != 0 {
		p.SigmaC = f.Params.SigmaC
	}
	if f.Params.SigmaE != 0 {
		p.SigmaE = f.Params.SigmaE
	}
	return p
}
