package main

import (
	"encoding/base64"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/qantik/qrgo"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
	"gopkg.in/urfave/cli.v1"

	"go.dedis.ch/lbvs/algebra"
	"go.dedis.ch/lbvs/election"
	"go.dedis.ch/lbvs/scheme"
	"go.dedis.ch/lbvs/service"
	"go.dedis.ch/lbvs/storage"
)

func loadFile(c *cli.Context) (*election.File, error) {
	if c.NArg() != 1 {
		return nil, xerrors.New("please give the election file")
	}
	return election.Load(c.Args().First())
}

// simulate registers voters with random selections, casts and counts, and
// compares the result with the plaintext tally.
func simulate(c *cli.Context) error {
	f, err := loadFile(c)
	if err != nil {
		return err
	}
	n := c.Int("voters")
	if n < 1 {
		return xerrors.New("need at least one voter")
	}
	e, err := service.New(service.Config{
		File:    f,
		DB:      c.String("db"),
		Tables:  c.Bool("tables"),
		Workers: c.Int("workers"),
	})
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.Setup(); err != nil {
		return err
	}

	questions := e.Questions()
	expected := make([][]int, len(questions))
	for q := range questions {
		expected[q] = make([]int, len(questions[q].Answers))
	}
	voters := make([]*service.Voter, n)
	selections := make([][][]int, n)
	for i := range voters {
		if voters[i], err = e.Register(); err != nil {
			return err
		}
		for q := range questions {
			sel := questions[q].RandomSelection()
			selections[i] = append(selections[i], sel)
			for _, a := range sel {
				expected[q][a]++
			}
		}
	}
	if err := e.OpenCasting(); err != nil {
		return err
	}
	for i, err := range e.CastAll(voters, selections) {
		if err != nil {
			return xerrors.Errorf("voter %d: %v", i, err)
		}
	}
	results, err := e.Count()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Election %s with %d voters\n", e.ID, n)
	for q, res := range results {
		fmt.Fprint(c.App.Writer, res.String())
		for a, count := range res.Counts {
			if count != expected[q][a] {
				return xerrors.Errorf("question %d answer %d: counted %d, cast %d", q, a, count, expected[q][a])
			}
		}
	}
	for _, p := range []service.Phase{service.PhaseSetup, service.PhaseRegistration,
		service.PhaseCasting, service.PhaseCounting} {
		log.Lvlf1("%-12s %s", p, e.Timings()[p])
	}
	return nil
}

// table prints the return code of every valid selection for a fresh voter,
// each followed by its QR code with --qr.
func table(c *cli.Context) error {
	f, err := loadFile(c)
	if err != nil {
		return err
	}
	ctx, err := algebra.NewContext(f.Parameters())
	if err != nil {
		return err
	}
	s := scheme.New(ctx)
	pk, dk, ck := s.Setup()
	defer dk.Wipe()
	defer ck.Wipe()
	_, vck, _ := s.Register(pk)
	defer vck.Wipe()
	key := scheme.NewPRFKey()
	defer key.Wipe()

	for q := range f.Questions {
		question := &f.Questions[q]
		precodes, err := s.ComputeTableBase64(key, vck.A, question)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s (%d codes)\n", question.Text, len(precodes))
		for _, sel := range question.Combinations() {
			v, err := election.EncodeVote(ctx, sel)
			if err != nil {
				return err
			}
			code := base64.StdEncoding.EncodeToString(s.ExpectedCode(key, vck.A, v))
			fmt.Fprintf(c.App.Writer, "  %v: %s\n", answers(question, sel), code)
			if c.Bool("qr") {
				qr, err := qrgo.NewQR(code)
				if err != nil {
					return err
				}
				qr.OutputTerminal()
			}
		}
	}
	return nil
}

func answers(q *election.Question, sel []int) []string {
	out := make([]string, len(sel))
	for i, a := range sel {
		out[i] = q.Answers[a]
	}
	return out
}

// inspect prints the phase and the voters stored by every role.
func inspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New("please give the role database")
	}
	db, err := storage.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer db.Close()
	phase, err := db.Counter("phase")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "phase: %s\n", service.Phase(phase))
	names := []string{"ballotbox/registrations", "ballotbox/pending", "ballotbox/ballots",
		"returncode/registrations", "returncode/ballots"}
	for _, name := range names {
		b, err := db.Bucket(name)
		if err != nil {
			return err
		}
		keys, err := b.Keys()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %d\n", name, len(keys))
		for _, k := range keys {
			log.Lvl2(" ", k)
		}
	}
	return nil
}

// params prints the parameters as TOML, the defaults without a file.
func params(c *cli.Context) error {
	p := algebra.DefaultParams
	if c.NArg() > 0 {
		f, err := loadFile(c)
		if err != nil {
			return err
		}
		p = f.Parameters()
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return toml.NewEncoder(c.App.Writer).Encode(struct {
		Params algebra.Params
		BoundC float64
		BoundE float64
	}{p, p.Bound(p.SigmaC, p.Width), p.Bound(p.SigmaE, p.Width)})
}
