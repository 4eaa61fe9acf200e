// lbvs runs and inspects elections of the lattice based voting scheme.
package main

import (
	"os"

	"go.dedis.ch/onet/v3/log"
	"gopkg.in/urfave/cli.v1"
)

var cmds = cli.Commands{
	{
		Name:      "simulate",
		Usage:     "run a whole election with random voters",
		Aliases:   []string{"s"},
		ArgsUsage: "election.toml",
		Action:    simulate,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "voters, n",
				Value: 3,
				Usage: "number of voters",
			},
			cli.IntFlag{
				Name:  "workers, w",
				Value: 2,
				Usage: "number of voters casting in parallel",
			},
			cli.StringFlag{
				Name:  "db",
				Usage: "keep the role database in this file",
			},
			cli.BoolFlag{
				Name:  "tables",
				Usage: "give code tables to the voters instead of the delegated key",
			},
		},
	},
	{
		Name:      "table",
		Usage:     "print the return code table of a fresh voter",
		Aliases:   []string{"t"},
		ArgsUsage: "election.toml",
		Action:    table,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "qr",
				Usage: "also print every code as a QR code",
			},
		},
	},
	{
		Name:      "inspect",
		Usage:     "show the phase and the ballots stored in a role database",
		Aliases:   []string{"i"},
		ArgsUsage: "roles.db",
		Action:    inspect,
	},
	{
		Name:      "params",
		Usage:     "print the lattice parameters of an election",
		Aliases:   []string{"p"},
		ArgsUsage: "[election.toml]",
		Action:    params,
	},
}

var cliApp = cli.NewApp()

func init() {
	cliApp.Name = "lbvs"
	cliApp.Usage = "Lattice based voting with return codes"
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
}

func main() {
	err := cliApp.Run(os.Args)
	if err != nil {
		log.Fatalf("Error while running app: %+v", err)
	}
}
