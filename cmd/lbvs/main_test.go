package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

const boardFile = `
name = "board"

[[question]]
text = "Board"
answers = ["alice", "bob", "carol"]
min = 1
max = 2
`

func run(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	cliApp.Writer = &buf
	err := cliApp.Run(append([]string{"lbvs"}, args...))
	return buf.String(), err
}

func TestCommands(t *testing.T) {
	dir, err := ioutil.TempDir("", "lbvs")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "board.toml")
	require.NoError(t, ioutil.WriteFile(file, []byte(boardFile), 0600))
	db := filepath.Join(dir, "roles.db")

	out, err := run(t, "params")
	require.NoError(t, err)
	require.Contains(t, out, "BoundC")

	out, err = run(t, "table", file)
	require.NoError(t, err)
	require.Contains(t, out, "Board (6 codes)")
	require.Contains(t, out, "[alice carol]")

	out, err = run(t, "table", "--qr", file)
	require.NoError(t, err)
	require.Contains(t, out, "Board (6 codes)")

	out, err = run(t, "simulate", "-n", "2", "--db", db, file)
	require.NoError(t, err)
	require.Contains(t, out, "with 2 voters")

	out, err = run(t, "inspect", db)
	require.NoError(t, err)
	require.Contains(t, out, "phase: finished")
	require.Contains(t, out, "ballotbox/pending: 0")
	require.Contains(t, out, "ballotbox/ballots: 2")
	require.Contains(t, out, "returncode/ballots: 2")

	_, err = run(t, "simulate", "--db", db, file)
	require.Error(t, err)
	_, err = run(t, "table")
	require.Error(t, err)
	_, err = run(t, "simulate", "-n", "0", file)
	require.Error(t, err)
}
