package storage

import (
	"bytes"
	"fmt"
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

type poly struct {
	Coeffs []uint64
}

type record struct {
	Voter string
	Seq   int64
	Polys []poly
	Sig   []byte
}

func TestBucket(t *testing.T) {
	db, err := OpenTemp()
	require.NoError(t, err)
	defer db.Close()

	b, err := db.Bucket("views")
	require.NoError(t, err)

	r := record{Voter: "bob", Seq: 2, Polys: []poly{{Coeffs: []uint64{1, 4294955008, 0}}}}
	require.NoError(t, b.Put("bob", &r))
	ok, err := b.Insert("alice", &record{Voter: "alice", Seq: 1})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = b.Insert("alice", &record{Voter: "mallory"})
	require.NoError(t, err)
	require.False(t, ok)

	var got record
	found, err := b.Get("bob", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, r, got)

	found, err = b.Get("carol", &got)
	require.NoError(t, err)
	require.False(t, found)

	keys, err := b.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, keys)

	require.NoError(t, b.Delete("alice"))
	require.NoError(t, b.Delete("alice"))
	keys, err = b.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, keys)

	require.NoError(t, b.Clear())
	keys, err = b.Keys()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestDB_Reopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "roles.db")

	db, err := Open(path)
	require.NoError(t, err)
	n, err := db.Counter("phase")
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
	require.NoError(t, db.SetCounter("phase", 3))
	b, err := db.Bucket("registrations")
	require.NoError(t, err)
	require.NoError(t, b.Put("v1", &record{Voter: "v1"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	n, err = db.Counter("phase")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	b, err = db.Bucket("registrations")
	require.NoError(t, err)
	var r record
	found, err := b.Get("v1", &r)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v1", r.Voter)
}

func TestBucket_GetOwnsBytes(t *testing.T) {
	db, err := OpenTemp()
	require.NoError(t, err)
	defer db.Close()
	b, err := db.Bucket("ballots")
	require.NoError(t, err)

	sig := bytes.Repeat([]byte{0xaa}, 64)
	require.NoError(t, b.Put("v0", &record{Voter: "v0", Sig: sig}))
	var got record
	found, err := b.Get("v0", &got)
	require.NoError(t, err)
	require.True(t, found)

	// Enough writes to grow and remap the file.
	filler := bytes.Repeat([]byte{0x55}, 4096)
	for i := 0; i < 50; i++ {
		require.NoError(t, b.Put(fmt.Sprintf("v%d", i+1), &record{Sig: filler}))
	}
	require.NoError(t, b.Delete("v0"))
	require.NoError(t, db.SetCounter("phase", 2))
	require.Equal(t, sig, got.Sig)

	n, err := db.Counter("phase")
	require.NoError(t, err)
	require.NoError(t, db.SetCounter("phase", 3))
	require.Equal(t, int64(2), n)
}
