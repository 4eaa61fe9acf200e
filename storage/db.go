// Package storage persists the state of the roles in a bbolt database.
// Records are encoded with protobuf and kept in one bucket per collection.
package storage

import (
	"io/ioutil"
	"os"
	"time"

	"go.dedis.ch/protobuf"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var metaBucket = []byte("meta")

// DB is a bbolt database.
type DB struct {
	db   *bbolt.DB
	temp string
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %v", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// OpenTemp opens a database in a temporary file removed by Close.
func OpenTemp() (*DB, error) {
	f, err := ioutil.TempFile("", "lbvs-*.db")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()
	d, err := Open(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	d.temp = path
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	err := d.db.Close()
	if d.temp != "" {
		os.Remove(d.temp)
	}
	return err
}

// Bucket returns the named collection, creating it if needed.
func (d *DB) Bucket(name string) (*Bucket, error) {
	b := &Bucket{db: d.db, name: []byte(name)}
	err := d.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.name)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("creating bucket %s: %v", name, err)
	}
	return b, nil
}

type counter struct {
	Value int64
}

// SetCounter stores an integer under name, used for the phase marker.
func (d *DB) SetCounter(name string, value int64) error {
	buf, err := protobuf.Encode(&counter{Value: value})
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(name), buf)
	})
}

// Counter returns the integer stored under name, zero if there is none.
func (d *DB) Counter(name string) (int64, error) {
	var c counter
	err := d.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(metaBucket).Get([]byte(name))
		if buf == nil {
			return nil
		}
		return protobuf.Decode(append([]byte(nil), buf...), &c)
	})
	return c.Value, err
}

// Bucket is a collection of protobuf records keyed by string.
type Bucket struct {
	db   *bbolt.DB
	name []byte
}

// Put stores the record under key, replacing any previous one.
func (b *Bucket) Put(key string, record interface{}) error {
	buf, err := protobuf.Encode(record)
	if err != nil {
		return xerrors.Errorf("encoding %s: %v", key, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.name).Put([]byte(key), buf)
	})
}

// Insert stores the record under key and fails if the key exists.
func (b *Bucket) Insert(key string, record interface{}) (bool, error) {
	buf, err := protobuf.Encode(record)
	if err != nil {
		return false, xerrors.Errorf("encoding %s: %v", key, err)
	}
	inserted := false
	err = b.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk.Get([]byte(key)) != nil {
			return nil
		}
		inserted = true
		return bk.Put([]byte(key), buf)
	})
	return inserted, err
}

// Get decodes the record stored under key into record. It returns false
// when there is no such key. The byte slices of record never point into
// the database pages, which are only valid during the transaction.
func (b *Bucket) Get(key string, record interface{}) (bool, error) {
	var buf []byte
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(b.name).Get([]byte(key)); v != nil {
			buf = make([]byte, len(v))
			copy(buf, v)
			found = true
		}
		return nil
	})
	if err != nil || !found {
		return false, err
	}
	if err := protobuf.Decode(buf, record); err != nil {
		return false, xerrors.Errorf("decoding %s: %v", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.name).Delete([]byte(key))
	})
}

// Keys returns the keys in byte order.
func (b *Bucket) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.name).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Clear removes every record.
func (b *Bucket) Clear() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(b.name); err != nil {
			return err
		}
		_, err := tx.CreateBucket(b.name)
		return err
	})
}
