// Package registry records saved models in a bolt database so that they can be
// found by name.
package registry

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var modelsBucket = []byte("models")

// ErrUnknownModel is returned by Get for a name that was never recorded.
var ErrUnknownModel = errors.New("registry: unknown model")

// Entry describes one saved model. Accuracy holds only when Evaluated is set.
type Entry struct {
	Name      string
	Dir       string
	Epoch     int
	Evaluated bool
	Accuracy  float64
	SavedAt   time.Time
}

// Registry is a bolt backed model index.
type Registry struct {
	db *bolt.DB
}

// Open opens or creates the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(modelsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: create bucket: %w", err)
	}
	return &Registry{db: db}, nil
}

// Put records e, replacing any entry with the same name.
func (r *Registry) Put(e Entry) error {
	if e.Name == "" {
		return errors.New("registry: empty model name")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(modelsBucket).Put([]byte(e.Name), buf.Bytes())
	})
}

// Get returns the entry recorded for name.
func (r *Registry) Get(name string) (Entry, error) {
	var e Entry
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(modelsBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrUnknownModel, name)
		}
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&e)
	})
	return e, err
}

// List returns every entry ordered by name.
func (r *Registry) List() ([]Entry, error) {
	var out []Entry
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(modelsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&e); err != nil {
				return fmt.Errorf("registry: decode %s: %w", k, err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}
