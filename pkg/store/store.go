// Package store persists detector results into a Bolt database, keyed by a
// content-addressed ID derived from the pair they describe.
package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/thehowl/cford32"
	"go.etcd.io/bbolt"
	"go.uber.org/multierr"

	"github.com/thehowl/cherrysniff/pkg/detect"
)

var bResults = []byte("results")

// Store is a thin wrapper around a Bolt database, centralising the
// operations needed to persist and retrieve detector results.
type Store struct {
	DB *bbolt.DB

	err  error
	once sync.Once
}

func (s *Store) init() error {
	s.once.Do(s._init)
	return s.err
}

func (s *Store) _init() {
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bResults)
		return err
	})
	if err != nil {
		s.err = fmt.Errorf("store: initialization error: %w", err)
	}
}

// ResultID derives the content-addressed key under which a result is
// stored: the first 5 bytes (40 bits) of the SHA-256 of its method, source
// and target, rendered as a human-readable base32 string.
func ResultID(r detect.Result) string {
	sum := sha256.Sum256([]byte(string(r.SearchMethod) + "\x00" + r.Source + "\x00" + r.Target))
	return cford32.EncodeToStringLower(sum[:5])
}

// Put persists a single result, keyed by ResultID. Writing the same result
// twice is idempotent.
func (s *Store) Put(r detect.Result) error {
	if err := s.init(); err != nil {
		return err
	}

	encoded, err := json.Marshal(r)
	if err != nil {
		return err
	}

	id := ResultID(r)
	return s.DB.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(bResults).Put([]byte(id), encoded)
	})
}

// PutAll persists every result in rs, attempting all of them and combining
// every error encountered rather than bailing out on the first one.
func (s *Store) PutAll(rs []detect.Result) error {
	if err := s.init(); err != nil {
		return err
	}

	var combined error
	err := s.DB.Batch(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bResults)
		for _, r := range rs {
			encoded, err := json.Marshal(r)
			if err != nil {
				combined = multierr.Append(combined, err)
				continue
			}
			if err := bucket.Put([]byte(ResultID(r)), encoded); err != nil {
				combined = multierr.Append(combined, err)
			}
		}
		return nil
	})
	return multierr.Append(combined, err)
}

// Get retrieves a single result by ID. The zero Result and false are
// returned if no such result is stored.
func (s *Store) Get(id string) (detect.Result, bool, error) {
	if err := s.init(); err != nil {
		return detect.Result{}, false, err
	}

	var buf []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bResults).Get([]byte(id))
		buf = append(buf, data...)
		return nil
	})
	if err != nil || len(buf) == 0 {
		return detect.Result{}, false, err
	}

	var r detect.Result
	if err := json.Unmarshal(buf, &r); err != nil {
		return detect.Result{}, false, err
	}
	return r, true, nil
}

// All returns every result currently stored, in bucket iteration order.
func (s *Store) All() ([]detect.Result, error) {
	if err := s.init(); err != nil {
		return nil, err
	}

	var results []detect.Result
	err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bResults).ForEach(func(_, v []byte) error {
			var r detect.Result
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			results = append(results, r)
			return nil
		})
	})
	return results, err
}
