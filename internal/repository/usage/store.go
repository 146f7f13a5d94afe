package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/analogist/internal/db"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
)

// store is the consumer interface for usage persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error)
}

// Store persists the shared daily usage record as JSON under a single key.
type Store struct {
	store store
	key   string
}

// New creates a usage store. The record lives at "<prefix>usage:daily".
func New(s store, prefix string) *Store {
	return &Store{
		store: s,
		key:   prefix + "usage:daily",
	}
}

// Key returns the storage key of the usage record.
func (s *Store) Key() string { return s.key }

// Load returns the stored record. A missing key is not an error: it yields Exists=false.
func (s *Store) Load(ctx context.Context) (domusage.Stored, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domusage.Stored{}, nil
		}
		return domusage.Stored{}, fmt.Errorf("usage GET %s: %w", s.key, err)
	}

	var rec domusage.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domusage.Stored{}, fmt.Errorf("usage GET %s decode: %w", s.key, err)
	}
	return domusage.Stored{Record: rec, Exists: true, Revision: data}, nil
}

// Save overwrites the record unconditionally.
func (s *Store) Save(ctx context.Context, rec domusage.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("usage SET %s encode: %w", s.key, err)
	}
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("usage SET %s: %w", s.key, err)
	}
	return nil
}

// Swap writes next only if the stored value is still prev's revision.
// It returns false, nil when another writer got there first.
func (s *Store) Swap(ctx context.Context, prev domusage.Stored, next domusage.Record) (bool, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("usage CAS %s encode: %w", s.key, err)
	}
	var expected []byte
	if prev.Exists {
		expected = prev.Revision
		if expected == nil {
			expected = []byte{}
		}
	}
	ok, err := s.store.CompareAndSwap(ctx, s.key, expected, data)
	if err != nil {
		return false, fmt.Errorf("usage CAS %s: %w", s.key, err)
	}
	return ok, nil
}
