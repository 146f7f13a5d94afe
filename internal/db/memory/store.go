// Package memory is an in-process db.Store for single-instance deployments and tests.
// Counters do not survive a restart.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/analogist/internal/db"
)

var _ db.Store = (*Store)(nil)

// Store keeps values in a mutex-guarded map.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Ping reports an error only after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns immediately; the store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close marks the store closed. Subsequent operations fail.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Get returns a copy of the value at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrClosed}
	}
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of value at key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpSet, Err: db.ErrClosed}
	}
	s.data[key] = bytes.Clone(value)
	return nil
}

// CompareAndSwap replaces the value at key only if it still equals prev.
func (s *Store) CompareAndSwap(_ context.Context, key string, prev, next []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, &db.Error{Op: db.OpCAS, Err: db.ErrClosed}
	}
	cur, exists := s.data[key]
	switch {
	case prev == nil && exists:
		return false, nil
	case prev != nil && (!exists || !bytes.Equal(cur, prev)):
		return false, nil
	}
	s.data[key] = bytes.Clone(next)
	return true, nil
}
