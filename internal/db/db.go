package db

import (
	"context"
	"time"
)

// Store is the counter store facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Swapper
}

// Swapper provides an optimistic compare-and-swap on a single key.
//
// CompareAndSwap writes next only if the key currently holds prev.
// A nil prev means "the key must not exist". It returns false, nil when
// the current value differs (a conflicting writer won the race).
type Swapper interface {
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error)
}
