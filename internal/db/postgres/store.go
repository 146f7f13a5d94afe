package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/analogist/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	pollInterval = 100 * time.Millisecond
	probeTimeout = 2 * time.Second
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS analogist_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	getSQL = `SELECT value FROM analogist_kv WHERE key = $1`
	setSQL = `INSERT INTO analogist_kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	insertIfAbsentSQL = `INSERT INTO analogist_kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO NOTHING`
	updateIfEqualSQL = `UPDATE analogist_kv SET value = $3, updated_at = now()
WHERE key = $1 AND value = $2`
)

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Config holds PostgreSQL connection settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// Store implements db.Store on a single PostgreSQL table.
// Compare-and-swap is a conditional UPDATE (or INSERT ... DO NOTHING), so it is
// atomic under the default READ COMMITTED isolation.
type Store struct {
	pool pool
}

// NewStore connects to PostgreSQL. The schema is created by Migrate.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Store{pool: p}, nil
}

// Migrate creates the key-value table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady pings until the database answers or timeout expires.
// The first ping runs immediately; on expiry the last ping error is reported.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = s.probe(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("counter store not ready after %s: %w", timeout, errors.Join(ctx.Err(), lastErr))
		case <-ticker.C:
		}
	}
}

func (s *Store) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.Ping(ctx)
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.pool.QueryRow(ctx, getSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return value, nil
}

// Set upserts a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, setSQL, key, value); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// CompareAndSwap replaces the value at key only if it still equals prev.
func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if prev == nil {
		tag, err = s.pool.Exec(ctx, insertIfAbsentSQL, key, next)
	} else {
		tag, err = s.pool.Exec(ctx, updateIfEqualSQL, key, prev, next)
	}
	if err != nil {
		return false, &db.Error{Op: db.OpCAS, Err: err}
	}
	return tag.RowsAffected() == 1, nil
}
