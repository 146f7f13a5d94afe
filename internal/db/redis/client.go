package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/analogist/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName   = "analogist"
	pollInterval = 100 * time.Millisecond
	// Ceiling for a single readiness probe so one hung dial cannot eat the whole wait.
	probeTimeout = 2 * time.Second
)

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store keeps quota counters in Redis or Valkey. Both speak the same
// GET/SET/EVALSHA subset used here, so one implementation serves both drivers.
type Store struct {
	client rueidis.Client
}

// NewStore dials the configured nodes. Client-side caching stays off:
// counters are read-modify-write and must never come from a stale local copy.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %v: %w", cfg.Addrs, err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady probes the server until it answers or timeout expires.
// The first probe runs immediately; on expiry the last probe error is reported.
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

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
