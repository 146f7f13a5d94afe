// Package quota enforces the shared daily request quota.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/domain"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	"github.com/kailas-cloud/analogist/internal/metrics"
)

// Consistency selects how commits are written.
type Consistency string

const (
	// ConsistencySoft does a plain read then write. Cross-process races may lose increments.
	ConsistencySoft Consistency = "soft"
	// ConsistencyStrict commits through compare-and-swap with bounded retries.
	ConsistencyStrict Consistency = "strict"
)

// FailurePolicy defines behavior when the store cannot be read during Check.
type FailurePolicy string

const (
	// FailClosed reports the store error and rejects the request.
	FailClosed FailurePolicy = "closed"
	// FailOpen logs the store error and allows the request.
	FailOpen FailurePolicy = "open"
)

const (
	defaultMaxRetries = 5
	retryBackoff      = 5 * time.Millisecond
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed  bool
	Current  int64
	Limit    int64
	Day      string
	ResetsAt time.Time
}

// Usage returns the decision as a usage snapshot.
func (d Decision) Usage() domusage.Snapshot {
	return domusage.NewSnapshot(d.Current, d.Limit, d.Day, d.ResetsAt)
}

// Config holds Gate settings.
type Config struct {
	Limit        int64
	Calendar     domusage.Calendar
	Consistency  Consistency
	OnStoreError FailurePolicy
	MaxRetries   int
}

// Gate decides whether a request may proceed and counts successful ones.
type Gate struct {
	mu           sync.Mutex
	store        Store
	limit        int64
	calendar     domusage.Calendar
	consistency  Consistency
	onStoreError FailurePolicy
	maxRetries   int
	logger       *zap.Logger
}

// New creates a Gate. Zero-valued settings fall back to soft, fail-closed, UTC.
func New(store Store, cfg Config, logger *zap.Logger) *Gate {
	if cfg.Consistency == "" {
		cfg.Consistency = ConsistencySoft
	}
	if cfg.OnStoreError == "" {
		cfg.OnStoreError = FailClosed
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Calendar.IsZero() {
		cfg.Calendar = domusage.NewCalendar(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		store:        store,
		limit:        cfg.Limit,
		calendar:     cfg.Calendar,
		consistency:  cfg.Consistency,
		onStoreError: cfg.OnStoreError,
		maxRetries:   cfg.MaxRetries,
		logger:       logger,
	}
}

// Limit returns the daily cap.
func (g *Gate) Limit() int64 { return g.limit }

// Check reads today's usage and decides. It never writes.
func (g *Gate) Check(ctx context.Context) (Decision, error) {
	today := g.calendar.Today()
	resetsAt := g.calendar.NextReset()

	stored, err := g.store.Load(ctx)
	if err != nil {
		if g.onStoreError == FailOpen {
			metrics.QuotaDecisionsTotal.WithLabelValues("fail_open").Inc()
			g.logger.Warn("quota store unreachable, allowing request", zap.Error(err))
			return Decision{Allowed: true, Limit: g.limit, Day: today, ResetsAt: resetsAt}, nil
		}
		metrics.QuotaDecisionsTotal.WithLabelValues("store_error").Inc()
		return Decision{}, fmt.Errorf("quota check: %w: %w", domain.ErrStoreUnavailable, err)
	}

	d := Decision{
		Current:  stored.EffectiveCount(today),
		Limit:    g.limit,
		Day:      today,
		ResetsAt: resetsAt,
	}
	d.Allowed = d.Current < g.limit
	if d.Allowed {
		metrics.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()
	} else {
		metrics.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
	}
	observe(d.Usage())
	return d, nil
}

// Commit counts one successful request against today.
func (g *Gate) Commit(ctx context.Context) (domusage.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		rec domusage.Record
		err error
	)
	if g.consistency == ConsistencyStrict {
		rec, err = g.commitCAS(ctx)
	} else {
		rec, err = g.commitSoft(ctx)
	}
	if err != nil {
		metrics.QuotaCommitsTotal.WithLabelValues("error").Inc()
		return domusage.Snapshot{}, err
	}
	metrics.QuotaCommitsTotal.WithLabelValues("ok").Inc()

	snap := domusage.NewSnapshot(rec.Count, g.limit, rec.Date, g.calendar.NextReset())
	observe(snap)
	return snap, nil
}

func (g *Gate) commitSoft(ctx context.Context) (domusage.Record, error) {
	stored, err := g.store.Load(ctx)
	if err != nil {
		return domusage.Record{}, fmt.Errorf("quota commit: %w: %w", domain.ErrStoreUnavailable, err)
	}
	next := stored.Increment(g.calendar.Today())
	if err := g.store.Save(ctx, next); err != nil {
		return domusage.Record{}, fmt.Errorf("quota commit: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return next, nil
}

func (g *Gate) commitCAS(ctx context.Context) (domusage.Record, error) {
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		stored, err := g.store.Load(ctx)
		if err != nil {
			return domusage.Record{}, fmt.Errorf("quota commit: %w: %w", domain.ErrStoreUnavailable, err)
		}
		next := stored.Increment(g.calendar.Today())
		ok, err := g.store.Swap(ctx, stored, next)
		if err != nil {
			return domusage.Record{}, fmt.Errorf("quota commit: %w: %w", domain.ErrStoreUnavailable, err)
		}
		if ok {
			return next, nil
		}

		metrics.QuotaCommitsTotal.WithLabelValues("conflict").Inc()
		g.logger.Debug("quota commit conflict, retrying", zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return domusage.Record{}, fmt.Errorf("quota commit: %w: %w", domain.ErrStoreUnavailable, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return domusage.Record{}, fmt.Errorf("quota commit: %w: gave up after %d conflicting attempts",
		domain.ErrStoreUnavailable, g.maxRetries)
}

func observe(s domusage.Snapshot) {
	metrics.QuotaUsed.Set(float64(s.Current()))
	metrics.QuotaRemaining.Set(float64(s.Remaining()))
}
