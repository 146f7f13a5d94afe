package usage

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/analogist/internal/domain"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	loader   RecordLoader
	limit    int64
	calendar domusage.Calendar
}

// New creates a Service. It must share the store, limit and calendar with the quota gate.
func New(loader RecordLoader, limit int64, calendar domusage.Calendar) *Service {
	if calendar.IsZero() {
		calendar = domusage.NewCalendar(nil, nil)
	}
	return &Service{loader: loader, limit: limit, calendar: calendar}
}

// Peek reports today's usage without mutating it.
func (s *Service) Peek(ctx context.Context) (domusage.Snapshot, error) {
	stored, err := s.loader.Load(ctx)
	if err != nil {
		return domusage.Snapshot{}, fmt.Errorf("peek usage: %w: %w", domain.ErrStoreUnavailable, err)
	}
	today := s.calendar.Today()
	return domusage.NewSnapshot(stored.EffectiveCount(today), s.limit, today, s.calendar.NextReset()), nil
}
