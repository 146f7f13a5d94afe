package quota

import (
	"context"

	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
)

// Store persists the shared daily usage record.
type Store interface {
	Load(ctx context.Context) (domusage.Stored, error)
	Save(ctx context.Context, rec domusage.Record) error
	// Swap writes next only if the record still matches prev. false, nil means a lost race.
	Swap(ctx context.Context, prev domusage.Stored, next domusage.Record) (bool, error)
}
