package usage

import (
	"context"

	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
)

// RecordLoader provides read-only access to the daily usage record.
type RecordLoader interface {
	Load(ctx context.Context) (domusage.Stored, error)
}
