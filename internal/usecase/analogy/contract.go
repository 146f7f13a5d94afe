package analogy

import (
	"context"

	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	"github.com/kailas-cloud/analogist/internal/usecase/quota"
)

// QuotaGate decides admission and counts successful generations.
type QuotaGate interface {
	Check(ctx context.Context) (quota.Decision, error)
	Commit(ctx context.Context) (domusage.Snapshot, error)
}
