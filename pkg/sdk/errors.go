package analogist

import "github.com/kailas-cloud/analogist/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput     = domain.ErrInvalidInput
	ErrQuotaExceeded    = domain.ErrQuotaExceeded
	ErrUpstream         = domain.ErrUpstream
	ErrNotConfigured    = domain.ErrConfiguration
	ErrStoreUnavailable = domain.ErrStoreUnavailable
)
