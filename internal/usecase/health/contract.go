package health

import "context"

// StorePinger is the quota counter store. Every request reads it, so its
// failure makes the whole service unhealthy.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// GenerationChecker probes the text generation backend.
type GenerationChecker interface {
	HealthCheck(ctx context.Context) error
}
