package analogist

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/analogist/internal/usecase/health"
)

// Aggregate health states reported by Client.Health.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded" // generation failing, usage still readable
	StatusError    = "error"    // counter store unreachable
)

// HealthStatus is a point-in-time view of the client's dependencies.
type HealthStatus struct {
	Status string            // StatusOK, StatusDegraded or StatusError
	Checks map[string]string // "database", "generation" → "ok"/"error"
}

// OK reports whether every dependency answered.
func (h HealthStatus) OK() bool { return h.Status == StatusOK }

// Failing lists the components whose probe failed, sorted by name.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health probes the counter store and, when configured, the generation backend.
// The generation probe is omitted for generators that cannot report health.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
