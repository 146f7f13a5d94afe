package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means generation is failing but quota reads still work.
	Degraded Status = "degraded"
	// Unhealthy means the counter store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of a single component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase   = "database"
	ComponentGeneration = "generation"
)

const defaultProbeTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Healthy reports whether every component passed.
func (r Report) Healthy() bool { return r.Status == Healthy }

// Service probes the counter store and the generation backend.
type Service struct {
	store        StorePinger
	generation   GenerationChecker
	probeTimeout time.Duration
}

// New creates a Service. generation can be nil when no backend credential is configured;
// the generation check is then omitted from reports.
func New(store StorePinger, generation GenerationChecker) *Service {
	return &Service{store: store, generation: generation, probeTimeout: defaultProbeTimeout}
}

// WithProbeTimeout bounds each component probe. Non-positive values are ignored.
func (s *Service) WithProbeTimeout(d time.Duration) *Service {
	if d > 0 {
		s.probeTimeout = d
	}
	return s
}

// Check probes all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{
		ComponentDatabase: s.store.Ping,
	}
	if s.generation != nil {
		probes[ComponentGeneration] = s.generation.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.run(ctx, probe)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func (s *Service) run(ctx context.Context, probe func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

func aggregate(checks map[string]CheckResult) Status {
	switch {
	case checks[ComponentDatabase] == CheckError:
		return Unhealthy
	case checks[ComponentGeneration] == CheckError:
		return Degraded
	default:
		return Healthy
	}
}
