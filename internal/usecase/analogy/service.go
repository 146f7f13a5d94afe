// Package analogy orchestrates a single analogy generation request.
package analogy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/domain"
	domanalogy "github.com/kailas-cloud/analogist/internal/domain/analogy"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	"github.com/kailas-cloud/analogist/internal/logger"
	"github.com/kailas-cloud/analogist/internal/usecase/quota"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultCommitTimeout = 5 * time.Second
)

// Result is a successful generation annotated with post-commit usage.
type Result struct {
	Generation domain.Generation
	Usage      domusage.Snapshot
}

// Config holds orchestrator settings.
type Config struct {
	MaxConceptLength int
	Timeout          time.Duration
	CommitTimeout    time.Duration
}

// Service runs validation, the quota check, the backend call and the commit.
type Service struct {
	gate          QuotaGate
	generator     domain.Generator
	maxConceptLen int
	timeout       time.Duration
	commitTimeout time.Duration
}

// New creates a Service. generator can be nil when no credential is configured;
// Generate then fails with ErrConfiguration.
func New(gate QuotaGate, generator domain.Generator, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = defaultCommitTimeout
	}
	return &Service{
		gate:          gate,
		generator:     generator,
		maxConceptLen: cfg.MaxConceptLength,
		timeout:       cfg.Timeout,
		commitTimeout: cfg.CommitTimeout,
	}
}

// Generate produces an analogy between two concepts.
// Quota is only counted when the backend call succeeds.
func (s *Service) Generate(ctx context.Context, first, second string) (Result, error) {
	concepts, err := domanalogy.NewConcepts(first, second, s.maxConceptLen)
	if err != nil {
		return Result{}, err
	}
	if s.generator == nil {
		return Result{}, fmt.Errorf("generate analogy: %w", domain.ErrConfiguration)
	}

	decision, err := s.gate.Check(ctx)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		return Result{}, domain.NewQuotaExceeded(decision.Usage())
	}

	gen, err := s.call(ctx, concepts.Prompt())
	if err != nil {
		return Result{}, err
	}
	// The payload is relayed to clients, so a malformed one counts as a failed call.
	if _, err := gen.Fields(); err != nil {
		return Result{}, err
	}

	return Result{Generation: gen, Usage: s.commit(ctx, decision)}, nil
}

func (s *Service) call(ctx context.Context, prompt string) (domain.Generation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	gen, err := s.generator.Generate(callCtx, prompt)
	if err == nil {
		return gen, nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.Generation{}, domain.NewUpstreamError(
			fmt.Sprintf("Generation timed out after %s", s.timeout), err)
	}
	if errors.Is(err, domain.ErrUpstream) {
		return domain.Generation{}, err
	}
	return domain.Generation{}, domain.NewUpstreamError(err.Error(), err)
}

// commit runs detached from the request so a client disconnect cannot drop
// the increment. A failure is logged and the checked count is reported instead.
func (s *Service) commit(ctx context.Context, checked quota.Decision) domusage.Snapshot {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	snap, err := s.gate.Commit(commitCtx)
	if err == nil {
		return snap
	}
	logger.FromContext(ctx).Error("quota commit failed after successful generation",
		zap.Int64("checked_count", checked.Current),
		zap.Error(err),
	)
	return domusage.NewSnapshot(checked.Current+1, checked.Limit, checked.Day, checked.ResetsAt)
}
