package analogist

import (
	"context"

	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	analogyuc "github.com/kailas-cloud/analogist/internal/usecase/analogy"
	healthuc "github.com/kailas-cloud/analogist/internal/usecase/health"
)

// --- analogyUseCase mock ---

type mockAnalogyUC struct {
	generateFn func(ctx context.Context, first, second string) (analogyuc.Result, error)
}

func (m *mockAnalogyUC) Generate(ctx context.Context, first, second string) (analogyuc.Result, error) {
	return m.generateFn(ctx, first, second)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	peekFn func(ctx context.Context) (domusage.Snapshot, error)
}

func (m *mockUsageUC) Peek(ctx context.Context) (domusage.Snapshot, error) {
	return m.peekFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- Generator mock ---

type mockGenerator struct {
	fn    func(ctx context.Context, prompt string) (GenerationResult, error)
	calls int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (GenerationResult, error) {
	m.calls++
	return m.fn(ctx, prompt)
}

// --- helpers ---

func testClient(analogySvc analogyUseCase, usageSvc usageUseCase, healthSvc healthUseCase) *Client {
	return &Client{
		analogySvc: analogySvc,
		usageSvc:   usageSvc,
		healthSvc:  healthSvc,
	}
}
