package analogist

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/analogist/internal/domain"
)

// Generator turns a prompt into text. Implement it to plug in a backend the
// SDK does not ship.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult is the output of a custom Generator.
type GenerationResult struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
}

// generatorAdapter wraps a public Generator to satisfy domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	r, err := a.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("generate: %w", err)
	}
	if r.Text == "" {
		return domain.Generation{}, domain.NewUpstreamError("Empty response from generation backend", nil)
	}
	return domain.Generation{
		Text:         r.Text,
		Model:        r.Model,
		PromptTokens: r.PromptTokens,
		OutputTokens: r.OutputTokens,
		TotalTokens:  r.PromptTokens + r.OutputTokens,
	}, nil
}
