package analogist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kailas-cloud/analogist/internal/domain"
)

// Analogy is a generated analogy and the quota left after it was counted.
type Analogy struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
	// Payload is the backend response in the Gemini "candidates" shape,
	// the same body the HTTP API returns. Nil for custom generators.
	Payload json.RawMessage
	Usage   Usage
}

// Generate produces an analogy between two concepts. Only successful calls
// count against the daily quota.
//
// Errors match ErrInvalidInput, ErrQuotaExceeded, ErrNotConfigured,
// ErrUpstream or ErrStoreUnavailable. On ErrQuotaExceeded, QuotaUsage
// extracts the usage observed at rejection time.
func (c *Client) Generate(ctx context.Context, first, second string) (_ Analogy, err error) {
	start := time.Now()
	defer func() { c.obs.observe("generate", start, err) }()

	res, err := c.analogySvc.Generate(ctx, first, second)
	if err != nil {
		return Analogy{}, err
	}
	usage := toUsage(res.Usage)
	c.obs.remaining(usage.Remaining)

	return Analogy{
		Text:         res.Generation.Text,
		Model:        res.Generation.Model,
		PromptTokens: res.Generation.PromptTokens,
		OutputTokens: res.Generation.OutputTokens,
		Payload:      res.Generation.Payload,
		Usage:        usage,
	}, nil
}

// QuotaUsage returns the usage attached to a quota exceeded error.
func QuotaUsage(err error) (Usage, bool) {
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return Usage{}, false
	}
	return toUsage(qe.Usage), true
}
