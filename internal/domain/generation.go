package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// Generator is the text generation contract between the orchestrator and providers.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// HealthChecker verifies generation provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Generation is one completed backend call.
// Payload is the JSON body returned to clients, in the Gemini "candidates" shape.
type Generation struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
	TotalTokens  int
	Payload      json.RawMessage
}

// Fields decodes Payload as a JSON object. An empty payload yields nil fields.
// Anything else, including arrays and scalars, is an UpstreamError.
func (g Generation) Fields() (map[string]json.RawMessage, error) {
	if len(g.Payload) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(g.Payload, &fields); err != nil {
		return nil, NewUpstreamError("Malformed generation response", err)
	}
	if fields == nil {
		return nil, NewUpstreamError("Malformed generation response", errors.New("payload is null"))
	}
	return fields, nil
}
