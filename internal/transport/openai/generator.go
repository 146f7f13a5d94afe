package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/domain"
	"github.com/kailas-cloud/analogist/internal/metrics"
)

// Generator is a text generation provider using an OpenAI-compatible chat completions API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
	provider    string
	logger      *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Provider    string
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key is required", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: %w: model is required", domain.ErrConfiguration)
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}, nil
}

// Generate implements domain.Generator. The payload is reshaped into Gemini's
// "candidates" form so clients read a single format regardless of provider.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		TopP:        g.topP,
		// max_tokens is the field OpenAI-compatible servers accept most widely.
		MaxTokens: g.maxTokens, //nolint:staticcheck
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "api_error").Inc()
		return domain.Generation{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		return domain.Generation{}, domain.NewUpstreamError("Empty response from generation backend", nil)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	choice := resp.Choices[0]
	gen := domain.Generation{
		Text:         choice.Message.Content,
		Model:        g.model,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	if resp.Model != "" {
		gen.Model = resp.Model
	}
	if gen.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(gen.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "output").Add(float64(gen.OutputTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "total").Add(float64(gen.TotalTokens))
	}

	raw, err := json.Marshal(toCandidates(gen, choice.FinishReason))
	if err != nil {
		return domain.Generation{}, domain.NewUpstreamError("Malformed generation response", err)
	}
	gen.Payload = raw
	return gen, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

type candidatesPayload struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role"`
}

type part struct {
	Text string `json:"text"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toCandidates(gen domain.Generation, reason openai.FinishReason) candidatesPayload {
	return candidatesPayload{
		Candidates: []candidate{{
			Content:      content{Parts: []part{{Text: gen.Text}}, Role: "model"},
			FinishReason: finishReason(reason),
		}},
		UsageMetadata: usageMetadata{
			PromptTokenCount:     gen.PromptTokens,
			CandidatesTokenCount: gen.OutputTokens,
			TotalTokenCount:      gen.TotalTokens,
		},
		ModelVersion: gen.Model,
	}
}

func finishReason(r openai.FinishReason) string {
	switch r {
	case openai.FinishReasonStop:
		return "STOP"
	case openai.FinishReasonLength:
		return "MAX_TOKENS"
	case openai.FinishReasonContentFilter:
		return "SAFETY"
	case "", openai.FinishReasonNull:
		return ""
	default:
		return strings.ToUpper(string(r))
	}
}

// parseAPIError extracts a human-readable error from the API response.
// All errors match domain.ErrUpstream.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return domain.NewUpstreamError(detail, err)
		}
		return domain.NewUpstreamError(fmt.Sprintf("Generation API error %d", reqErr.HTTPStatusCode), err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return domain.NewUpstreamError(apiErr.Message, err)
	}

	return domain.NewUpstreamError("", err)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
