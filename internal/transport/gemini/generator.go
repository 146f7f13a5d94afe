// Package gemini implements domain.Generator on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/analogist/internal/domain"
	"github.com/kailas-cloud/analogist/internal/metrics"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash-lite"

// Generator calls Gemini generateContent.
type Generator struct {
	client   *genai.Client
	model    string
	config   *genai.GenerateContentConfig
	provider string
	logger   *zap.Logger
}

// Config holds the Gemini provider settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
	Provider        string
	Logger          *zap.Logger
}

// NewGenerator creates a Gemini generator.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key is required", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Provider == "" {
		cfg.Provider = "gemini"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.TopK > 0 {
		genCfg.TopK = genai.Ptr(cfg.TopK)
	}
	if cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(cfg.TopP)
	}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = cfg.MaxOutputTokens
	}

	return &Generator{
		client:   client,
		model:    cfg.Model,
		config:   genCfg,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}, nil
}

// payload is the subset of the response passed through to clients.
type payload struct {
	Candidates     []*genai.Candidate                           `json:"candidates"`
	PromptFeedback *genai.GenerateContentResponsePromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *genai.GenerateContentResponseUsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string                                       `json:"modelVersion,omitempty"`
	ResponseID     string                                       `json:"responseId,omitempty"`
}

// Generate implements domain.Generator with transport-level metrics.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	start := time.Now()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, errorType(ctx, err)).Inc()
		return domain.Generation{}, parseAPIError(err)
	}

	text := resp.Text()
	if len(resp.Candidates) == 0 || text == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		msg := "Empty response from generation backend"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg = fmt.Sprintf("Prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return domain.Generation{}, domain.NewUpstreamError(msg, nil)
	}

	raw, err := json.Marshal(payload{
		Candidates:     resp.Candidates,
		PromptFeedback: resp.PromptFeedback,
		UsageMetadata:  resp.UsageMetadata,
		ModelVersion:   resp.ModelVersion,
		ResponseID:     resp.ResponseID,
	})
	if err != nil {
		return domain.Generation{}, domain.NewUpstreamError("Malformed generation response", err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	gen := domain.Generation{
		Text:    text,
		Model:   g.model,
		Payload: raw,
	}
	if resp.ModelVersion != "" {
		gen.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		gen.PromptTokens = int(u.PromptTokenCount)
		gen.OutputTokens = int(u.CandidatesTokenCount)
		gen.TotalTokens = int(u.TotalTokenCount)
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(gen.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "output").Add(float64(gen.OutputTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "total").Add(float64(gen.TotalTokens))
	}

	g.logger.Debug("gemini generation",
		zap.String("model", gen.Model),
		zap.Int("total_tokens", gen.TotalTokens),
		zap.Duration("duration", duration),
	)
	return gen, nil
}

// HealthCheck verifies the key and model via models.get.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", g.model, err)
	}
	return nil
}

// parseAPIError keeps the API's own message so clients see why generation failed.
func parseAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return domain.NewUpstreamError(apiErr.Message, err)
	}
	return domain.NewUpstreamError("", err)
}

func errorType(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "api_error"
	}
}
