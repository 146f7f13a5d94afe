package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/domain"
	"github.com/kailas-cloud/analogist/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

const okResponse = `{
  "candidates": [{
    "content": {"parts": [{"text": "**Summary:** Rivers and memory both carve channels."}], "role": "model"},
    "finishReason": "STOP"
  }],
  "usageMetadata": {"promptTokenCount": 310, "candidatesTokenCount": 420, "totalTokenCount": 730},
  "modelVersion": "gemini-2.5-flash-lite"
}`

func newTestGenerator(t *testing.T, url string) *Generator {
	t.Helper()
	g, err := NewGenerator(context.Background(), &Config{
		APIKey:          "test-key",
		BaseURL:         url,
		Temperature:     0.9,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-lite:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("x-goog-api-key"))
		}

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				Temperature     float32 `json:"temperature"`
				TopK            float32 `json:"topK"`
				TopP            float32 `json:"topP"`
				MaxOutputTokens int32   `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "compare river and memory" {
			t.Errorf("unexpected contents: %s", body)
		}
		gc := req.GenerationConfig
		if gc.Temperature != 0.9 || gc.TopK != 40 || gc.TopP != 0.95 || gc.MaxOutputTokens != 1024 {
			t.Errorf("unexpected generation config: %+v", gc)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okResponse)
	}))
	defer server.Close()

	before := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("gemini", DefaultModel, "success"))

	gen, err := newTestGenerator(t, server.URL).Generate(context.Background(), "compare river and memory")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if gen.Text != "**Summary:** Rivers and memory both carve channels." {
		t.Errorf("unexpected text %q", gen.Text)
	}
	if gen.PromptTokens != 310 || gen.OutputTokens != 420 || gen.TotalTokens != 730 {
		t.Errorf("unexpected tokens: %+v", gen)
	}
	if gen.Model != "gemini-2.5-flash-lite" {
		t.Errorf("unexpected model %q", gen.Model)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(gen.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if _, ok := payload["candidates"]; !ok {
		t.Error("payload must carry candidates")
	}
	if _, ok := payload["sdkHttpResponse"]; ok {
		t.Error("payload must not leak transport headers")
	}

	after := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("gemini", DefaultModel, "success"))
	if after-before != 1 {
		t.Errorf("success counter delta = %f, want 1", after-before)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(t, server.URL).Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Message != "API key not valid. Please pass a valid API key." {
		t.Errorf("upstream message not preserved: %v", err)
	}
}

func TestGenerator_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer server.Close()

	_, err := newTestGenerator(t, server.URL).Generate(context.Background(), "x")
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Message != "Prompt blocked: SAFETY" {
		t.Errorf("unexpected message %q", ue.Message)
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-lite") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"models/gemini-2.5-flash-lite"}`)
	}))
	defer server.Close()

	if err := newTestGenerator(t, server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestGenerator_HealthCheck_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	if err := newTestGenerator(t, server.URL).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), &Config{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
