package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/domain"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	logpkg "github.com/kailas-cloud/analogist/internal/logger"
	analogyuc "github.com/kailas-cloud/analogist/internal/usecase/analogy"
	healthuc "github.com/kailas-cloud/analogist/internal/usecase/health"
	"github.com/kailas-cloud/analogist/internal/version"
)

const maxRequestBodyBytes = 16 << 10

// AnalogyService generates analogies under the daily quota.
type AnalogyService interface {
	Generate(ctx context.Context, first, second string) (analogyuc.Result, error)
}

// UsageService reports today's usage.
type UsageService interface {
	Peek(ctx context.Context) (domusage.Snapshot, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the analogy HTTP API.
type Server struct {
	analogy       AnalogyService
	usage         UsageService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(analogy AnalogyService, usage UsageService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		analogy: analogy,
		usage:   usage,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		quotaExceededHandler,
		invalidInputHandler,
		upstreamHandler,
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError,
			CodeNotConfigured, "API key not configured"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusInternalServerError,
			CodeStoreUnavailable, domain.ErrStoreUnavailable.Error()),
	}
	return s
}

// Register mounts all routes on r, including the legacy function paths.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/generate-analogy", s.GenerateAnalogy)
	r.Post("/.netlify/functions/generate-analogy", s.GenerateAnalogy)
	r.Get("/api/usage", s.GetUsage)
	r.Get("/.netlify/functions/get-usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
}

type generateRequest struct {
	Concept1 string `json:"concept1"`
	Concept2 string `json:"concept2"`
}

type usageBody struct {
	Current   int64      `json:"current"`
	Limit     int64      `json:"limit"`
	Remaining *int64     `json:"remaining,omitempty"`
	ResetDate string     `json:"resetDate,omitempty"`
	ResetsAt  *time.Time `json:"resetsAt,omitempty"`
}

// GenerateAnalogy handles POST /api/generate-analogy.
func (s *Server) GenerateAnalogy(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	res, err := s.analogy.Generate(r.Context(), req.Concept1, req.Concept2)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := generationResponse(res)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// generationResponse merges the backend payload with post-commit usage.
func generationResponse(res analogyuc.Result) (map[string]any, error) {
	fields, err := res.Generation.Fields()
	if err != nil {
		return nil, err
	}
	resp := make(map[string]any, len(fields)+1)
	if fields != nil {
		for k, v := range fields {
			resp[k] = v
		}
	} else {
		resp["candidates"] = []any{map[string]any{
			"content": map[string]any{
				"parts": []any{map[string]string{"text": res.Generation.Text}},
				"role":  "model",
			},
		}}
	}

	remaining := res.Usage.Remaining()
	resp["usage"] = usageBody{
		Current:   res.Usage.Current(),
		Limit:     res.Usage.Limit(),
		Remaining: &remaining,
	}
	return resp, nil
}

// GetUsage handles GET /api/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.usage.Peek(r.Context())
	if err != nil {
		logpkg.FromContextOr(r.Context(), s.logger).Error("fetch usage", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeStoreUnavailable, "Failed to fetch usage data")
		return
	}

	remaining := snap.Remaining()
	resetsAt := snap.ResetsAt()
	writeJSON(w, http.StatusOK, map[string]usageBody{
		"usage": {
			Current:   snap.Current(),
			Limit:     snap.Limit(),
			Remaining: &remaining,
			ResetDate: snap.ResetDate(),
			ResetsAt:  &resetsAt,
		},
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Build  version.Build     `json:"build"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if !report.Healthy() {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
		Build:  version.Get(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "Not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
