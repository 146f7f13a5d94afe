package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // quota.timezone must resolve in minimal images

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analogist/internal/config"
	"github.com/kailas-cloud/analogist/internal/db"
	"github.com/kailas-cloud/analogist/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/analogist/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/analogist/internal/db/redis"
	"github.com/kailas-cloud/analogist/internal/domain"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	logpkg "github.com/kailas-cloud/analogist/internal/logger"
	"github.com/kailas-cloud/analogist/internal/metrics"
	usagerepo "github.com/kailas-cloud/analogist/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/analogist/internal/transport/chi"
	geminiGen "github.com/kailas-cloud/analogist/internal/transport/gemini"
	openaiGen "github.com/kailas-cloud/analogist/internal/transport/openai"
	analogyuc "github.com/kailas-cloud/analogist/internal/usecase/analogy"
	healthuc "github.com/kailas-cloud/analogist/internal/usecase/health"
	"github.com/kailas-cloud/analogist/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/analogist/internal/usecase/usage"
	"github.com/kailas-cloud/analogist/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting analogist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int64("daily_limit", cfg.Quota.DailyLimit),
		zap.String("timezone", cfg.Quota.Timezone),
		zap.String("consistency", cfg.Quota.Consistency),
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	if pg, ok := store.(*dbPostgres.Store); ok {
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Database migration failed", zap.Error(err))
		}
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterGenerationMetrics()
	metrics.RegisterQuotaMetrics()

	loc, err := cfg.Quota.Location()
	if err != nil {
		logger.Fatal("Invalid quota timezone", zap.Error(err))
	}
	calendar := domusage.NewCalendar(loc, nil)

	usageStore := usagerepo.New(store, cfg.Storage.KeyPrefix)
	gate := quota.New(usageStore, quota.Config{
		Limit:        cfg.Quota.DailyLimit,
		Calendar:     calendar,
		Consistency:  quota.Consistency(cfg.Quota.Consistency),
		OnStoreError: quota.FailurePolicy(cfg.Quota.OnStoreError),
		MaxRetries:   cfg.Quota.MaxCommitRetries,
	}, logger)

	generator, err := buildGenerator(ctx, cfg.Generation, logger)
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		// The server still serves usage and health; generation requests get a 500.
		logger.Warn("Generation backend not configured", zap.Error(err))
	case err != nil:
		logger.Fatal("Failed to create generator", zap.Error(err))
	default:
		logger.Info("Generator created",
			zap.String("provider", cfg.Generation.Provider),
			zap.String("model", cfg.Generation.Model),
		)
	}

	// Pass nil interfaces (not typed nil pointers!) when no generator exists.
	// Go gotcha: (*gemini.Generator)(nil) wrapped in domain.Generator != nil.
	var (
		gen     domain.Generator
		checker healthuc.GenerationChecker
	)
	if generator != nil {
		gen = generator
		checker = generator
	}

	analogySvc := analogyuc.New(gate, gen, analogyuc.Config{
		MaxConceptLength: *cfg.Generation.MaxConceptLength,
		Timeout:          time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		CommitTimeout:    time.Duration(cfg.Quota.CommitTimeoutSec) * time.Second,
	})
	usageSvc := usageuc.New(usageStore, cfg.Quota.DailyLimit, calendar)
	healthSvc := healthuc.New(store, checker)

	server := chiTransport.NewServer(analogySvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore creates the counter store for the configured driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
		}
		return s, nil
	case config.DriverPostgres:
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// generator is what the composition root needs from a provider.
type generator interface {
	domain.Generator
	healthuc.GenerationChecker
}

// buildGenerator creates the configured provider. It returns nil and an
// ErrConfiguration error when the credential is missing.
func buildGenerator(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		g, err := openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   int(cfg.MaxOutputTokens),
			Provider:    cfg.Provider,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		g, err := geminiGen.NewGenerator(ctx, &geminiGen.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			TopK:            cfg.TopK,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Provider:        cfg.Provider,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Error: "Internal server error",
						Code:  chiTransport.CodeInternalError,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
