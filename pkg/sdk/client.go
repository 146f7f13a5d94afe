package analogist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/analogist/internal/db"
	"github.com/kailas-cloud/analogist/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/analogist/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/analogist/internal/db/redis"
	"github.com/kailas-cloud/analogist/internal/domain"
	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
	usagerepo "github.com/kailas-cloud/analogist/internal/repository/usage"
	geminiGen "github.com/kailas-cloud/analogist/internal/transport/gemini"
	openaiGen "github.com/kailas-cloud/analogist/internal/transport/openai"
	analogyuc "github.com/kailas-cloud/analogist/internal/usecase/analogy"
	healthuc "github.com/kailas-cloud/analogist/internal/usecase/health"
	"github.com/kailas-cloud/analogist/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/analogist/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "analogist:"
	defaultDailyLimit       = 1000
	defaultMaxConceptLength = 200
)

// Internal interfaces for substitution in tests.
type analogyUseCase interface {
	Generate(ctx context.Context, first, second string) (analogyuc.Result, error)
}

type usageUseCase interface {
	Peek(ctx context.Context) (domusage.Snapshot, error)
}

// Client is the analogist SDK entry point.
type Client struct {
	store      db.Store
	analogySvc analogyUseCase
	usageSvc   usageUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client and connects to the counter store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:     defaultKeyPrefix,
		dailyLimit:    defaultDailyLimit,
		maxConceptLen: defaultMaxConceptLength,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("analogist: counter store required (use WithValkey, WithRedis, WithPostgres or WithMemory)")
	}
	if cfg.dailyLimit <= 0 {
		return nil, fmt.Errorf("analogist: daily limit must be positive, got %d", cfg.dailyLimit)
	}

	gen, err := createGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("analogist: counter store not ready: %w", err)
	}
	if pg, ok := store.(*dbPostgres.Store); ok {
		if err := pg.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("analogist: migrate: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, gen, cfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("analogist: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "postgres":
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return nil, fmt.Errorf("analogist: create postgres store: %w", err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("analogist: unknown driver %q", cfg.driver)
	}
}

// createGenerator returns nil, nil when no backend was configured; Generate
// then fails with ErrNotConfigured while Usage and Health keep working.
func createGenerator(ctx context.Context, cfg *clientConfig) (domain.Generator, error) {
	if cfg.generator != nil {
		return &generatorAdapter{inner: cfg.generator}, nil
	}
	if cfg.apiKey == "" {
		return nil, nil
	}
	switch cfg.provider {
	case "openai":
		g, err := openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:      cfg.apiKey,
			BaseURL:     cfg.baseURL,
			Model:       cfg.model,
			Temperature: 0.9,
			TopP:        0.95,
			MaxTokens:   1024,
		})
		if err != nil {
			return nil, fmt.Errorf("analogist: %w", err)
		}
		return g, nil
	default:
		g, err := geminiGen.NewGenerator(ctx, &geminiGen.Config{
			APIKey:          cfg.apiKey,
			BaseURL:         cfg.baseURL,
			Model:           cfg.model,
			Temperature:     0.9,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		})
		if err != nil {
			return nil, fmt.Errorf("analogist: %w", err)
		}
		return g, nil
	}
}

func wireClient(store db.Store, gen domain.Generator, cfg *clientConfig, obs *observer) *Client {
	calendar := domusage.NewCalendar(cfg.location, nil)
	usageStore := usagerepo.New(store, cfg.keyPrefix)

	qcfg := quota.Config{
		Limit:    cfg.dailyLimit,
		Calendar: calendar,
	}
	if cfg.strict {
		qcfg.Consistency = quota.ConsistencyStrict
	}
	if cfg.failOpen {
		qcfg.OnStoreError = quota.FailOpen
	}
	gate := quota.New(usageStore, qcfg, nil)

	// Health only probes the backend when it can (custom generators may not).
	var checker healthuc.GenerationChecker
	if hc, ok := gen.(domain.HealthChecker); ok {
		checker = hc
	}

	return &Client{
		store: store,
		analogySvc: analogyuc.New(gate, gen, analogyuc.Config{
			MaxConceptLength: cfg.maxConceptLen,
			Timeout:          cfg.timeout,
		}),
		usageSvc:  usageuc.New(usageStore, cfg.dailyLimit, calendar),
		healthSvc: healthuc.New(store, checker),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks counter store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
