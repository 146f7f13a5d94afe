package analogist

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis", "postgres" or "memory"
	addrs    []string
	password string
	dsn      string

	provider  string // "gemini" or "openai"
	apiKey    string
	baseURL   string
	model     string
	generator Generator

	keyPrefix     string
	dailyLimit    int64
	location      *time.Location
	strict        bool
	failOpen      bool
	maxConceptLen int
	timeout       time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to keep the counter in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to keep the counter in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres keeps the counter in PostgreSQL. The table is created on connect.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithMemory keeps the counter in process memory. The quota is then private
// to this client and lost on exit.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithGemini uses the Gemini API. An empty model selects gemini-2.5-flash-lite.
func WithGemini(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = "gemini"
		c.apiKey = apiKey
		c.model = model
	})
}

// WithOpenAI uses an OpenAI-compatible chat completions API.
// baseURL may be empty for api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = "openai"
		c.apiKey = apiKey
		c.baseURL = baseURL
		c.model = model
	})
}

// WithGenerator sets a custom text generator. It takes precedence over
// WithGemini and WithOpenAI.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithKeyPrefix sets the counter key prefix. Default: "analogist:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDailyLimit sets the number of successful generations allowed per day.
// Default: 1000.
func WithDailyLimit(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyLimit = n
	})
}

// WithTimezone sets where the day starts. Default: UTC.
func WithTimezone(loc *time.Location) Option {
	return optionFunc(func(c *clientConfig) {
		c.location = loc
	})
}

// WithStrictConsistency commits through compare-and-swap so concurrent
// processes never lose an increment.
func WithStrictConsistency() Option {
	return optionFunc(func(c *clientConfig) {
		c.strict = true
	})
}

// WithFailOpen allows requests when the counter store cannot be read.
func WithFailOpen() Option {
	return optionFunc(func(c *clientConfig) {
		c.failOpen = true
	})
}

// WithMaxConceptLength limits each concept in runes. 0 disables the check.
// Default: 200.
func WithMaxConceptLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConceptLen = n
	})
}

// WithTimeout bounds a single backend call. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
