package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the analogist API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Quota      QuotaConfig      `yaml:"quota"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig holds counter store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DSN              string   `yaml:"dsn"` // postgres only
	MaxConns         int32    `yaml:"max_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// QuotaConfig holds daily quota settings.
type QuotaConfig struct {
	DailyLimit       int64  `yaml:"daily_limit"`        // 0 or unset means 1000
	Timezone         string `yaml:"timezone"`           // IANA name, day boundaries are computed here
	Consistency      string `yaml:"consistency"`        // "soft" (default) | "strict"
	MaxCommitRetries int    `yaml:"max_commit_retries"` // strict mode only
	OnStoreError     string `yaml:"on_store_error"`     // "closed" (default) | "open"
	CommitTimeoutSec int    `yaml:"commit_timeout_sec"`
}

// Location resolves the reference timezone.
func (q QuotaConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", q.Timezone, err)
	}
	return loc, nil
}

// Generation providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// providerKeyEnv names the environment variable read when generation.api_key is empty.
var providerKeyEnv = map[string]string{
	ProviderGemini: "GEMINI_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
}

// GenerationConfig holds generation backend settings.
type GenerationConfig struct {
	Provider         string  `yaml:"provider"` // gemini (default) | openai
	APIKey           string  `yaml:"api_key"` // falls back to GEMINI_API_KEY / OPENAI_API_KEY
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	Temperature      float32 `yaml:"temperature"`
	TopK             float32 `yaml:"top_k"` // ignored by openai
	TopP             float32 `yaml:"top_p"`
	MaxOutputTokens  int32   `yaml:"max_output_tokens"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	MaxConceptLength *int    `yaml:"max_concept_length"` // 0 = unlimited
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.Generation.resolveAPIKey(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 45
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "analogist:"
	}

	// An explicit 0 cannot be told apart from an unset field.
	if c.Quota.DailyLimit == 0 {
		c.Quota.DailyLimit = 1000
	}
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = "UTC"
	}
	if c.Quota.Consistency == "" {
		c.Quota.Consistency = "soft"
	}
	if c.Quota.MaxCommitRetries <= 0 {
		c.Quota.MaxCommitRetries = 5
	}
	if c.Quota.OnStoreError == "" {
		c.Quota.OnStoreError = "closed"
	}
	if c.Quota.CommitTimeoutSec <= 0 {
		c.Quota.CommitTimeoutSec = 5
	}

	g := &c.Generation
	if g.Provider == "" {
		g.Provider = ProviderGemini
	}
	if g.Model == "" && g.Provider == ProviderGemini {
		g.Model = "gemini-2.5-flash-lite"
	}
	if g.Temperature <= 0 {
		g.Temperature = 0.9
	}
	if g.TopK <= 0 {
		g.TopK = 40
	}
	if g.TopP <= 0 {
		g.TopP = 0.95
	}
	if g.MaxOutputTokens <= 0 {
		g.MaxOutputTokens = 1024
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 30
	}
	if g.MaxConceptLength == nil {
		n := 200
		g.MaxConceptLength = &n
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, postgres, memory, got %q", c.Database.Driver)
	}

	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota.daily_limit must not be negative, got %d", c.Quota.DailyLimit)
	}
	if _, err := c.Quota.Location(); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}
	switch c.Quota.Consistency {
	case "soft", "strict":
	default:
		return fmt.Errorf("quota.consistency must be \"soft\" or \"strict\", got %q", c.Quota.Consistency)
	}
	switch c.Quota.OnStoreError {
	case "closed", "open":
	default:
		return fmt.Errorf("quota.on_store_error must be \"closed\" or \"open\", got %q", c.Quota.OnStoreError)
	}

	switch c.Generation.Provider {
	case ProviderGemini:
	case ProviderOpenAI:
		if c.Generation.Model == "" {
			return errors.New("generation.model is required for openai")
		}
	default:
		return fmt.Errorf("generation.provider must be \"gemini\" or \"openai\", got %q", c.Generation.Provider)
	}
	if c.Generation.MaxConceptLength != nil && *c.Generation.MaxConceptLength < 0 {
		return fmt.Errorf("generation.max_concept_length must not be negative, got %d", *c.Generation.MaxConceptLength)
	}
	if c.HTTP.WriteTimeoutSec > 0 && c.HTTP.WriteTimeoutSec <= c.Generation.TimeoutSec {
		return fmt.Errorf("http.write_timeout_sec (%d) must exceed generation.timeout_sec (%d)",
			c.HTTP.WriteTimeoutSec, c.Generation.TimeoutSec)
	}
	return nil
}

// resolveAPIKey fills an empty key from the provider's own environment variable,
// so a Gemini credential is never sent to an OpenAI endpoint or the reverse.
func (g *GenerationConfig) resolveAPIKey(getenv func(string) string) {
	if g.APIKey != "" {
		return
	}
	if name, ok := providerKeyEnv[g.Provider]; ok {
		g.APIKey = getenv(name)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
