package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Weight persistence drivers.
const (
	WeightsDriverRedis  = "redis"
	WeightsDriverBadger = "badger"
	WeightsDriverMemory = "memory"
)

// Config holds the scholargraph API configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Database    DatabaseConfig     `yaml:"database"`
	Embedding   EmbeddingConfig    `yaml:"embedding"`
	LLM         LLMConfig          `yaml:"llm"`
	Weights     WeightsConfig      `yaml:"weights"`
	Search      SearchConfig       `yaml:"search"`
	Collections []CollectionConfig `yaml:"collections"`
	Auth        AuthConfig         `yaml:"auth"`
	Logging     LoggingConfig      `yaml:"logging"`
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

// DatabaseConfig holds vector database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// LLMConfig holds chat-completion settings. An empty APIKey disables the assistant.
type LLMConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	ExpansionRPS   float64 `yaml:"expansion_rps"`
	ExpansionBurst int     `yaml:"expansion_burst"`
}

// Enabled reports whether an LLM provider is configured.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// Timeout returns the per-call deadline.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// WeightsConfig holds learned collection weight settings.
type WeightsConfig struct {
	Driver         string  `yaml:"driver"` // redis, badger, memory (default: redis)
	BadgerPath     string  `yaml:"badger_path"`
	Reward         float64 `yaml:"reward"`
	FeedbackReward float64 `yaml:"feedback_reward"`
	DecayRate      float64 `yaml:"decay_rate"`
	// DecayIntervalHours schedules DecayAll inside the server. 0 disables it.
	DecayIntervalHours int `yaml:"decay_interval_hours"`
}

// DecayInterval returns the in-process decay period.
func (c WeightsConfig) DecayInterval() time.Duration {
	return time.Duration(c.DecayIntervalHours) * time.Hour
}

// SearchConfig holds routing and fan-out settings.
type SearchConfig struct {
	Alpha                float64 `yaml:"alpha"`
	Candidates           int     `yaml:"candidates"`
	Selected             int     `yaml:"selected"`
	DefaultLimit         int     `yaml:"default_limit"`
	MaxLimit             int     `yaml:"max_limit"`
	Workers              int     `yaml:"workers"`
	CollectionTimeoutSec int     `yaml:"collection_timeout_sec"`
}

// CollectionTimeout returns the per-collection search deadline.
func (c SearchConfig) CollectionTimeout() time.Duration {
	return time.Duration(c.CollectionTimeoutSec) * time.Second
}

// CollectionConfig describes one searchable collection.
type CollectionConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60 // paper analysis waits on the LLM
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.LLM.ExpansionRPS <= 0 {
		c.LLM.ExpansionRPS = 2
	}
	if c.LLM.ExpansionBurst <= 0 {
		c.LLM.ExpansionBurst = 5
	}
	if c.Weights.Driver == "" {
		c.Weights.Driver = WeightsDriverRedis
	}
	if c.Weights.BadgerPath == "" {
		c.Weights.BadgerPath = "data/weights"
	}
	if c.Weights.Reward <= 0 {
		c.Weights.Reward = 0.5
	}
	if c.Weights.FeedbackReward <= 0 {
		c.Weights.FeedbackReward = 0.1
	}
	if c.Weights.DecayRate <= 0 {
		c.Weights.DecayRate = 0.99
	}
	if c.Search.Alpha <= 0 {
		c.Search.Alpha = 0.2
	}
	if c.Search.Candidates <= 0 {
		c.Search.Candidates = 4
	}
	if c.Search.Selected <= 0 {
		c.Search.Selected = 3
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 15
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = 64
	}
	if c.Search.CollectionTimeoutSec <= 0 {
		c.Search.CollectionTimeoutSec = 10
	}
	if len(c.Collections) == 0 {
		c.Collections = DefaultCollections()
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	switch c.Weights.Driver {
	case WeightsDriverRedis, WeightsDriverBadger, WeightsDriverMemory:
		// ok
	default:
		return fmt.Errorf(
			"weights.driver must be %q, %q or %q, got %q",
			WeightsDriverRedis, WeightsDriverBadger, WeightsDriverMemory, c.Weights.Driver,
		)
	}
	if c.Weights.DecayRate >= 1 || math.IsNaN(c.Weights.DecayRate) {
		return fmt.Errorf("weights.decay_rate must be in (0, 1), got %g", c.Weights.DecayRate)
	}
	if c.Weights.DecayIntervalHours < 0 {
		return fmt.Errorf("weights.decay_interval_hours must not be negative, got %d", c.Weights.DecayIntervalHours)
	}
	if c.Search.Selected > c.Search.Candidates {
		return fmt.Errorf(
			"search.selected (%d) must not exceed search.candidates (%d)",
			c.Search.Selected, c.Search.Candidates,
		)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf(
			"search.default_limit (%d) must not exceed search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit,
		)
	}
	seen := make(map[string]struct{}, len(c.Collections))
	for i, col := range c.Collections {
		if strings.TrimSpace(col.ID) == "" {
			return fmt.Errorf("collections[%d].id is required", i)
		}
		if strings.TrimSpace(col.Description) == "" {
			return fmt.Errorf("collections.%s.description is required", col.ID)
		}
		if _, dup := seen[col.ID]; dup {
			return fmt.Errorf("collections.%s is defined twice", col.ID)
		}
		seen[col.ID] = struct{}{}
	}
	return nil
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
