package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the research job store.
type StoreConfig struct {
	Driver           string `yaml:"driver" mapstructure:"driver"`
	RedisURL         string `yaml:"redis_url" mapstructure:"redis_url"`
	DatabaseURL      string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath       string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	KeyPrefix        string `yaml:"key_prefix" mapstructure:"key_prefix"`
	JobTTLHours      int    `yaml:"job_ttl_hours" mapstructure:"job_ttl_hours"`
	ProbeTimeoutSecs int    `yaml:"probe_timeout_secs" mapstructure:"probe_timeout_secs"`
	FailureThreshold int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int    `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns" mapstructure:"postgres_max_conns"`
	PostgresMinConns int32  `yaml:"postgres_min_conns" mapstructure:"postgres_min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	ResearchModel string  `yaml:"research_model" mapstructure:"research_model"`
	MaxTokens     int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64 `yaml:"temperature" mapstructure:"temperature"`
	// BaseURL overrides the API endpoint, e.g. for a gateway. Empty uses the SDK default.
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
}

// ResearchConfig bounds the deep research orchestrator.
type ResearchConfig struct {
	MaxConcurrentJobs     int    `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	RequestsPerMinute     int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	GenerationTimeoutSecs int    `yaml:"generation_timeout_secs" mapstructure:"generation_timeout_secs"`
	GenerationAttempts    int    `yaml:"generation_attempts" mapstructure:"generation_attempts"`
	RetryBackoffSecs      int    `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	StatusPath            string `yaml:"status_path" mapstructure:"status_path"`
}

// ScoringConfig configures the tier database and weighting.
type ScoringConfig struct {
	UnknownHazard    int                      `yaml:"unknown_hazard" mapstructure:"unknown_hazard"`
	TierDBPath       string                   `yaml:"tier_db_path" mapstructure:"tier_db_path"`
	OwnershipPath    string                   `yaml:"ownership_path" mapstructure:"ownership_path"`
	Profiles         map[string]ProfileConfig `yaml:"profiles" mapstructure:"profiles"`
	CategoryProfiles map[string]string        `yaml:"category_profiles" mapstructure:"category_profiles"`
}

// ProfileConfig is one set of dimension weights. Weights must sum to 1.
type ProfileConfig struct {
	Ingredient float64 `yaml:"ingredient" mapstructure:"ingredient"`
	Processing float64 `yaml:"processing" mapstructure:"processing"`
	Corporate  float64 `yaml:"corporate" mapstructure:"corporate"`
	Supply     float64 `yaml:"supply" mapstructure:"supply"`
	Condition  float64 `yaml:"condition" mapstructure:"condition"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var storeDrivers = map[string]bool{"redis": true, "postgres": true, "sqlite": true, "memory": true}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "redis")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "safescan.db")
	v.SetDefault("store.key_prefix", "job:")
	v.SetDefault("store.job_ttl_hours", 24)
	v.SetDefault("store.probe_timeout_secs", 3)
	v.SetDefault("store.failure_threshold", 3)
	v.SetDefault("store.reset_timeout_secs", 30)
	v.SetDefault("store.postgres_max_conns", 4)
	v.SetDefault("store.postgres_min_conns", 0)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.research_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8000)
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("research.max_concurrent_jobs", 4)
	v.SetDefault("research.requests_per_minute", 30)
	v.SetDefault("research.generation_timeout_secs", 300)
	v.SetDefault("research.generation_attempts", 1)
	v.SetDefault("research.retry_backoff_secs", 2)
	v.SetDefault("research.status_path", "/api/v4/job/")
	v.SetDefault("scoring.unknown_hazard", 40)
	v.SetDefault("scoring.tier_db_path", "")
	v.SetDefault("scoring.ownership_path", "")
	v.SetDefault("scoring.category_profiles", map[string]string{"cookware": "condition"})
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 30)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes: "score",
// "research", "serve". Every problem is reported in one error.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "score":
		errs = c.validateScoring(errs)
	case "research":
		errs = c.validateScoring(errs)
		errs = c.validateResearch(errs)
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "serve":
		errs = c.validateScoring(errs)
		errs = c.validateResearch(errs)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be > 0 and <= 65535, got %d", c.Server.Port))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateScoring(errs []string) []string {
	if c.Scoring.UnknownHazard < 0 || c.Scoring.UnknownHazard > 100 {
		errs = append(errs, fmt.Sprintf("scoring.unknown_hazard must be between 0 and 100, got %d", c.Scoring.UnknownHazard))
	}
	names := make([]string, 0, len(c.Scoring.Profiles))
	for name := range c.Scoring.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if msg := c.Scoring.Profiles[name].check(); msg != "" {
			errs = append(errs, fmt.Sprintf("scoring.profiles.%s %s", name, msg))
		}
	}
	return errs
}

func (c *Config) validateResearch(errs []string) []string {
	if !storeDrivers[c.Store.Driver] {
		errs = append(errs, fmt.Sprintf("store.driver must be one of redis, postgres, sqlite, memory; got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	if c.Store.JobTTLHours <= 0 {
		errs = append(errs, "store.job_ttl_hours must be > 0")
	}
	if c.Research.MaxConcurrentJobs < 1 || c.Research.MaxConcurrentJobs > 64 {
		errs = append(errs, "research.max_concurrent_jobs must be between 1 and 64")
	}
	if c.Research.RequestsPerMinute <= 0 {
		errs = append(errs, "research.requests_per_minute must be > 0")
	}
	if c.Research.GenerationAttempts < 1 {
		errs = append(errs, "research.generation_attempts must be >= 1")
	}
	return errs
}

func (p ProfileConfig) check() string {
	sum := 0.0
	for _, w := range []float64{p.Ingredient, p.Processing, p.Corporate, p.Supply, p.Condition} {
		if w < 0 {
			return "weights must be >= 0"
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Sprintf("weights sum to %.2f, want 1", sum)
	}
	return ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
