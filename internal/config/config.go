package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/staffline/boond-sync/pkg/boond"
)

// Config holds the full application configuration.
type Config struct {
	Boond      BoondConfig      `yaml:"boond" mapstructure:"boond"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// BoondConfig configures access to both BoondManager environments.
type BoondConfig struct {
	// DefaultEnvironment applies when a caller names no environment.
	DefaultEnvironment string                  `yaml:"default_environment" mapstructure:"default_environment"`
	Production         boond.EnvironmentConfig `yaml:"production" mapstructure:"production"`
	Sandbox            boond.EnvironmentConfig `yaml:"sandbox" mapstructure:"sandbox"`
	TimeoutSecs        int                     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit          float64                 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retry              RetryConfig             `yaml:"retry" mapstructure:"retry"`
	Circuit            CircuitConfig           `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig tunes per-call retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig tunes the per-environment circuit breaker. A zero
// FailureThreshold disables it.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Environments returns the configured environments keyed by name. An
// environment without a base URL is left out.
func (b BoondConfig) Environments() map[boond.Environment]boond.EnvironmentConfig {
	out := make(map[boond.Environment]boond.EnvironmentConfig, 2)
	if b.Production.BaseURL != "" {
		out[boond.Production] = b.Production
	}
	if b.Sandbox.BaseURL != "" {
		out[boond.Sandbox] = b.Sandbox
	}
	return out
}

// Default parses DefaultEnvironment.
func (b BoondConfig) Default() (boond.Environment, error) {
	return boond.ParseEnvironment(b.DefaultEnvironment)
}

// SyncConfig configures reconciliation.
type SyncConfig struct {
	PageSize         int    `yaml:"page_size" mapstructure:"page_size"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"`
	IncludeDocuments bool   `yaml:"include_documents" mapstructure:"include_documents"`
	XrefField        string `yaml:"xref_field" mapstructure:"xref_field"`
	CountryCode      string `yaml:"country_code" mapstructure:"country_code"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures sync run alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("boond.default_environment", "sandbox")
	v.SetDefault("boond.production.base_url", "")
	v.SetDefault("boond.sandbox.base_url", "")
	for _, env := range []string{"production", "sandbox"} {
		for _, key := range []string{"client_token", "client_key", "user_token", "username", "password"} {
			v.SetDefault("boond."+env+"."+key, "")
		}
	}
	v.SetDefault("boond.timeout_secs", 60)
	v.SetDefault("boond.rate_limit", 5.0)
	v.SetDefault("boond.retry.max_attempts", 3)
	v.SetDefault("boond.retry.initial_backoff_ms", 500)
	v.SetDefault("boond.retry.max_backoff_ms", 8000)
	v.SetDefault("boond.retry.multiplier", 2.0)
	v.SetDefault("boond.retry.jitter_fraction", 0.25)
	v.SetDefault("boond.circuit.failure_threshold", 5)
	v.SetDefault("boond.circuit.reset_timeout_secs", 30)
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.concurrency", 3)
	v.SetDefault("sync.include_documents", true)
	v.SetDefault("sync.xref_field", "")
	v.SetDefault("sync.country_code", "33")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "boond-sync.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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
	if _, err := cfg.Boond.Default(); err != nil {
		return nil, eris.Wrap(err, "config: boond.default_environment")
	}

	return &cfg, nil
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
