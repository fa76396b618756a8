package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/open-collect/numisync/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CatalogConfig holds catalog API credentials and request pacing.
type CatalogConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalSecs int    `yaml:"min_interval_secs" mapstructure:"min_interval_secs"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MinInterval returns the pacing between outbound catalog requests.
func (c CatalogConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSecs) * time.Second
}

// CacheConfig configures the shared persistent catalog cache.
type CacheConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	TTLHours        int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MonthlyLimit    int    `yaml:"monthly_limit" mapstructure:"monthly_limit"`
	LockTimeoutSecs int    `yaml:"lock_timeout_secs" mapstructure:"lock_timeout_secs"`
}

// TTL returns how long cached catalog payloads stay valid.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// LockTimeout returns how long a process waits for the cache lock.
func (c CacheConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSecs) * time.Second
}

// EnrichConfig configures matching policy.
type EnrichConfig struct {
	AutoSelectThreshold    int    `yaml:"auto_select_threshold" mapstructure:"auto_select_threshold"`
	NoMarkMeansDefaultMint bool   `yaml:"no_mark_means_default_mint" mapstructure:"no_mark_means_default_mint"`
	FetchPricing           bool   `yaml:"fetch_pricing" mapstructure:"fetch_pricing"`
	Currency               string `yaml:"currency" mapstructure:"currency"`
	UnitAliasPath          string `yaml:"unit_alias_path" mapstructure:"unit_alias_path"`
	IssuerAliasPath        string `yaml:"issuer_alias_path" mapstructure:"issuer_alias_path"`
}

// BatchConfig configures batch enrichment.
type BatchConfig struct {
	MaxConcurrentRecords int `yaml:"max_concurrent_records" mapstructure:"max_concurrent_records"`
	RetryAttempts        int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("NUMISYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "collection.db")
	// Keys with no meaningful default still need registering or
	// AutomaticEnv will never resolve them.
	v.SetDefault("catalog.key", "")
	v.SetDefault("catalog.base_url", "https://api.numista.com/v3")
	v.SetDefault("catalog.min_interval_secs", 2)
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("cache.path", "numisync-cache.json")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("cache.monthly_limit", 2000)
	v.SetDefault("cache.lock_timeout_secs", 10)
	v.SetDefault("enrich.auto_select_threshold", 90)
	v.SetDefault("enrich.no_mark_means_default_mint", true)
	v.SetDefault("enrich.fetch_pricing", false)
	v.SetDefault("enrich.currency", "USD")
	v.SetDefault("enrich.unit_alias_path", "")
	v.SetDefault("enrich.issuer_alias_path", "")
	v.SetDefault("batch.max_concurrent_records", 1)
	v.SetDefault("batch.retry_attempts", 3)
	v.SetDefault("server.port", 8080)
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
