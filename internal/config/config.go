// Package config loads the vecfix configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultWeaviateEndpoint is used when no endpoint is configured.
	DefaultWeaviateEndpoint = "http://weaviate:8080"
	// DefaultRequestTimeout bounds every remote call.
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds the full application configuration. It is built once at
// startup and passed to every component; nothing reads the environment after
// Load returns.
type Config struct {
	Weaviate WeaviateConfig `mapstructure:"weaviate"`
	DB       DBConfig       `mapstructure:"db"`

	// LogLevel is the zap level for diagnostics (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

// WeaviateConfig holds the vector service connection settings.
type WeaviateConfig struct {
	// Endpoint is the Weaviate base URL.
	Endpoint string `mapstructure:"endpoint"`
	// APIKey enables bearer-token auth when non-empty.
	APIKey string `mapstructure:"api_key"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DBConfig holds the PostgreSQL connection settings for the dataset registry.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string in keyword/value form accepted by pgx.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// DefaultConfig returns the built-in defaults. These match the Dify docker
// compose environment so the tool works out of the box inside the api
// container.
func DefaultConfig() *Config {
	return &Config{
		Weaviate: WeaviateConfig{
			Endpoint: DefaultWeaviateEndpoint,
			Timeout:  DefaultRequestTimeout,
		},
		DB: DBConfig{
			Host:     "db",
			Port:     5432,
			User:     "postgres",
			Password: "difyai123456",
			Database: "dify",
			SSLMode:  "disable",
		},
		LogLevel: "warn",
	}
}

// Load builds the configuration from environment variables layered over the
// defaults. Both the Dify-prefixed names and the bare names are accepted, the
// Dify-prefixed one winning when both are set.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	v.SetDefault("weaviate.endpoint", cfg.Weaviate.Endpoint)
	v.SetDefault("weaviate.api_key", "")
	v.SetDefault("weaviate.timeout", cfg.Weaviate.Timeout)
	v.SetDefault("db.host", cfg.DB.Host)
	v.SetDefault("db.port", cfg.DB.Port)
	v.SetDefault("db.user", cfg.DB.User)
	v.SetDefault("db.password", cfg.DB.Password)
	v.SetDefault("db.database", cfg.DB.Database)
	v.SetDefault("db.sslmode", cfg.DB.SSLMode)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix("VECFIX")
	v.AutomaticEnv()

	// First matching variable wins.
	_ = v.BindEnv("weaviate.endpoint", "VECFIX_WEAVIATE_ENDPOINT", "WEAVIATE_ENDPOINT")
	_ = v.BindEnv("weaviate.api_key", "VECFIX_WEAVIATE_API_KEY", "WEAVIATE_API_KEY")
	_ = v.BindEnv("db.host", "DIFY_DB_HOST", "DB_HOST")
	_ = v.BindEnv("db.port", "DIFY_DB_PORT", "DB_PORT")
	_ = v.BindEnv("db.user", "DIFY_DB_USER", "DB_USERNAME")
	_ = v.BindEnv("db.password", "DIFY_DB_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("db.database", "DIFY_DB_NAME", "DB_DATABASE")
	_ = v.BindEnv("log_level", "VECFIX_LOG_LEVEL")

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Weaviate.Timeout <= 0 {
		cfg.Weaviate.Timeout = DefaultRequestTimeout
	}

	return cfg, nil
}
