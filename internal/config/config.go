package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                     string        `mapstructure:"PORT"`
	Env                      string        `mapstructure:"ENV"`
	DatabaseURL              string        `mapstructure:"DATABASE_URL"`
	DBMaxConns               int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns               int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL                 string        `mapstructure:"REDIS_URL"`
	ReferenceCacheTTL        time.Duration `mapstructure:"REFERENCE_CACHE_TTL"`
	CORSOrigins              []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS             float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst           int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout           time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AuthDisabled             bool          `mapstructure:"AUTH_DISABLED"`
	AuthSigningKey           string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer               string        `mapstructure:"AUTH_ISSUER"`
	OTelEnabled              bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint             string        `mapstructure:"OTEL_ENDPOINT"`
	OTelServiceName          string        `mapstructure:"OTEL_SERVICE_NAME"`
	MigrationsDir            string        `mapstructure:"MIGRATIONS_DIR"`
	ScenarioFetchConcurrency int           `mapstructure:"SCENARIO_FETCH_CONCURRENCY"`
}

var keys = []string{
	"PORT",
	"ENV",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"REDIS_URL",
	"REFERENCE_CACHE_TTL",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT",
	"AUTH_DISABLED",
	"AUTH_SIGNING_KEY",
	"AUTH_ISSUER",
	"OTEL_ENABLED",
	"OTEL_ENDPOINT",
	"OTEL_SERVICE_NAME",
	"MIGRATIONS_DIR",
	"SCENARIO_FETCH_CONCURRENCY",
}

// Load reads configuration from the environment and an optional .env file.
// DATABASE_URL is not checked here; commands that talk to Postgres call
// RequireDatabase so that `compute --fixture` can run without one.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REFERENCE_CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("AUTH_DISABLED", true)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "lmsynth-server")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("SCENARIO_FETCH_CONCURRENCY", 8)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks that the configuration is safe to serve with.
func (c *Config) Validate() error {
	if !c.AuthDisabled && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when AUTH_DISABLED is false")
	}
	if c.OTelEnabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT is required when OTEL_ENABLED is true")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ScenarioFetchConcurrency < 1 {
		return fmt.Errorf("SCENARIO_FETCH_CONCURRENCY must be at least 1, got %d", c.ScenarioFetchConcurrency)
	}
	if c.ReferenceCacheTTL < 0 {
		return fmt.Errorf("REFERENCE_CACHE_TTL must not be negative")
	}
	return nil
}
