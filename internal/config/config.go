package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	ScopeDoctor = "doctor"
	ScopeClinic = "clinic"

	devSigningKey    = "dev-only-signing-key-change-me"
	devAdminPassword = "admin123"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	Storage     string `mapstructure:"STORAGE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	LockTTL  time.Duration `mapstructure:"LOCK_TTL"`

	JWTSigningKey      string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTTTL             time.Duration `mapstructure:"JWT_TTL"`
	AdminUsername      string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword      string        `mapstructure:"ADMIN_PASSWORD"`
	AdminRecoveryPhone string        `mapstructure:"ADMIN_RECOVERY_PHONE"`
	PhoneRegion        string        `mapstructure:"PHONE_REGION"`

	SchedulingScope  string        `mapstructure:"SCHEDULING_SCOPE"`
	SchedulingBuffer time.Duration `mapstructure:"SCHEDULING_BUFFER"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	OTelEnabled    bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint   string  `mapstructure:"OTEL_ENDPOINT"`
	OTelSampleRate float64 `mapstructure:"OTEL_SAMPLE_RATE"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"STORAGE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "LOCK_TTL",
	"JWT_SIGNING_KEY", "JWT_TTL",
	"ADMIN_USERNAME", "ADMIN_PASSWORD", "ADMIN_RECOVERY_PHONE", "PHONE_REGION",
	"SCHEDULING_SCOPE", "SCHEDULING_BUFFER",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"OTEL_ENABLED", "OTEL_ENDPOINT", "OTEL_SAMPLE_RATE",
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory. ENV defaults to production; development has to be
// asked for, since it fills in dev-only secrets and turns on tokenless admin
// access. Validate rejects missing secrets outside development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE", StorageMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("ADMIN_USERNAME", "Admin")
	v.SetDefault("PHONE_REGION", "PK")
	v.SetDefault("SCHEDULING_SCOPE", ScopeDoctor)
	v.SetDefault("SCHEDULING_BUFFER", "15m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SAMPLE_RATE", 1.0)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.SchedulingScope = strings.ToLower(strings.TrimSpace(cfg.SchedulingScope))

	if cfg.IsDev() {
		if cfg.JWTSigningKey == "" {
			cfg.JWTSigningKey = devSigningKey
		}
		if cfg.AdminPassword == "" {
			cfg.AdminPassword = devAdminPassword
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) UsesPostgres() bool {
	return c.Storage == StoragePostgres
}

// Validate enforces the cross-field rules that Load cannot express as
// defaults.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage)
	}

	if c.SchedulingScope != ScopeDoctor && c.SchedulingScope != ScopeClinic {
		return fmt.Errorf("SCHEDULING_SCOPE must be %q or %q, got %q", ScopeDoctor, ScopeClinic, c.SchedulingScope)
	}
	if c.SchedulingBuffer < 0 {
		return fmt.Errorf("SCHEDULING_BUFFER must not be negative, got %s", c.SchedulingBuffer)
	}

	if !c.IsDev() {
		if c.JWTSigningKey == "" || c.JWTSigningKey == devSigningKey {
			return fmt.Errorf("JWT_SIGNING_KEY must be set outside development (ENV=%q)", c.Env)
		}
		if c.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD must be set outside development (ENV=%q)", c.Env)
		}
	}
	if c.IsProduction() && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes in production, got %d", len(c.JWTSigningKey))
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.OTelEnabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT is required when OTEL_ENABLED is true")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.OTelSampleRate)
	}

	return nil
}
