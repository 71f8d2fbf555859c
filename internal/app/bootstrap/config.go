package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	SecretKey string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SessionTTL    time.Duration
	RememberMeTTL time.Duration

	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration

	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	RateLimit struct {
		MaxAttempts   int `yaml:"max_attempts"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "madcrow-auth-service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      30 * 24 * time.Hour,
		SessionTTL:           24 * time.Hour,
		RememberMeTTL:        30 * 24 * time.Hour,
		RateLimitMaxAttempts: 5,
		RateLimitWindow:      15 * time.Minute,
		Argon2Time:           1,
		Argon2Memory:         64 * 1024,
		Argon2Threads:        4,
		MaxDBConns:           20,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.RateLimit.MaxAttempts > 0 {
			cfg.RateLimitMaxAttempts = f.RateLimit.MaxAttempts
		}
		if f.RateLimit.WindowSeconds > 0 {
			cfg.RateLimitWindow = time.Duration(f.RateLimit.WindowSeconds) * time.Second
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SecretKey = envOrDefault("SECRET_KEY", cfg.SecretKey)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_SECONDS", int(cfg.AccessTokenTTL.Seconds()))) * time.Second
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_SECONDS", int(cfg.RefreshTokenTTL.Seconds()))) * time.Second
	cfg.SessionTTL = time.Duration(envInt("SESSION_TTL_SECONDS", int(cfg.SessionTTL.Seconds()))) * time.Second
	cfg.RememberMeTTL = time.Duration(envInt("REMEMBER_ME_TTL_SECONDS", int(cfg.RememberMeTTL.Seconds()))) * time.Second

	cfg.RateLimitMaxAttempts = envInt("RATE_LIMIT_MAX_ATTEMPTS", cfg.RateLimitMaxAttempts)
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second

	cfg.Argon2Time = uint32(envInt("ARGON2_TIME", int(cfg.Argon2Time)))
	cfg.Argon2Memory = uint32(envInt("ARGON2_MEMORY_KB", int(cfg.Argon2Memory)))
	cfg.Argon2Threads = uint8(envInt("ARGON2_THREADS", int(cfg.Argon2Threads)))

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("missing SECRET_KEY")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
