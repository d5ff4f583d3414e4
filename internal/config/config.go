package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	RedisURL    string `env:"REDIS_URL"`

	VerifyBaseURL string `env:"VERIFY_BASE_URL"`
	VerifyAPIKey  string `env:"VERIFY_API_KEY"`

	// PreferredPolicy names the policy whose claim acts as the main claim of
	// a multi-policy journey.
	PreferredPolicy    string `env:"PREFERRED_POLICY" envDefault:"early_career_payments"`
	QAThresholdPercent int    `env:"QA_THRESHOLD_PERCENT" envDefault:"10"`

	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	SubmitRateLimit  int           `env:"SUBMIT_RATE_LIMIT" envDefault:"5"`
	SubmitRateWindow time.Duration `env:"SUBMIT_RATE_WINDOW" envDefault:"1m"`

	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxIdle  time.Duration `env:"DB_CONN_MAX_IDLE" envDefault:"5m"`
	DBConnMaxLife  time.Duration `env:"DB_CONN_MAX_LIFE" envDefault:"30m"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

func Load() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse environment: %v", err)
	}

	if cfg.PostgresDSN == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.QAThresholdPercent < 0 || cfg.QAThresholdPercent > 100 {
		log.Fatal("QA_THRESHOLD_PERCENT must be between 0 and 100")
	}

	return cfg
}
