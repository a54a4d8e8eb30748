package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// RedisAddr selects the shared cache substrate. Empty means the
	// single-process in-memory substrate.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockWait       time.Duration `env:"LOCK_WAIT" envDefault:"2s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	FreeSpinTTL    time.Duration `env:"FREE_SPIN_TTL" envDefault:"1h"`

	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookRetries int           `env:"WEBHOOK_RETRIES" envDefault:"2"`
	WebhookBackoff time.Duration `env:"WEBHOOK_BACKOFF" envDefault:"200ms"`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"120"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`

	LaunchBaseURL string `env:"LAUNCH_BASE_URL" envDefault:"https://play.spinhub.local"`

	// Optional seed agent for local development.
	SeedAgentName string `env:"SEED_AGENT_NAME"`
	SeedAgentKey  string `env:"SEED_AGENT_KEY"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
