package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything tapin reads from the environment
type Config struct {
	// DatabasePath overrides the default ~/.tapin/tapin.db
	DatabasePath string `env:"TAPIN_DB"`
	ListenAddr   string `env:"TAPIN_ADDR" envDefault:":8080"`

	// AdminKey guards the reconcile/timeout endpoints; unset disables them
	AdminKey string `env:"TAPIN_ADMIN_KEY"`

	// WebhookURL receives eligibility notifications; unset means log-only
	WebhookURL string `env:"TAPIN_WEBHOOK_URL"`
}

// Load reads .env if present, then the process environment
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
