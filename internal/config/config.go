package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Port string `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host       string `envconfig:"DB_HOST" default:"localhost"`
		Port       string `envconfig:"DB_PORT" default:"5432"`
		User       string `envconfig:"DB_USER" default:"fixpoint_user"`
		Password   string `envconfig:"DB_PASSWORD" default:"fixpoint_password"`
		Name       string `envconfig:"DB_NAME" default:"fixpoint_db"`
		SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"`
		SchemaPath string `envconfig:"DB_SCHEMA_PATH" default:""`
	}

	JWT struct {
		Secret string `envconfig:"JWT_SECRET" default:"dev-only-secret-do-not-use"`
	}

	Notifier struct {
		GatewayURL   string        `envconfig:"NOTIFY_GATEWAY_URL" default:""`
		PollInterval time.Duration `envconfig:"NOTIFY_POLL_INTERVAL" default:"5s"`
		BatchSize    int           `envconfig:"NOTIFY_BATCH_SIZE" default:"20"`
	}

	CORS struct {
		AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	}
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
