package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Addr          string        `env:"API_ADDR" envDefault:":8787"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	MigrationsDir string        `env:"MIGRATIONS_DIR" envDefault:"./db/migrations"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"proposaldesk-dev-secret"`
	AccessTTL     time.Duration `env:"ACCESS_TTL" envDefault:"8h"`
	CORSOrigin    string        `env:"CORS_ORIGIN" envDefault:"*"`
	// Redis caches acting-user claims per token; empty disables the cache.
	RedisURL string `env:"REDIS_URL"`
	// Meilisearch; empty falls back to scanning the document store.
	MeiliURL       string `env:"MEILI_URL"`
	MeiliMasterKey string `env:"MEILI_MASTER_KEY"`
	// MinIO archive for exports; empty endpoint disables archiving.
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"proposal-exports"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// SMTP for review decision notifications; empty host disables email.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	AppURL       string `env:"APP_URL"`

	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string `env:"LOG_FORMAT" envDefault:"json"`
	BootstrapPassword string `env:"BOOTSTRAP_PASSWORD" envDefault:"changeme"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
