// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment of the server and the historian.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Postgres  Postgres
	Redis     Redis
	Historian Historian
	Auth      Auth
	Match     Match

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"localhost:*"`
}

type Postgres struct {
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE" envDefault:"uno"`
}

// DSN is the postgres:// connection string for pgx.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	return u.String()
}

type Redis struct {
	Addr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB   int    `env:"REDIS_DB" envDefault:"0"`
}

type Historian struct {
	QueueName  string        `env:"HISTORIAN_QUEUE_NAME" envDefault:"uno_actions"`
	BatchSize  int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushMs    int           `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	Inactivity time.Duration `env:"MATCH_INACTIVITY_TIMEOUT" envDefault:"10m"`
}

// FlushInterval is FlushMs as a duration.
func (h Historian) FlushInterval() time.Duration {
	return time.Duration(h.FlushMs) * time.Millisecond
}

type Auth struct {
	// TokenExpireTime is a Go duration, or "never"/"0" for tokens without exp.
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
}

// TokenTTL parses TokenExpireTime. Zero means tokens never expire.
func (a Auth) TokenTTL() (time.Duration, error) {
	switch a.TokenExpireTime {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(a.TokenExpireTime)
	if err != nil {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

type Match struct {
	IdleTimeout           time.Duration `env:"MATCH_IDLE_TIMEOUT" envDefault:"30m"`
	ReaperInterval        time.Duration `env:"MATCH_REAPER_INTERVAL" envDefault:"1m"`
	DefaultTargetScore    int           `env:"DEFAULT_TARGET_SCORE" envDefault:"500"`
	DefaultTurnTimeoutSec int           `env:"DEFAULT_TURN_TIMEOUT_SEC" envDefault:"30"`
}

// Load parses the process environment into a Config. Commands import
// github.com/joho/godotenv/autoload so a local .env is already applied.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Auth.TokenTTL(); err != nil {
		return Config{}, err
	}
	if cfg.Historian.BatchSize <= 0 {
		return Config{}, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive, got %d", cfg.Historian.BatchSize)
	}
	return cfg, nil
}
