// Package config loads process configuration for the cmd/signalserver
// entrypoint. The signaling core (internal/hub) consumes none of this
// directly — only the HTTP layer, the Postgres-backed store, and the ICE
// helper server read it, per the core's "no process environment" design.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the entrypoint needs to wire the process
// together. Priority: CLI flags (applied by the caller via Overrides) >
// environment variables > .env file > struct defaults.
type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	CORSOrigins    string  `env:"CORS_ORIGINS"` // comma-separated; empty = allow all
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// RelayMalformedAsText controls the preserved-quirk behavior on
	// malformed inbound frames (see hub.Config.RelayMalformedAsText).
	RelayMalformedAsText bool `env:"RELAY_MALFORMED_AS_TEXT" envDefault:"true"`

	// ICE/TURN server settings for the sibling NAT-traversal helper.
	TURNEnabled    bool   `env:"TURN_ENABLED" envDefault:"false"`
	TURNRealm      string `env:"TURN_REALM" envDefault:"signalhub"`
	TURNPublicIP   string `env:"TURN_PUBLIC_IP"`
	TURNListenAddr string `env:"TURN_LISTEN_ADDR" envDefault:"0.0.0.0:3478"`
	TURNUsername   string `env:"TURN_USERNAME"`
	TURNPassword   string `env:"TURN_PASSWORD"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
}

// Load reads configuration from an optional .env file, then environment
// variables, then applies CLI overrides.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}

	return cfg, nil
}
