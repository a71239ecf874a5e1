package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the auth subsystem settings, loaded from the environment.
type Config struct {
	// BaseURL is the backend API base, e.g. "https://api.recipevault.app".
	BaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:8080"`
	// RedirectURI is the callback the external authorization step returns to.
	RedirectURI string `env:"AUTH_REDIRECT_URI" envDefault:"http://127.0.0.1:8484/auth/callback"`
	// CallbackAddr is the loopback listener address for the callback.
	CallbackAddr string `env:"AUTH_CALLBACK_ADDR" envDefault:"127.0.0.1:8484"`
	// StorePath is the SQLite file backing the durable session store.
	StorePath string `env:"AUTH_STORE_PATH" envDefault:"./data/session.db"`
	// HTTPTimeout bounds each backend auth request.
	HTTPTimeout time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"15s"`
	// Env is the runtime environment name (DEV enables console logging).
	Env string `env:"ENV" envDefault:"DEV"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the runtime environment is development.
func (c Config) IsDev() bool {
	return c.Env == "DEV"
}
