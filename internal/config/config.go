// Package config loads console and mock gateway settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Console configures adminctl and anything embedding the app container.
type Console struct {
	GatewayURL    string        `env:"ADMIN_GATEWAY_URL" envDefault:"http://localhost:8080/"`
	PageSize      int           `env:"ADMIN_PAGE_SIZE" envDefault:"20"`
	HTTPTimeout   time.Duration `env:"ADMIN_HTTP_TIMEOUT" envDefault:"15s"`
	RatePerSecond float64       `env:"ADMIN_RATE_PER_SEC" envDefault:"0"`
	RateBurst     int           `env:"ADMIN_RATE_BURST" envDefault:"1"`
	SessionDriver string        `env:"ADMIN_SESSION_DRIVER" envDefault:"sqlite"`
	SessionDSN    string        `env:"ADMIN_SESSION_DSN" envDefault:"file:adminctl.db"`
	LogLevel      string        `env:"ADMIN_LOG_LEVEL" envDefault:"info"`
	MetricsAddr   string        `env:"ADMIN_METRICS_ADDR"`
}

// MockGateway configures the in-memory backend.
type MockGateway struct {
	Addr       string        `env:"MOCKGW_ADDR" envDefault:":8080"`
	Secret     string        `env:"MOCKGW_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL   time.Duration `env:"MOCKGW_TOKEN_TTL" envDefault:"12h"`
	AdminPass  string        `env:"MOCKGW_ADMIN_PASSWORD" envDefault:"admin"`
	ViewPass   string        `env:"MOCKGW_VIEWER_PASSWORD" envDefault:"viewer"`
	Demo       bool          `env:"MOCKGW_DEMO" envDefault:"true"`
	RatePerSec int           `env:"MOCKGW_RATE_PER_SEC" envDefault:"50"`
	RateBurst  int           `env:"MOCKGW_RATE_BURST" envDefault:"100"`
	LogLevel   string        `env:"MOCKGW_LOG_LEVEL" envDefault:"info"`
}

// LoadDotEnv reads a .env file into the process environment when it exists.
// Variables already set win over the file.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConsole parses and validates the console configuration.
func LoadConsole() (Console, error) {
	var cfg Console
	if err := ParseEnv(&cfg); err != nil {
		return Console{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Console{}, err
	}
	return cfg, nil
}

// Validate normalizes the gateway URL to end with a slash and checks bounds.
func (c *Console) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.GatewayURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: ADMIN_GATEWAY_URL must be an absolute URL, got %q", c.GatewayURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c.GatewayURL = u.String()
	if c.PageSize <= 0 {
		return fmt.Errorf("config: ADMIN_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("config: ADMIN_RATE_PER_SEC must not be negative")
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	switch c.SessionDriver {
	case "sqlite", "pgx", "memory":
	default:
		return fmt.Errorf("config: unsupported ADMIN_SESSION_DRIVER %q", c.SessionDriver)
	}
	return nil
}

// LoadMockGateway parses the mock gateway configuration.
func LoadMockGateway() (MockGateway, error) {
	var cfg MockGateway
	if err := ParseEnv(&cfg); err != nil {
		return MockGateway{}, err
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return MockGateway{}, errors.New("config: MOCKGW_SECRET is required")
	}
	return cfg, nil
}
