package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr   string `env:"ADMIN_ADDR" envDefault:":9091"`
	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	TokenSecret          string        `env:"TOKEN_SECRET,required"`
	FederatedUserinfoURL string        `env:"FEDERATED_USERINFO_URL"`
	FederatedTimeout     time.Duration `env:"FEDERATED_TIMEOUT" envDefault:"3s"`

	// APIKeys seeds the tenant registry from the environment, on top of the
	// database rows. Format: "key1:tenant1,key2:tenant2".
	APIKeys string `env:"API_KEYS"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"50"`
	RateLimitWrites   int           `env:"RATE_LIMIT_WRITES" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	DeletionDelay time.Duration `env:"DELETION_DELAY" envDefault:"168h"` // 7 days
	ExportBaseURL string        `env:"EXPORT_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults,
// e.g. detailed error bodies.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ParseAPIKeys expands the API_KEYS string into an api-key to tenant-id map.
func (c *Config) ParseAPIKeys() (map[string]string, error) {
	keys := make(map[string]string)
	if c.APIKeys == "" {
		return keys, nil
	}
	for _, pair := range strings.Split(c.APIKeys, ",") {
		key, tenantID, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || key == "" || tenantID == "" {
			return nil, fmt.Errorf("malformed API_KEYS entry %q", pair)
		}
		keys[key] = tenantID
	}
	return keys, nil
}
