package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port              int    `env:"PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	RedisURL          string `env:"REDIS_URL,required"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	AdminAPIToken     string `env:"ADMIN_API_TOKEN"`
	URLSigningSecret  string `env:"URL_SIGNING_SECRET,required"`
	AssetBaseURL      string `env:"ASSET_BASE_URL" envDefault:""`
	MediaRoot         string `env:"MEDIA_ROOT" envDefault:"./media"`
	TenantID          string `env:"TENANT_ID" envDefault:"default"`

	// Cadence and thresholds are configuration, not constants: deployments
	// disagree on how stale a heartbeat may be before a device counts as
	// offline, and on how often players should re-poll.
	PollSeconds        int `env:"POLL_SECONDS" envDefault:"60"`
	StandbyPollSeconds int `env:"STANDBY_POLL_SECONDS" envDefault:"120"`
	OnlineWindowSeconds int `env:"ONLINE_WINDOW_SECONDS" envDefault:"180"`
	PairingTTLSeconds   int `env:"PAIRING_TTL_SECONDS" envDefault:"600"`
	SignedURLTTLSeconds int `env:"SIGNED_URL_TTL_SECONDS" envDefault:"3600"`
	HeartbeatRetentionHours int `env:"HEARTBEAT_RETENTION_HOURS" envDefault:"168"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) StandbyPollInterval() time.Duration {
	return time.Duration(c.StandbyPollSeconds) * time.Second
}

func (c *Config) OnlineWindow() time.Duration {
	return time.Duration(c.OnlineWindowSeconds) * time.Second
}

func (c *Config) PairingTTL() time.Duration {
	return time.Duration(c.PairingTTLSeconds) * time.Second
}

func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.SignedURLTTLSeconds) * time.Second
}

func (c *Config) HeartbeatRetention() time.Duration {
	return time.Duration(c.HeartbeatRetentionHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminPasswordHash != "" {
		if !hasBcryptPrefix(c.AdminPasswordHash) {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("URL_SIGNING_SECRET", c.URLSigningSecret); err != nil {
			return err
		}
		if c.AdminAPIToken != "" {
			if err := validateSecret("ADMIN_API_TOKEN", c.AdminAPIToken); err != nil {
				return err
			}
		}
	}

	if c.PollSeconds <= 0 || c.StandbyPollSeconds <= 0 {
		return fmt.Errorf("POLL_SECONDS and STANDBY_POLL_SECONDS must be positive")
	}
	if c.PairingTTLSeconds <= 0 {
		return fmt.Errorf("PAIRING_TTL_SECONDS must be positive")
	}

	return nil
}

func hasBcryptPrefix(hash string) bool {
	return len(hash) > 4 && hash[0] == '$' &&
		(hash[1:4] == "2a$" || hash[1:4] == "2b$" || hash[1:4] == "2y$")
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
