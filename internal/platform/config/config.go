package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// ErrInvalidConfiguration is wrapped by every validation failure so callers
// can fail fast without matching on message text.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL   string `env:"DATABASE_URL"`
	LocalDatabase bool   `env:"LOCAL_DATABASE" default:"false"`
	RedisURL      string `env:"REDIS_URL"`

	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchAppSecret    string `env:"TWITCH_APP_SECRET"`
	WebhookCallbackURL string `env:"WEBHOOK_CALLBACK_URL"`

	// EncryptionKey is the password the secret codec derives its AES key from.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	MaxMessageAge           time.Duration `env:"EVENTSUB_MAX_MESSAGE_AGE" default:"10m"`
	PendingChallengeTimeout time.Duration `env:"PENDING_CHALLENGE_TIMEOUT" default:"10m"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("%w: failed to load environment variables: %v", ErrInvalidConfiguration, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"TWITCH_CLIENT_ID", cfg.TwitchClientID},
		{"TWITCH_APP_SECRET", cfg.TwitchAppSecret},
		{"DATABASE_URL", cfg.DatabaseURL},
		{"ENCRYPTION_KEY", cfg.EncryptionKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalidf("%s is required", r.name)
		}
	}

	if cfg.WebhookCallbackURL != "" {
		u, err := url.Parse(cfg.WebhookCallbackURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return invalidf("WEBHOOK_CALLBACK_URL must be an absolute https URL")
		}
	}

	if cfg.MaxMessageAge <= 0 {
		return invalidf("EVENTSUB_MAX_MESSAGE_AGE must be positive")
	}
	if cfg.PendingChallengeTimeout <= 0 {
		return invalidf("PENDING_CHALLENGE_TIMEOUT must be positive")
	}

	// Remote databases must be reached over TLS; the local target is exempt.
	if !cfg.LocalDatabase {
		mode := sslMode(cfg.DatabaseURL)
		if mode == "disable" || mode == "allow" {
			return invalidf("DATABASE_URL uses sslmode=%s which is only allowed with LOCAL_DATABASE=true", mode)
		}
	}

	return nil
}

// RegistrationEnabled reports whether outbound subscription registration
// has everything it needs.
func (c *Config) RegistrationEnabled() bool {
	return c.WebhookCallbackURL != ""
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
