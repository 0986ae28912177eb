package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://127.0.0.1:3000"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	AuthSecret     string        `envconfig:"AUTH_SECRET"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`
	ClaimSecret    string        `envconfig:"LEGACY_CLAIM_SECRET"`

	PersistIdleDelay time.Duration `envconfig:"PERSIST_IDLE_DELAY" default:"800ms"`
	ReportTimezone   string        `envconfig:"REPORT_TIMEZONE" default:"Europe/Paris"`
	ReportCacheTTL   time.Duration `envconfig:"REPORT_CACHE_TTL" default:"30s"`
	SuggestCacheTTL  time.Duration `envconfig:"SUGGEST_CACHE_TTL" default:"20s"`

	LicenseAPIURL        string `envconfig:"LICENSE_API_URL"`
	LicenseAPIKey        string `envconfig:"LICENSE_API_KEY"`
	LicenseOAuthClientID string `envconfig:"LICENSE_OAUTH_CLIENT_ID"`
	LicenseOAuthSecret   string `envconfig:"LICENSE_OAUTH_CLIENT_SECRET"`
	LicenseOAuthTokenURL string `envconfig:"LICENSE_OAUTH_TOKEN_URL"`
	LicenseOAuthScopes   string `envconfig:"LICENSE_OAUTH_SCOPES"`

	SuggestAPIURL  string        `envconfig:"SUGGEST_API_URL"`
	SuggestAPIKey  string        `envconfig:"SUGGEST_API_KEY"`
	SuggestTimeout time.Duration `envconfig:"SUGGEST_TIMEOUT" default:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ClaimSecret = strings.TrimSpace(cfg.ClaimSecret)
	cfg.LicenseAPIKey = strings.TrimSpace(cfg.LicenseAPIKey)
	cfg.SuggestAPIKey = strings.TrimSpace(cfg.SuggestAPIKey)
	if cfg.PersistIdleDelay <= 0 {
		cfg.PersistIdleDelay = 800 * time.Millisecond
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c Config) OAuthScopes() []string {
	return splitList(c.LicenseOAuthScopes)
}

// Location resolves ReportTimezone, falling back to UTC when the name is
// unknown to the tz database.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
