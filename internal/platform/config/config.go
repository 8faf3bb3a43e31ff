package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"vouch/internal/mailer"
)

// Eligibility policy names selected by deployment configuration.
const (
	PolicyDomain = "domain"
	PolicyRoster = "roster"
)

// Config captures process configuration from environment variables so main
// stays lean. Empty infrastructure URLs select in-memory fallbacks.
type Config struct {
	HTTPAddr    string `env:"VOUCH_HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"VOUCH_DATABASE_URL"`
	RedisURL    string `env:"VOUCH_REDIS_URL"`

	// AdminJWTKey signs/validates admin API tokens. Admin routes refuse all
	// requests when it is unset.
	AdminJWTKey string `env:"VOUCH_ADMIN_JWT_KEY"`

	EligibilityPolicy string `env:"VOUCH_ELIGIBILITY_POLICY" envDefault:"domain"`
	RosterPath        string `env:"VOUCH_ROSTER_PATH"`
	RosterRedisKey    string `env:"VOUCH_ROSTER_REDIS_KEY" envDefault:"vouch:authorized-emails"`

	KafkaBrokers []string `env:"VOUCH_KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"VOUCH_AUDIT_TOPIC" envDefault:"vouch.audit"`

	DispatchLimit int `env:"VOUCH_DISPATCH_LIMIT" envDefault:"16"`

	Mail mailer.Config
}

// FromEnv loads configuration and validates cross-field constraints.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.EligibilityPolicy {
	case PolicyDomain, PolicyRoster:
	default:
		return Config{}, fmt.Errorf("unknown eligibility policy %q", cfg.EligibilityPolicy)
	}
	if cfg.EligibilityPolicy == PolicyRoster && cfg.RosterPath == "" {
		return Config{}, fmt.Errorf("roster policy requires VOUCH_ROSTER_PATH")
	}
	return cfg, nil
}
