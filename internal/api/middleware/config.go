// Package middleware provides HTTP middleware components for the Leadgate API.
package middleware

import (
	"time"

	"github.com/leadgate-io/leadgate/internal/config"
)

type (
	// Config holds rate limiter configuration.
	//
	// Rate limits specify requests per second (RPS) for two tiers:
	//   - Global: Applied to all requests
	//   - Per-client: Applied per remote IP
	//
	// Burst capacity allows temporary bursts above sustained rate.
	// If burst fields are 0, they are computed automatically as 2 x rate.
	Config struct {
		// Rate limits (requests per second)
		GlobalRPS int // Default: 100
		ClientRPS int // Default: 20

		// Optional burst capacity overrides (0 = computed as 2 x rate)
		GlobalBurst int
		ClientBurst int

		// Memory cleanup configuration
		CleanupInterval time.Duration // Default: 5 minutes
		IdleTimeout     time.Duration // Default: 1 hour
		MaxClients      int           // Default: 10,000
	}

	// AuthConfig holds bearer token authentication configuration.
	//
	// Token is the plaintext service token; TokenHash is a bcrypt hash of
	// it. Configure exactly one; the hash takes precedence when both are
	// set.
	AuthConfig struct {
		Token     string
		TokenHash string
	}
)

// LoadConfig loads rate limiter config from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("LEADGATE_GLOBAL_RPS", defaultGlobalRPS),
		ClientRPS: config.GetEnvInt("LEADGATE_CLIENT_RPS", defaultClientRPS),

		// Burst overrides (0 = auto-compute)
		GlobalBurst: config.GetEnvInt("LEADGATE_GLOBAL_BURST", 0),
		ClientBurst: config.GetEnvInt("LEADGATE_CLIENT_BURST", 0),

		CleanupInterval: config.GetEnvDuration(
			"LEADGATE_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("LEADGATE_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxClients:  config.GetEnvInt("LEADGATE_RATE_LIMIT_MAX_CLIENTS", defaultMaxClients),
	}
}

// LoadAuthConfig loads bearer token configuration from environment variables.
func LoadAuthConfig() *AuthConfig {
	return &AuthConfig{
		Token:     config.GetEnvStr("LEADGATE_API_TOKEN", ""),
		TokenHash: config.GetEnvStr("LEADGATE_API_TOKEN_HASH", ""),
	}
}
