package main

import (
	"errors"
	"fmt"

	"github.com/leadgate-io/leadgate/internal/config"
)

var (
	errDatabaseURLEmpty    = errors.New("DATABASE_URL cannot be empty")
	errMigrationTableEmpty = errors.New("MIGRATION_TABLE cannot be empty")
)

// Config holds all configuration for the migration tool.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string

	// MigrationTable is the name of the table to track migrations
	MigrationTable string
}

// LoadConfig loads configuration from environment variables with sensible defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errDatabaseURLEmpty
	}

	if c.MigrationTable == "" {
		return errMigrationTableEmpty
	}

	return nil
}

// String returns a string representation of the configuration (safe for logging).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}",
		maskDatabaseURL(c.DatabaseURL), c.MigrationTable)
}

// maskDatabaseURL masks the password in database URLs for logging.
func maskDatabaseURL(url string) string {
	if url == "" {
		return ""
	}

	// Find the "//" that starts the authority section
	authStart := -1

	for i := 0; i < len(url)-1; i++ {
		if url[i] == '/' && url[i+1] == '/' {
			authStart = i + 2

			break
		}
	}

	if authStart == -1 {
		return url
	}

	// Find the LAST "@" in the authority section in case the password contains "@"
	atPos := -1

	for i := authStart; i < len(url); i++ {
		if url[i] == '@' {
			atPos = i
		}

		if url[i] == '/' || url[i] == '?' || url[i] == '#' {
			break
		}
	}

	if atPos == -1 {
		return url
	}

	// Find the ":" in the user info section
	colonPos := -1

	for i := authStart; i < atPos; i++ {
		if url[i] == ':' {
			colonPos = i

			break
		}
	}

	if colonPos == -1 {
		return url
	}

	if atPos-(colonPos+1) == 0 {
		// Empty password, nothing to mask
		return url
	}

	return url[:colonPos+1] + "***" + url[atPos:]
}
