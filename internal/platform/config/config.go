package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/experian"
)

// Config is the full deployment configuration for the API process.
//
// These values are deployment-provided; local workflows typically load them
// from a .env file via godotenv in main.
type Config struct {
	Port           string
	StorageBackend string

	// DatabaseURL is required when StorageBackend is "postgres".
	DatabaseURL string

	// AuthMode selects "token" (static bearer token) or "dev"
	// (X-Debug-Subject shim; local only).
	AuthMode    string
	APIToken    string
	DevSubject  string

	SourceTimeout time.Duration

	Records experian.Config
	Phone   experian.Config
	Email   experian.Config
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Port:           getenvDefault("PORT", "8080"),
		StorageBackend: getenvDefault("STORAGE_BACKEND", "memory"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AuthMode:       getenvDefault("AUTH_MODE", "token"),
		APIToken:       os.Getenv("API_TOKEN"),
		DevSubject:     os.Getenv("DEV_SUBJECT"),
		SourceTimeout:  30 * time.Second,
	}

	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.StorageBackend)
	}

	switch cfg.AuthMode {
	case "token":
		if cfg.APIToken == "" {
			return Config{}, fmt.Errorf("API_TOKEN is required when AUTH_MODE=token")
		}
	case "dev":
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be token or dev, got %q", cfg.AuthMode)
	}

	if v := os.Getenv("SOURCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SOURCE_TIMEOUT must be a duration (e.g. 30s): %w", err)
		}
		cfg.SourceTimeout = d
	}

	// Provider credentials are optional: an unconfigured source reports
	// NotConfigured at call time instead of blocking startup.
	cfg.Records = experian.Config{
		URL:       os.Getenv("EXPERIAN_API_URL"),
		AuthToken: os.Getenv("EXPERIAN_AUTH_TOKEN"),
	}
	cfg.Phone = experian.Config{
		URL:       os.Getenv("APERTURE_PHONE_URL"),
		AuthToken: os.Getenv("APERTURE_AUTH_TOKEN"),
	}
	cfg.Email = experian.Config{
		URL:       os.Getenv("APERTURE_EMAIL_URL"),
		AuthToken: os.Getenv("APERTURE_AUTH_TOKEN"),
	}

	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("PROVIDER_TIMEOUT must be a duration (e.g. 20s): %w", err)
		}
		cfg.Records.Timeout = d
		cfg.Phone.Timeout = d
		cfg.Email.Timeout = d
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
