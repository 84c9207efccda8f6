package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	"github.com/ca-srg/elseql/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	config.Endpoint = strings.TrimRight(strings.TrimSpace(config.Endpoint), "/")
	if err := validateEndpoint(config.Endpoint); err != nil {
		return err
	}

	if config.RateLimit <= 0 {
		return fmt.Errorf("ELSEQL_RATE_LIMIT must be greater than 0")
	}
	if config.RateLimit > 1000 {
		return fmt.Errorf("ELSEQL_RATE_LIMIT cannot exceed 1000 requests/second")
	}
	if config.RateBurst <= 0 {
		return fmt.Errorf("ELSEQL_RATE_BURST must be greater than 0")
	}

	if config.ConnectionTimeout <= 0 {
		return fmt.Errorf("ELSEQL_CONNECTION_TIMEOUT must be greater than 0")
	}
	if config.RequestTimeout <= 0 {
		return fmt.Errorf("ELSEQL_REQUEST_TIMEOUT must be greater than 0")
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.MaxRetries > 10 {
		config.MaxRetries = 10
	}

	if config.Username != "" && config.Region != "" {
		return fmt.Errorf("ELSEQL_USERNAME and ELSEQL_REGION are mutually exclusive: use basic auth or SigV4, not both")
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("ELSEQL_ENDPOINT is required")
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid ELSEQL_ENDPOINT URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ELSEQL_ENDPOINT scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("ELSEQL_ENDPOINT must include a valid host")
	}
	return nil
}
