package opensearch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ca-srg/elseql/internal/types"
)

func NewConfigFromTypes(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Config{
		Endpoint:          cfg.Endpoint,
		Region:            cfg.Region,
		Username:          cfg.Username,
		Password:          cfg.Password,
		InsecureSkipTLS:   cfg.InsecureSkipTLS,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
		ConnectionTimeout: cfg.ConnectionTimeout,
		RequestTimeout:    cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxConnections:    cfg.MaxConnections,
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   cfg.IdleConnTimeout,
	}, nil
}

// Validate checks the endpoint and clamps the tuning knobs to safe ranges.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	parsed, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https: %s", c.Endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint must include a host: %s", c.Endpoint)
	}

	if c.RateLimit <= 0 {
		c.RateLimit = 10.0
	}
	if c.RateLimit > 1000 {
		c.RateLimit = 1000.0
	}

	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.RateBurst > 10000 {
		c.RateBurst = 10000
	}

	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 30 * time.Second
	}
	if c.ConnectionTimeout > 300*time.Second {
		c.ConnectionTimeout = 300 * time.Second
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.RequestTimeout > 600*time.Second {
		c.RequestTimeout = 600 * time.Second
	}

	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 1 * time.Second
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 100
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}

	return nil
}
