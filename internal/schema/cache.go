package schema

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the raw _mapping document from the engine.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache holds the mapping and derived keywords for a session. The mapping is
// fetched lazily, at most one fetch runs at a time, and only a successful
// fetch populates the cache.
type Cache struct {
	fetch  FetchFunc
	logger *zap.Logger

	group singleflight.Group

	mu        sync.RWMutex
	populated bool
	mapping   Mapping
	keywords  []string
}

// NewCache creates a Cache. A nil fetch function leaves the cache in
// degraded mode, serving only the language keywords.
func NewCache(fetch FetchFunc, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetch:  fetch,
		logger: logger,
	}
}

// Populated reports whether a mapping has been fetched successfully.
func (c *Cache) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.populated
}

// Mapping returns the cached mapping, fetching it on first use.
func (c *Cache) Mapping(ctx context.Context) (Mapping, error) {
	c.mu.RLock()
	if c.populated {
		m := c.mapping
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	if c.fetch == nil {
		return nil, fmt.Errorf("no mapping source configured")
	}

	v, err, _ := c.group.Do("mapping", func() (interface{}, error) {
		c.mu.RLock()
		if c.populated {
			m := c.mapping
			c.mu.RUnlock()
			return m, nil
		}
		c.mu.RUnlock()

		raw, err := c.fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch mapping: %w", err)
		}

		m, err := ParseMapping(raw)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.mapping = m
		c.keywords = Keywords(m)
		c.populated = true
		c.mu.Unlock()

		c.logger.Debug("schema mapping cached", zap.Int("indices", len(m)))
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Mapping), nil
}

// Keywords returns the completion vocabulary. When the mapping cannot be
// fetched the language keywords are returned and the next call retries.
func (c *Cache) Keywords(ctx context.Context) []string {
	c.mu.RLock()
	if c.populated {
		keywords := c.keywords
		c.mu.RUnlock()
		return keywords
	}
	c.mu.RUnlock()

	if c.fetch == nil {
		return BaseKeywords()
	}

	if _, err := c.Mapping(ctx); err != nil {
		c.logger.Warn("using base keywords", zap.Error(err))
		return BaseKeywords()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keywords
}

// Invalidate drops the cached mapping so the next call fetches it again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.populated = false
	c.mapping = nil
	c.keywords = nil
}
