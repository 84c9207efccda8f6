package schema

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMapping = `{
  "twitter": {
    "tweet": {
      "_source": {},
      "properties": {
        "user": {
          "properties": {
            "name": {"type": "string"},
            "id": {"type": "long"}
          }
        },
        "message": {"type": "string"},
        "name": {"type": "string"}
      }
    }
  },
  "logs": {
    "entry": {
      "_source": {"enabled": false},
      "properties": {
        "host": {"type": "keyword"}
      }
    },
    "broken": "not an object"
  }
}`

func TestKeywordsWithoutMappingReturnsBase(t *testing.T) {
	keywords := Keywords(nil)

	assert.True(t, sort.StringsAreSorted(keywords))
	assert.ElementsMatch(t, baseKeywords, keywords)
	assert.NotContains(t, keywords, "_score")
}

func TestKeywordsFromMapping(t *testing.T) {
	m, err := ParseMapping([]byte(sampleMapping))
	require.NoError(t, err)

	keywords := Keywords(m)

	assert.True(t, sort.StringsAreSorted(keywords))
	for _, word := range []string{"twitter", "tweet", "logs", "entry", "user", "id", "message", "host", "_score", "_all", "_source"} {
		assert.Contains(t, keywords, word)
	}
	assert.NotContains(t, keywords, "broken")

	count := 0
	for _, word := range keywords {
		if word == "name" {
			count++
		}
	}
	assert.Equal(t, 1, count, "nested and top-level names collapse to one entry")

	for _, word := range baseKeywords {
		assert.Contains(t, keywords, word)
	}
}

func TestKeywordsSourceDisabledEverywhere(t *testing.T) {
	m, err := ParseMapping([]byte(`{"idx":{"doc":{"_source":{"enabled":false},"properties":{"f":{}}}}}`))
	require.NoError(t, err)

	assert.NotContains(t, Keywords(m), "_source")
}

func TestKeywordsIdempotent(t *testing.T) {
	m, err := ParseMapping([]byte(sampleMapping))
	require.NoError(t, err)

	assert.Equal(t, Keywords(m), Keywords(m))
}

func TestParseMappingRejectsNonObject(t *testing.T) {
	_, err := ParseMapping([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseMappingTypeless(t *testing.T) {
	m, err := ParseMapping([]byte(`{"logs":{"mappings":{"properties":{"host":{"type":"keyword"},"user":{"properties":{"name":{"type":"text"}}}}}}}`))
	require.NoError(t, err)

	require.Contains(t, m["logs"], Typeless)
	assert.Len(t, m["logs"], 1)

	keywords := Keywords(m)
	for _, word := range []string{"logs", "host", "user", "name"} {
		assert.Contains(t, keywords, word)
	}
	assert.NotContains(t, keywords, "mappings")
	assert.NotContains(t, keywords, "")
}

func TestParseMappingWrappedTypes(t *testing.T) {
	m, err := ParseMapping([]byte(`{"logs":{"mappings":{"entry":{"_source":{},"properties":{"host":{"type":"string"}}}}}}`))
	require.NoError(t, err)

	require.Contains(t, m["logs"], "entry")
	keywords := Keywords(m)
	for _, word := range []string{"logs", "entry", "host", "_source"} {
		assert.Contains(t, keywords, word)
	}
	assert.NotContains(t, keywords, "mappings")
}

func TestParseMappingEmptyTypeless(t *testing.T) {
	m, err := ParseMapping([]byte(`{"empty":{"mappings":{}}}`))
	require.NoError(t, err)

	keywords := Keywords(m)
	assert.Contains(t, keywords, "empty")
	assert.NotContains(t, keywords, "mappings")
}

func TestCacheFetchesOnceOnSuccess(t *testing.T) {
	var calls int32
	cache := NewCache(func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte(sampleMapping), nil
	}, nil)

	first := cache.Keywords(context.Background())
	second := cache.Keywords(context.Background())

	assert.Equal(t, first, second)
	assert.Contains(t, first, "tweet")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, cache.Populated())
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	var calls int32
	cache := NewCache(func(ctx context.Context) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("connection refused")
		}
		return []byte(sampleMapping), nil
	}, nil)

	assert.Equal(t, BaseKeywords(), cache.Keywords(context.Background()))
	assert.False(t, cache.Populated())

	assert.Contains(t, cache.Keywords(context.Background()), "twitter")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheWithoutFetcherIsDegraded(t *testing.T) {
	cache := NewCache(nil, nil)

	assert.Equal(t, BaseKeywords(), cache.Keywords(context.Background()))
	_, err := cache.Mapping(context.Background())
	assert.Error(t, err)
}

func TestCacheInvalidateRefetches(t *testing.T) {
	var calls int32
	cache := NewCache(func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte(sampleMapping), nil
	}, nil)

	cache.Keywords(context.Background())
	cache.Invalidate()
	assert.False(t, cache.Populated())
	cache.Keywords(context.Background())

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheSingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := NewCache(func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte(sampleMapping), nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywords := cache.Keywords(context.Background())
			assert.Contains(t, keywords, "twitter")
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
