package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"melodex/core/catalog"
	"melodex/logger"

	"github.com/go-redis/redis/v8"
)

const searchCacheTTL = 10 * time.Minute

// SearchCache caches external-catalog search results in Redis so
// repeated queries skip the provider round trip.
type SearchCache struct {
	client *redis.Client
}

// NewSearchCache creates a SearchCache on the given Redis client.
func NewSearchCache(client *redis.Client) *SearchCache {
	return &SearchCache{client: client}
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf("catalog:search:%d:%s", limit, query)
}

// Get returns the cached results for the query, or (nil, false) on a
// miss. Cache failures are treated as misses, never as errors.
func (c *SearchCache) Get(ctx context.Context, query string, limit int) ([]catalog.TrackSummary, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, searchKey(query, limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Search cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	var results []catalog.TrackSummary
	if err := json.Unmarshal(data, &results); err != nil {
		logger.Warn("Search cache entry corrupt, dropping", logger.ErrorField(err))
		c.client.Del(ctx, searchKey(query, limit))
		return nil, false
	}
	return results, true
}

// Put stores search results with a TTL.
func (c *SearchCache) Put(ctx context.Context, query string, limit int, results []catalog.TrackSummary) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		logger.Warn("Failed to marshal search results for cache", logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, searchKey(query, limit), data, searchCacheTTL).Err(); err != nil {
		logger.Warn("Search cache write failed", logger.ErrorField(err))
	}
}
