package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/faxcloud/analyzer/internal/analysis"
)

// StatsCache keeps computed analysis results in Redis so repeated stats
// requests for the same run skip recomputation and the database. Misses
// and Redis failures both degrade to a recompute, never to an error for
// the caller.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func runKey(runID string) string {
	return fmt.Sprintf("faxreport:stats:%s", runID)
}

// GetResult returns the cached result for a run, or (nil, false) on a
// miss.
func (c *StatsCache) GetResult(ctx context.Context, runID string) (*analysis.Result, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, runKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[cache] get %s: %v", runID, err)
		return nil, false
	}
	var result analysis.Result
	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("[cache] decode %s: %v", runID, err)
		return nil, false
	}
	return &result, true
}

// SetResult stores a result under its run ID with the configured TTL.
func (c *StatsCache) SetResult(ctx context.Context, runID string, result *analysis.Result) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("[cache] encode %s: %v", runID, err)
		return
	}
	if err := c.client.Set(ctx, runKey(runID), data, c.ttl).Err(); err != nil {
		log.Printf("[cache] set %s: %v", runID, err)
	}
}

// Invalidate drops the cached result for one run.
func (c *StatsCache) Invalidate(ctx context.Context, runID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, runKey(runID)).Err(); err != nil {
		log.Printf("[cache] invalidate %s: %v", runID, err)
	}
}
