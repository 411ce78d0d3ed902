package redis

import (
	"context"
	"time"
)

// recordKeyPrefix namespaces assembled record views by registration number.
const recordKeyPrefix = "record:"

// TTLRecordView bounds staleness if an invalidation is ever lost.
const TTLRecordView = 10 * time.Minute

// RecordViewCache caches assembled student record views keyed by registration
// number. It serves both sides of the record flow: the query handler reads and
// populates it, and the command handlers invalidate it after every mutation.
type RecordViewCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRecordViewCache creates a record view cache over the given Cache.
func NewRecordViewCache(cache *Cache) *RecordViewCache {
	return &RecordViewCache{
		cache: cache,
		ttl:   TTLRecordView,
	}
}

func recordKey(regno string) string {
	return recordKeyPrefix + regno
}

// Get retrieves a cached record view. Returns ErrCacheMiss when absent.
func (c *RecordViewCache) Get(ctx context.Context, regno string, dest any) error {
	return c.cache.Get(ctx, recordKey(regno), dest)
}

// Set caches a record view under the student's registration number.
func (c *RecordViewCache) Set(ctx context.Context, regno string, v any) error {
	return c.cache.Set(ctx, recordKey(regno), v, c.ttl)
}

// Invalidate drops the cached view after a mutation touched the student.
func (c *RecordViewCache) Invalidate(ctx context.Context, regno string) error {
	return c.cache.Delete(ctx, recordKey(regno))
}
