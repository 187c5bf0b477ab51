package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/docugrid/searchcore/internal/searcher/executor"
	pkgredis "github.com/docugrid/searchcore/pkg/redis"
)

// Redis is a result cache backed by a Redis instance, for deployments that
// share a cache across several searchd processes. Redis handles the TTL;
// size-capped eviction is left to the server's own maxmemory policy.
type Redis struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis creates a Redis-backed result cache.
func NewRedis(client *pkgredis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "result-cache-redis"),
	}
}

// Get fetches and decodes a cached result set.
func (r *Redis) Get(ctx context.Context, key Key) (*executor.ResultSet, bool) {
	data, err := r.client.Get(ctx, string(key))
	if err != nil {
		if !pkgredis.IsNilError(err) {
			r.logger.Error("cache get failed", "key", key, "error", err)
		}
		r.misses.Add(1)
		return nil, false
	}
	var rs executor.ResultSet
	if err := json.Unmarshal([]byte(data), &rs); err != nil {
		r.logger.Error("cache unmarshal failed", "key", key, "error", err)
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return &rs, true
}

// Put stores a result set with the cache TTL. Failures are logged, never
// surfaced: a broken cache degrades latency, not correctness.
func (r *Redis) Put(ctx context.Context, key Key, rs *executor.ResultSet) {
	data, err := json.Marshal(rs)
	if err != nil {
		r.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, string(key), data, r.ttl); err != nil {
		r.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Clear deletes all search cache keys.
func (r *Redis) Clear(ctx context.Context) error {
	deleted, err := r.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return err
	}
	r.logger.Info("cache cleared", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts for this process.
func (r *Redis) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
