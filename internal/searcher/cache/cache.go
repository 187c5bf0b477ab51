// Package cache provides the TTL-bounded search result cache. Entries are
// keyed by the normalized query and options and expire by TTL or size-capped
// eviction; the cache is never invalidated by index mutation, so a bounded
// staleness window is accepted behaviour. Cache state is incidental:
// clearing it changes latency, never correctness.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docugrid/searchcore/internal/searcher/executor"
)

const keyPrefix = "search:"

// Key identifies one (query, options) combination.
type Key string

// ResultCache stores result sets for reuse within the TTL window.
type ResultCache interface {
	Get(ctx context.Context, key Key) (*executor.ResultSet, bool)
	Put(ctx context.Context, key Key, rs *executor.ResultSet)
	Clear(ctx context.Context) error
	Stats() (hits, misses int64)
}

// BuildKey hashes the normalized query string together with the options.
// Options marshal with a fixed field order, so equal option bags always
// produce equal keys.
func BuildKey(rawQuery string, opts executor.Options) Key {
	normalized := strings.Join(strings.Fields(strings.ToLower(rawQuery)), " ")
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		optsJSON = []byte("{}")
	}
	hash := sha256.Sum256([]byte(normalized + "|" + string(optsJSON)))
	return Key(fmt.Sprintf("%s%x", keyPrefix, hash[:16]))
}
