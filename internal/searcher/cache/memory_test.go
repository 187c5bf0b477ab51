package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugrid/searchcore/internal/searcher/executor"
)

func rsFor(query string) *executor.ResultSet {
	return &executor.ResultSet{Query: query, TotalCount: 1}
}

func TestBuildKey(t *testing.T) {
	t.Run("normalizes whitespace and case", func(t *testing.T) {
		a := BuildKey("Alpha   Beta", executor.Options{})
		b := BuildKey("alpha beta", executor.Options{})
		assert.Equal(t, a, b)
	})

	t.Run("options change the key", func(t *testing.T) {
		a := BuildKey("alpha", executor.Options{})
		b := BuildKey("alpha", executor.Options{Limit: 5})
		assert.NotEqual(t, a, b)
	})

	t.Run("keys carry the search prefix", func(t *testing.T) {
		key := BuildKey("alpha", executor.Options{})
		assert.Contains(t, string(key), "search:")
	})
}

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 4)

	key := BuildKey("alpha", executor.Options{})
	_, ok := m.Get(ctx, key)
	assert.False(t, ok)

	m.Put(ctx, key, rsFor("alpha"))
	got, ok := m.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Query)

	hits, misses := m.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20*time.Millisecond, 4)

	key := BuildKey("alpha", executor.Options{})
	m.Put(ctx, key, rsFor("alpha"))

	_, ok := m.Get(ctx, key)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = m.Get(ctx, key)
	assert.False(t, ok, "entry past its TTL reads as a miss")
	assert.Zero(t, m.Len(), "expired entry is evicted on read")
	assert.Empty(t, m.order, "expired key leaves the insertion-order slice")
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 2)

	evictions := 0
	m.SetEvictionHook(func() { evictions++ })

	keys := make([]Key, 3)
	for i := range keys {
		keys[i] = BuildKey(fmt.Sprintf("query-%d", i), executor.Options{})
		m.Put(ctx, keys[i], rsFor(fmt.Sprintf("query-%d", i)))
	}

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, evictions)

	_, ok := m.Get(ctx, keys[0])
	assert.False(t, ok, "oldest entry is evicted first")
	_, ok = m.Get(ctx, keys[2])
	assert.True(t, ok)
}

func TestMemoryPutSameKeyTwice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 2)

	key := BuildKey("alpha", executor.Options{})
	m.Put(ctx, key, rsFor("first"))
	m.Put(ctx, key, rsFor("second"))

	assert.Equal(t, 1, m.Len())
	got, ok := m.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "second", got.Query)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 4)

	m.Put(ctx, BuildKey("alpha", executor.Options{}), rsFor("alpha"))
	m.Put(ctx, BuildKey("beta", executor.Options{}), rsFor("beta"))
	require.Equal(t, 2, m.Len())

	require.NoError(t, m.Clear(ctx))
	assert.Zero(t, m.Len())
}
