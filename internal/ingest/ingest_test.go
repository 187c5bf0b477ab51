package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/index"
	"github.com/docugrid/searchcore/internal/index/tokenizer"
)

func newIngestor(store *element.MemoryStore) (*Ingestor, *index.Index) {
	ix := index.New()
	tok := tokenizer.New(tokenizer.Config{})
	return New(ix, tok, store, 16, nil), ix
}

func TestStartBulkLoadsSnapshot(t *testing.T) {
	store := element.NewMemoryStore()
	store.Put(
		element.Element{ID: "e1", Type: element.TypeTitle, Text: "alpha", Confidence: 0.9},
		element.Element{ID: "e2", Type: element.TypeNarrativeText, Text: "beta", Confidence: 0.5},
	)
	in, ix := newIngestor(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, in.Start(ctx))

	assert.Equal(t, 2, ix.Len())
	assert.Contains(t, ix.SearchText([]string{"alpha"}), "e1")

	report := in.Report()
	assert.Equal(t, int64(2), report.Indexed)
	assert.Empty(t, report.Failed)
}

func TestSubscriptionChangesReachTheIndex(t *testing.T) {
	store := element.NewMemoryStore()
	in, ix := newIngestor(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, in.Start(ctx))

	t.Run("upsert", func(t *testing.T) {
		store.Put(element.Element{ID: "e1", Type: element.TypeTitle, Text: "gamma", Confidence: 0.7})
		require.Eventually(t, func() bool {
			_, ok := ix.Get("e1")
			return ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("delete", func(t *testing.T) {
		store.Delete("e1")
		require.Eventually(t, func() bool {
			_, ok := ix.Get("e1")
			return !ok
		}, time.Second, 5*time.Millisecond)
	})
}

func TestFailuresAreIsolated(t *testing.T) {
	store := element.NewMemoryStore()
	in, ix := newIngestor(store)

	// One broken element must not take down the rest of the batch.
	err := in.Upsert(element.Element{ID: "", Text: "no id"})
	require.Error(t, err)
	require.NoError(t, in.Upsert(element.Element{ID: "ok", Text: "fine", Confidence: 0.5}))

	assert.Equal(t, 1, ix.Len())
	report := in.Report()
	assert.Equal(t, int64(1), report.Indexed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "", report.Failed[0].ID)
	assert.NotEmpty(t, report.Failed[0].Reason)
}

func TestUpsertNormalizesConfidence(t *testing.T) {
	store := element.NewMemoryStore()
	in, ix := newIngestor(store)

	require.NoError(t, in.Upsert(element.Element{ID: "hi", Text: "x", Confidence: 3.5}))
	require.NoError(t, in.Upsert(element.Element{ID: "lo", Text: "x", Confidence: -1}))

	hi, ok := ix.Get("hi")
	require.True(t, ok)
	assert.Equal(t, 1.0, hi.Confidence)

	lo, ok := ix.Get("lo")
	require.True(t, ok)
	assert.Equal(t, 0.0, lo.Confidence)
}

func TestRemove(t *testing.T) {
	store := element.NewMemoryStore()
	in, ix := newIngestor(store)

	require.NoError(t, in.Upsert(element.Element{ID: "e1", Text: "alpha", Confidence: 0.5}))
	assert.True(t, in.Remove("e1"))
	assert.False(t, in.Remove("e1"))
	assert.Zero(t, ix.Len())

	report := in.Report()
	assert.Equal(t, int64(1), report.Removed)
}

func TestWorkerDrainsOnCancel(t *testing.T) {
	store := element.NewMemoryStore()
	in, _ := newIngestor(store)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, in.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		in.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
