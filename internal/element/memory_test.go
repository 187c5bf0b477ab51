package element

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/docugrid/searchcore/pkg/errors"
)

func TestMemoryStoreSnapshotAndGet(t *testing.T) {
	store := NewMemoryStore()
	store.Put(
		Element{ID: "e1", Type: TypeTitle, Text: "alpha"},
		Element{ID: "e2", Type: TypeTable, Text: "beta"},
	)
	ctx := context.Background()

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)

	el, err := store.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", el.Text)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrElementNotFound)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	changes := make(chan ChangeSet, 4)
	require.NoError(t, store.Subscribe(ctx, func(cs ChangeSet) {
		changes <- cs
	}))

	t.Run("put notifies upserts", func(t *testing.T) {
		store.Put(Element{ID: "e1", Text: "alpha"})
		cs := <-changes
		require.Len(t, cs.Upserts, 1)
		assert.Equal(t, "e1", cs.Upserts[0].ID)
		assert.Empty(t, cs.Deletes)
	})

	t.Run("delete notifies explicitly", func(t *testing.T) {
		store.Delete("e1")
		cs := <-changes
		assert.Empty(t, cs.Upserts)
		assert.Equal(t, []string{"e1"}, cs.Deletes)
	})

	t.Run("deleting absent ids notifies nothing", func(t *testing.T) {
		store.Delete("never-was")
		select {
		case cs := <-changes:
			t.Fatalf("unexpected change set: %+v", cs)
		default:
		}
	})
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value Scalar
		term  string
	}{
		{"string", String("Smith"), "Smith"},
		{"int", Int(2024), "2024"},
		{"float", Float(0.5), "0.5"},
		{"bool", Bool(true), "true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.term, tc.value.Term())

			data, err := tc.value.MarshalJSON()
			require.NoError(t, err)
			var back Scalar
			require.NoError(t, back.UnmarshalJSON(data))
			assert.Equal(t, tc.value, back)
		})
	}
}

func TestElementClone(t *testing.T) {
	el := Element{
		ID:        "e1",
		Languages: []string{"en"},
		Metadata:  map[string]Scalar{"author": String("smith")},
	}
	cloned := el.Clone()
	cloned.Languages[0] = "de"
	cloned.Metadata["author"] = String("jones")

	assert.Equal(t, "en", el.Languages[0])
	assert.Equal(t, String("smith"), el.Metadata["author"])
}
