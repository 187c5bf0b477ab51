package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugrid/searchcore/internal/element"
)

func termSet(terms ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	return set
}

func newEntry(id string, typ element.Type, confidence float64, page int, terms ...string) *Entry {
	return &Entry{
		ID:           id,
		Type:         typ,
		Terms:        termSet(terms...),
		RawText:      "",
		Confidence:   confidence,
		Page:         page,
		LastModified: time.Now(),
	}
}

func TestIndexAddAndSearchText(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeTitle, 0.9, 1, "alpha", "beta"))
	ix.Add(newEntry("e2", element.TypeNarrativeText, 0.5, 2, "alpha"))
	ix.Add(newEntry("e3", element.TypeTable, 0.7, 2, "beta"))

	t.Run("single term", func(t *testing.T) {
		ids := ix.SearchText([]string{"alpha"})
		assert.Len(t, ids, 2)
		assert.Contains(t, ids, "e1")
		assert.Contains(t, ids, "e2")
	})

	t.Run("multiple terms intersect", func(t *testing.T) {
		ids := ix.SearchText([]string{"alpha", "beta"})
		require.Len(t, ids, 1)
		assert.Contains(t, ids, "e1")
	})

	t.Run("unknown term yields empty set", func(t *testing.T) {
		assert.Empty(t, ix.SearchText([]string{"missing"}))
		assert.Empty(t, ix.SearchText([]string{"alpha", "missing"}))
	})

	t.Run("no terms yields empty set", func(t *testing.T) {
		assert.Empty(t, ix.SearchText(nil))
	})
}

func TestIndexReplaceOnAdd(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeTitle, 0.9, 1, "alpha"))
	ix.Add(newEntry("e1", element.TypeHeader, 0.4, 3, "beta"))

	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.SearchText([]string{"alpha"}), "stale postings must not survive a re-add")
	assert.Contains(t, ix.SearchText([]string{"beta"}), "e1")
	assert.Empty(t, ix.SearchByType([]string{"title"}))
	assert.Contains(t, ix.SearchByType([]string{"header"}), "e1")
	assert.Empty(t, ix.SearchByPage([]int{1}))
	assert.Contains(t, ix.SearchByPage([]int{3}), "e1")
}

func TestIndexRemove(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeTitle, 0.9, 1, "alpha", "shared"))
	ix.Add(newEntry("e2", element.TypeTitle, 0.8, 1, "shared"))

	t.Run("removes from every index", func(t *testing.T) {
		require.True(t, ix.Remove("e1"))
		_, ok := ix.Get("e1")
		assert.False(t, ok)
		assert.Empty(t, ix.SearchText([]string{"alpha"}))
		assert.NotContains(t, ix.SearchByType([]string{"title"}), "e1")
		assert.NotContains(t, ix.SearchByConfidence(0, 1), "e1")
	})

	t.Run("shared postings survive", func(t *testing.T) {
		assert.Contains(t, ix.SearchText([]string{"shared"}), "e2")
	})

	t.Run("pruned terms leave no suggestions", func(t *testing.T) {
		assert.Empty(t, ix.Suggest("alph", 10))
	})

	t.Run("removing an absent id reports false", func(t *testing.T) {
		assert.False(t, ix.Remove("e1"))
		assert.False(t, ix.Remove("never-existed"))
	})
}

func TestIndexGetReturnsCopy(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeTitle, 0.9, 1, "alpha"))

	got, ok := ix.Get("e1")
	require.True(t, ok)
	got.Terms["injected"] = struct{}{}

	assert.Empty(t, ix.SearchText([]string{"injected"}), "mutating a returned entry must not touch the index")
}

func TestIndexSearchByConfidence(t *testing.T) {
	ix := New()
	ix.Add(newEntry("low", element.TypeNarrativeText, 0.5, 0, "x"))
	ix.Add(newEntry("high", element.TypeNarrativeText, 0.9, 0, "x"))

	t.Run("bounds are inclusive", func(t *testing.T) {
		ids := ix.SearchByConfidence(0.5, 0.9)
		assert.Len(t, ids, 2)
	})

	t.Run("narrow range excludes boundary values", func(t *testing.T) {
		ids := ix.SearchByConfidence(0.51, 0.89)
		assert.Empty(t, ids)
	})

	t.Run("degenerate range matches exact value", func(t *testing.T) {
		ids := ix.SearchByConfidence(0.9, 0.9)
		require.Len(t, ids, 1)
		assert.Contains(t, ids, "high")
	})
}

func TestIndexSearchTextFuzzy(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeNarrativeText, 0.5, 0, "hello", "world"))
	ix.Add(newEntry("e2", element.TypeNarrativeText, 0.5, 0, "goodbye"))

	ctx := context.Background()

	t.Run("matches within distance", func(t *testing.T) {
		ids := ix.SearchTextFuzzy(ctx, []string{"helo"}, 2)
		require.Len(t, ids, 1)
		assert.Contains(t, ids, "e1")
	})

	t.Run("respects the distance bound", func(t *testing.T) {
		assert.Empty(t, ix.SearchTextFuzzy(ctx, []string{"hel"}, 1))
	})

	t.Run("all query terms must match", func(t *testing.T) {
		assert.Contains(t, ix.SearchTextFuzzy(ctx, []string{"helo", "wrld"}, 2), "e1")
		assert.Empty(t, ix.SearchTextFuzzy(ctx, []string{"helo", "zzzzzz"}, 2))
	})

	t.Run("defaults the distance when unset", func(t *testing.T) {
		ids := ix.SearchTextFuzzy(ctx, []string{"helo"}, 0)
		assert.Contains(t, ids, "e1")
	})
}

func TestIndexSearchPrefixAndSuggest(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeNarrativeText, 0.5, 0, "hello"))
	ix.Add(newEntry("e2", element.TypeNarrativeText, 0.5, 0, "help"))
	ix.Add(newEntry("e3", element.TypeNarrativeText, 0.5, 0, "world"))

	t.Run("prefix search unions matching postings", func(t *testing.T) {
		ids := ix.SearchPrefix("hel")
		assert.Len(t, ids, 2)
	})

	t.Run("empty prefix matches nothing", func(t *testing.T) {
		assert.Empty(t, ix.SearchPrefix(""))
	})

	t.Run("suggestions are sorted and limited", func(t *testing.T) {
		assert.Equal(t, []string{"hello", "help"}, ix.Suggest("hel", 10))
		assert.Equal(t, []string{"hello"}, ix.Suggest("hel", 1))
	})
}

func TestIndexSearchTermRange(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeNarrativeText, 0.5, 0, "author:brown"))
	ix.Add(newEntry("e2", element.TypeNarrativeText, 0.5, 0, "author:smith"))
	ix.Add(newEntry("e3", element.TypeNarrativeText, 0.5, 0, "author:zhang", "year:2019"))
	ix.Add(newEntry("e4", element.TypeNarrativeText, 0.5, 0, "year:2024"))

	t.Run("lexicographic range", func(t *testing.T) {
		ids := ix.SearchTermRange("author", "brown", "smith")
		assert.Len(t, ids, 2)
		assert.NotContains(t, ids, "e3")
	})

	t.Run("numeric range", func(t *testing.T) {
		ids := ix.SearchNumericTermRange("year", 2015, 2020)
		require.Len(t, ids, 1)
		assert.Contains(t, ids, "e3")
	})
}

func TestIndexStats(t *testing.T) {
	ix := New()
	ix.Add(newEntry("e1", element.TypeTitle, 0.9, 1, "alpha", "beta"))
	ix.Add(newEntry("e2", element.TypeTitle, 0.8, 1, "alpha"))

	s := ix.Stats(5)
	assert.Equal(t, 2, s.Elements)
	assert.Equal(t, 2, s.Terms)
	assert.InDelta(t, 1.5, s.AvgTermsPerElement, 1e-9)
	require.NotEmpty(t, s.MostCommonTerms)
	assert.Equal(t, TermCount{Term: "alpha", Count: 2}, s.MostCommonTerms[0])
	assert.False(t, s.LastUpdate.IsZero())
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"hello", "helo", 1},
		{"hello", "hello", 0},
		{"flaw", "lawn", 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "levenshtein(%q, %q)", tc.a, tc.b)
	}
}

func TestWithinDistance(t *testing.T) {
	t.Run("length difference prefilter", func(t *testing.T) {
		assert.False(t, withinDistance("ab", "abcdef", 2))
	})
	t.Run("boundary distance", func(t *testing.T) {
		assert.True(t, withinDistance("hello", "helo", 1))
		assert.False(t, withinDistance("hello", "hxlxo", 1))
	})
}
