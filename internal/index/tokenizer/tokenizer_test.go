package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docugrid/searchcore/internal/element"
)

func TestTokenize(t *testing.T) {
	tok := New(Config{})

	t.Run("lowercases and splits on non-alphanumerics", func(t *testing.T) {
		terms := tok.Tokenize("Hello, World! 42nd-street")
		assert.Equal(t, []string{"hello", "world", "42nd", "street"}, terms)
	})

	t.Run("drops terms outside length bounds", func(t *testing.T) {
		terms := tok.Tokenize("a I go running")
		assert.NotContains(t, terms, "a")
		assert.NotContains(t, terms, "i")
		assert.Contains(t, terms, "go")
	})

	t.Run("keeps duplicates and input order", func(t *testing.T) {
		terms := tok.Tokenize("alpha beta alpha")
		assert.Equal(t, []string{"alpha", "beta", "alpha"}, terms)
	})

	t.Run("empty input yields no terms", func(t *testing.T) {
		assert.Empty(t, tok.Tokenize(""))
		assert.Empty(t, tok.Tokenize("  ,.;  "))
	})
}

func TestTokenizeStemming(t *testing.T) {
	tok := New(Config{Stemming: true})

	t.Run("strips common suffixes", func(t *testing.T) {
		assert.Equal(t, []string{"search"}, tok.Tokenize("searching"))
		assert.Equal(t, []string{"printer"}, tok.Tokenize("printers"))
	})

	t.Run("keeps short stems intact", func(t *testing.T) {
		// Stripping would leave too little of the word.
		assert.Equal(t, []string{"tested"}, tok.Tokenize("tested"))
		assert.Equal(t, []string{"running"}, tok.Tokenize("running"))
	})

	t.Run("strips only one suffix", func(t *testing.T) {
		// "buildings" loses the plural s, not the ing as well.
		assert.Equal(t, []string{"building"}, tok.Tokenize("buildings"))
	})
}

func TestExtractTerms(t *testing.T) {
	tok := New(Config{})

	el := element.Element{
		ID:         "e1",
		Type:       element.TypeTitle,
		Text:       "Annual Report",
		Confidence: 0.9,
		Languages:  []string{"EN", "de"},
		Metadata: map[string]element.Scalar{
			"Author": element.String("Smith"),
			"year":   element.Int(2024),
		},
	}
	terms := tok.ExtractTerms(el)

	t.Run("includes text terms", func(t *testing.T) {
		assert.Contains(t, terms, "annual")
		assert.Contains(t, terms, "report")
	})

	t.Run("includes structural terms", func(t *testing.T) {
		assert.Contains(t, terms, "type:title")
		assert.Contains(t, terms, "lang:en")
		assert.Contains(t, terms, "lang:de")
	})

	t.Run("includes lowercased metadata terms", func(t *testing.T) {
		assert.Contains(t, terms, "author:smith")
		assert.Contains(t, terms, "year:2024")
	})

	t.Run("deduplicates", func(t *testing.T) {
		dup := tok.ExtractTerms(element.Element{ID: "e2", Text: "alpha alpha alpha"})
		require.Len(t, dup, 1)
		assert.Contains(t, dup, "alpha")
	})
}
