// Package tokenizer turns free text and element metadata into normalized
// search terms. It lower-cases input, splits on non-alphanumeric boundaries,
// enforces term length bounds, and applies a naive suffix stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/docugrid/searchcore/internal/element"
)

// Config controls tokenization.
type Config struct {
	MinLength int
	MaxLength int
	Stemming  bool
}

// Tokenizer produces normalized terms.
type Tokenizer struct {
	cfg Config
}

// New creates a Tokenizer, applying the default [2,30] length bounds for
// unset values.
func New(cfg Config) *Tokenizer {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 2
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 30
	}
	return &Tokenizer{cfg: cfg}
}

// Tokenize breaks text into lowercased terms within the configured length
// bounds, stemmed when stemming is enabled. Order follows the input; terms
// may repeat.
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if t.cfg.Stemming {
			word = stem(word)
		}
		if len(word) < t.cfg.MinLength || len(word) > t.cfg.MaxLength {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// ExtractTerms derives the deduplicated term set for an element: tokenized
// text plus structural terms type:<type>, lang:<tag> per language, and
// <key>:<value> per metadata field. Structural terms resolve field queries
// through the same term index used for free text.
func (t *Tokenizer) ExtractTerms(el element.Element) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, term := range t.Tokenize(el.Text) {
		terms[term] = struct{}{}
	}
	if el.Type != "" {
		terms["type:"+strings.ToLower(string(el.Type))] = struct{}{}
	}
	for _, lang := range el.Languages {
		if lang == "" {
			continue
		}
		terms["lang:"+strings.ToLower(lang)] = struct{}{}
	}
	for key, value := range el.Metadata {
		term := strings.ToLower(key) + ":" + strings.ToLower(value.Term())
		terms[term] = struct{}{}
	}
	return terms
}

// suffixes tried in order; only the first match is stripped.
var suffixes = []string{"ing", "ed", "er", "s"}

// stem strips a single trailing suffix when the remainder keeps more than
// len(suffix)+2 characters.
func stem(word string) string {
	for _, suffix := range suffixes {
		if strings.HasSuffix(word, suffix) {
			rest := word[:len(word)-len(suffix)]
			if len(rest) > len(suffix)+2 {
				return rest
			}
			return word
		}
	}
	return word
}
