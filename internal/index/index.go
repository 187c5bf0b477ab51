// Package index implements the in-memory inverted index at the heart of the
// search core: a term index plus secondary type, page, and confidence-bucket
// indexes, all guarded by a single readers-writer lock. Readers and writers
// run concurrently; every public method acquires and releases the lock
// internally, and all returned sets are fresh copies.
package index

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxFuzzyDistance bounds fuzzy matches when no distance is given.
const DefaultMaxFuzzyDistance = 2

// Index is the four-way inverted index over element entries.
type Index struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	terms      map[string]map[string]struct{}
	types      map[string]map[string]struct{}
	pages      map[int]map[string]struct{}
	confidence map[int]map[string]struct{}
	lastUpdate time.Time
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		entries:    make(map[string]*Entry),
		terms:      make(map[string]map[string]struct{}),
		types:      make(map[string]map[string]struct{}),
		pages:      make(map[int]map[string]struct{}),
		confidence: make(map[int]map[string]struct{}),
	}
}

// Add inserts an entry, replacing any prior entry with the same id. Replace
// semantics remove the old postings first, so re-adding never leaves stale
// postings behind.
func (ix *Index) Add(e *Entry) {
	stored := e.clone()
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.entries[stored.ID]; exists {
		ix.removeLocked(stored.ID)
	}
	ix.entries[stored.ID] = stored
	for term := range stored.Terms {
		ids, ok := ix.terms[term]
		if !ok {
			ids = make(map[string]struct{})
			ix.terms[term] = ids
		}
		ids[stored.ID] = struct{}{}
	}
	addToBucket(ix.types, strings.ToLower(string(stored.Type)), stored.ID)
	if stored.Page > 0 {
		addToBucket(ix.pages, stored.Page, stored.ID)
	}
	addToBucket(ix.confidence, confidenceBucket(stored.Confidence), stored.ID)
	ix.lastUpdate = time.Now()
}

// Remove deletes an id from every index. It reports whether the id was
// present.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.entries[id]; !exists {
		return false
	}
	ix.removeLocked(id)
	ix.lastUpdate = time.Now()
	return true
}

// Get returns a copy of the entry for id.
func (ix *Index) Get(id string) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// SearchText intersects the postings of each term (AND semantics) against
// the exact term index.
func (ix *Index) SearchText(terms []string) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(terms) == 0 {
		return map[string]struct{}{}
	}
	// Start from the shortest postings list.
	shortest := terms[0]
	for _, term := range terms {
		ids, ok := ix.terms[term]
		if !ok {
			return map[string]struct{}{}
		}
		if len(ids) < len(ix.terms[shortest]) {
			shortest = term
		}
	}
	result := make(map[string]struct{}, len(ix.terms[shortest]))
	for id := range ix.terms[shortest] {
		result[id] = struct{}{}
	}
	for _, term := range terms {
		if term == shortest {
			continue
		}
		ids := ix.terms[term]
		for id := range result {
			if _, ok := ids[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result
}

// SearchTextFuzzy matches terms within the given Levenshtein distance
// (DefaultMaxFuzzyDistance when maxDistance <= 0). The exact-term postings
// cannot answer this, so it linearly scans all entries; the scan honours
// ctx cancellation every few hundred entries.
func (ix *Index) SearchTextFuzzy(ctx context.Context, terms []string, maxDistance int) map[string]struct{} {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxFuzzyDistance
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	result := make(map[string]struct{})
	if len(terms) == 0 {
		return result
	}
	checked := 0
	for id, entry := range ix.entries {
		checked++
		if checked%256 == 0 && ctx.Err() != nil {
			return result
		}
		if entryMatchesFuzzy(entry, terms, maxDistance) {
			result[id] = struct{}{}
		}
	}
	return result
}

// SearchByType unions the ids of all given element types.
func (ix *Index) SearchByType(types []string) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	for _, t := range types {
		for id := range ix.types[strings.ToLower(t)] {
			result[id] = struct{}{}
		}
	}
	return result
}

// SearchByPage unions the ids of all given pages.
func (ix *Index) SearchByPage(pages []int) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	for _, p := range pages {
		for id := range ix.pages[p] {
			result[id] = struct{}{}
		}
	}
	return result
}

// SearchByConfidence returns ids whose confidence lies in [min, max], both
// inclusive. Buckets narrow the candidate set; the stored float decides.
func (ix *Index) SearchByConfidence(min, max float64) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	lo, hi := confidenceBucket(min), confidenceBucket(max)
	for bucket := lo; bucket <= hi; bucket++ {
		for id := range ix.confidence[bucket] {
			e := ix.entries[id]
			if e != nil && e.Confidence >= min && e.Confidence <= max {
				result[id] = struct{}{}
			}
		}
	}
	return result
}

// SearchPrefix unions the postings of every indexed term with the given
// prefix (wildcard queries).
func (ix *Index) SearchPrefix(prefix string) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	if prefix == "" {
		return result
	}
	for term, ids := range ix.terms {
		if strings.HasPrefix(term, prefix) {
			for id := range ids {
				result[id] = struct{}{}
			}
		}
	}
	return result
}

// SearchTermRange returns ids carrying a field:value term whose value falls
// lexicographically in [min, max].
func (ix *Index) SearchTermRange(field, min, max string) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	prefix := strings.ToLower(field) + ":"
	for term, ids := range ix.terms {
		value, ok := strings.CutPrefix(term, prefix)
		if !ok || value < min || value > max {
			continue
		}
		for id := range ids {
			result[id] = struct{}{}
		}
	}
	return result
}

// SearchNumericTermRange returns ids carrying a field:value term whose
// value parses as a number in [min, max].
func (ix *Index) SearchNumericTermRange(field string, min, max float64) map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	result := make(map[string]struct{})
	prefix := strings.ToLower(field) + ":"
	for term, ids := range ix.terms {
		value, ok := strings.CutPrefix(term, prefix)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < min || v > max {
			continue
		}
		for id := range ids {
			result[id] = struct{}{}
		}
	}
	return result
}

// Suggest returns up to limit indexed terms with the given prefix, sorted
// lexicographically.
func (ix *Index) Suggest(prefix string, limit int) []string {
	ix.mu.RLock()
	matched := make([]string, 0, 16)
	for term := range ix.terms {
		if strings.HasPrefix(term, prefix) {
			matched = append(matched, term)
		}
	}
	ix.mu.RUnlock()

	sort.Strings(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// TermCount pairs a term with its postings size.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Stats is a point-in-time summary of index shape.
type Stats struct {
	Elements           int         `json:"total_elements"`
	Terms              int         `json:"total_terms"`
	AvgTermsPerElement float64     `json:"average_terms_per_element"`
	MostCommonTerms    []TermCount `json:"most_common_terms"`
	LastUpdate         time.Time   `json:"last_update"`
}

// Stats reports index statistics, including the topN most common terms.
func (ix *Index) Stats(topN int) Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	s := Stats{
		Elements:   len(ix.entries),
		Terms:      len(ix.terms),
		LastUpdate: ix.lastUpdate,
	}
	if len(ix.entries) > 0 {
		total := 0
		for _, e := range ix.entries {
			total += len(e.Terms)
		}
		s.AvgTermsPerElement = float64(total) / float64(len(ix.entries))
	}
	if topN > 0 {
		counts := make([]TermCount, 0, len(ix.terms))
		for term, ids := range ix.terms {
			counts = append(counts, TermCount{Term: term, Count: len(ids)})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Term < counts[j].Term
		})
		if len(counts) > topN {
			counts = counts[:topN]
		}
		s.MostCommonTerms = counts
	}
	return s
}

// Len returns the number of indexed elements.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// removeLocked deletes id from all four indexes, pruning postings lists that
// become empty. Caller holds the write lock.
func (ix *Index) removeLocked(id string) {
	e := ix.entries[id]
	delete(ix.entries, id)
	for term := range e.Terms {
		if ids, ok := ix.terms[term]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(ix.terms, term)
			}
		}
	}
	removeFromBucket(ix.types, strings.ToLower(string(e.Type)), id)
	if e.Page > 0 {
		removeFromBucket(ix.pages, e.Page, id)
	}
	removeFromBucket(ix.confidence, confidenceBucket(e.Confidence), id)
}

// confidenceBucket maps a confidence in [0,1] to a width-0.1 bucket.
func confidenceBucket(c float64) int {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return int(c * 10)
}

func addToBucket[K comparable](m map[K]map[string]struct{}, key K, id string) {
	ids, ok := m[key]
	if !ok {
		ids = make(map[string]struct{})
		m[key] = ids
	}
	ids[id] = struct{}{}
}

func removeFromBucket[K comparable](m map[K]map[string]struct{}, key K, id string) {
	if ids, ok := m[key]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m, key)
		}
	}
}
