// Package executor resolves parsed queries against the index: per-token
// lookups, left-to-right boolean folding, post-hoc filters, result
// materialization, scoring, highlighting, ranking, and pagination.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/index"
	"github.com/docugrid/searchcore/internal/index/tokenizer"
	"github.com/docugrid/searchcore/internal/query"
	"github.com/docugrid/searchcore/internal/searcher/ranker"
	"github.com/docugrid/searchcore/pkg/metrics"
)

// FloatRange is an inclusive numeric interval.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Options is the configuration bag accepted alongside a query string.
// Filters here layer ad-hoc constraints independent of the query text.
type Options struct {
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
	Ranking      ranker.Strategy `json:"ranking,omitempty"`
	Highlight    bool            `json:"highlight,omitempty"`
	Natural      bool            `json:"natural,omitempty"`
	ElementTypes []element.Type  `json:"element_types,omitempty"`
	Confidence   *FloatRange     `json:"confidence,omitempty"`
	Pages        *IntRange       `json:"pages,omitempty"`
	UseCache     *bool           `json:"use_cache,omitempty"`
}

// ResultSet is the outcome of one search.
type ResultSet struct {
	Query      string          `json:"query"`
	Results    []ranker.Result `json:"results"`
	TotalCount int             `json:"total_count"`
	Offset     int             `json:"offset"`
	HasMore    bool            `json:"has_more"`
	Elapsed    time.Duration   `json:"elapsed"`
	Invalid    []string        `json:"invalid,omitempty"`
}

// Executor runs structured queries against the index.
type Executor struct {
	idx          *index.Index
	parser       *query.Parser
	ranker       *ranker.Ranker
	tok          *tokenizer.Tokenizer
	fetcher      element.Fetcher
	defaultLimit int
	maxResults   int
	maxFuzzy     int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// SetMetrics installs Prometheus collectors. m may be nil.
func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// New creates an Executor. fetcher may be nil, in which case results are
// materialized from the index's own entries. maxFuzzy is the default and
// upper bound for fuzzy scan distances.
func New(
	idx *index.Index,
	parser *query.Parser,
	rnk *ranker.Ranker,
	tok *tokenizer.Tokenizer,
	fetcher element.Fetcher,
	defaultLimit, maxResults, maxFuzzy int,
) *Executor {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	if maxFuzzy <= 0 {
		maxFuzzy = index.DefaultMaxFuzzyDistance
	}
	return &Executor{
		idx:          idx,
		parser:       parser,
		ranker:       rnk,
		tok:          tok,
		fetcher:      fetcher,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		maxFuzzy:     maxFuzzy,
		logger:       slog.Default().With("component", "query-executor"),
	}
}

// Search parses, validates, and executes a raw query string. Malformed
// queries never return an error: they produce an empty result set tagged
// with the validation messages. With the Natural option set, the query is
// read as plain English instead of query syntax.
func (e *Executor) Search(ctx context.Context, raw string, opts Options) *ResultSet {
	start := time.Now()
	var q *query.Query
	if opts.Natural {
		q = e.parser.ParseNaturalLanguage(raw)
	} else {
		q = e.parser.Parse(raw)
	}
	if errs := e.parser.Validate(q); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return &ResultSet{
			Query:   raw,
			Results: []ranker.Result{},
			Invalid: msgs,
			Elapsed: time.Since(start),
		}
	}
	return e.Execute(ctx, q, opts, start)
}

// Execute resolves an already-validated query.
func (e *Executor) Execute(ctx context.Context, q *query.Query, opts Options, start time.Time) *ResultSet {
	ids := e.resolve(ctx, q)
	ids = e.applyQueryFilters(ids, q)
	ids = e.applyOptionFilters(ids, opts)

	results := e.materialize(ctx, q, ids, opts.Highlight)

	strategy := opts.Ranking
	if strategy == "" {
		strategy = ranker.StrategyRelevance
	}
	e.ranker.Rank(results, strategy, q)

	total := len(results)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if limit > e.maxResults {
		limit = e.maxResults
	}
	page := []ranker.Result{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = results[offset:end]
	}
	rs := &ResultSet{
		Query:      q.Raw,
		Results:    page,
		TotalCount: total,
		Offset:     offset,
		HasMore:    offset+limit < total,
		Elapsed:    time.Since(start),
	}
	e.logger.Debug("query executed",
		"query", q.Raw,
		"candidates", total,
		"returned", len(page),
		"elapsed", rs.Elapsed,
	)
	return rs
}

// resolve turns the token list into a candidate id set. Single plain-term
// queries skip the folding machinery entirely.
func (e *Executor) resolve(ctx context.Context, q *query.Query) map[string]struct{} {
	if len(q.Tokens) == 0 {
		// Filter-only query: start from everything the filters can narrow.
		return e.idx.SearchByConfidence(0, 1)
	}
	if q.IsSimple() {
		return e.idx.SearchText(e.tok.Tokenize(q.Tokens[0].Value))
	}

	var (
		sets []map[string]struct{}
		ops  []query.Operator
	)
	for i, tok := range q.Tokens {
		// A plain fragment whose value tokenizes to nothing (stray
		// punctuation, an orphaned modifier) has no postings to look up;
		// skipping it keeps it from emptying the AND fold. Its adjacent
		// operator goes with it.
		if tok.Kind == query.KindSimple && len(e.tok.Tokenize(tok.Value)) == 0 {
			continue
		}
		if len(sets) > 0 {
			// Missing trailing operators degrade to AND.
			op := query.OpAnd
			if i-1 < len(q.Operators) {
				op = q.Operators[i-1]
			}
			ops = append(ops, op)
		}
		sets = append(sets, e.resolveToken(ctx, tok, q))
	}
	if len(sets) == 0 {
		return e.idx.SearchByConfidence(0, 1)
	}
	acc := sets[0]
	for i := 1; i < len(sets); i++ {
		switch ops[i-1] {
		case query.OpOr:
			acc = union(acc, sets[i])
		case query.OpNot:
			acc = difference(acc, sets[i])
		default:
			acc = intersect(acc, sets[i])
		}
	}
	return acc
}

func (e *Executor) resolveToken(ctx context.Context, tok query.Token, q *query.Query) map[string]struct{} {
	switch tok.Kind {
	case query.KindField:
		return e.resolveField(tok)
	case query.KindPhrase:
		return e.resolvePhrase(tok.Value)
	case query.KindProximity:
		return e.resolveProximity(tok)
	case query.KindWildcard:
		return e.idx.SearchPrefix(tok.Value)
	case query.KindFuzzy:
		distance := q.FuzzyDistance
		if tok.Modifier != "" {
			if d, err := strconv.Atoi(tok.Modifier); err == nil {
				distance = d
			}
		}
		if distance <= 0 || distance > e.maxFuzzy {
			distance = e.maxFuzzy
		}
		if e.metrics != nil {
			e.metrics.FuzzyScansTotal.Inc()
		}
		return e.idx.SearchTextFuzzy(ctx, e.tok.Tokenize(tok.Value), distance)
	default:
		return e.idx.SearchText(e.tok.Tokenize(tok.Value))
	}
}

// resolveField routes structural fields to the secondary indexes; any other
// validated field resolves through its synthetic field:value term.
func (e *Executor) resolveField(tok query.Token) map[string]struct{} {
	switch tok.Field {
	case "type":
		return e.idx.SearchByType([]string{tok.Value})
	case "page":
		page, err := strconv.Atoi(tok.Value)
		if err != nil {
			return map[string]struct{}{}
		}
		return e.idx.SearchByPage([]int{page})
	case "confidence":
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return map[string]struct{}{}
		}
		return e.idx.SearchByConfidence(v, v)
	case "language", "lang":
		return e.idx.SearchText([]string{"lang:" + tok.Value})
	default:
		return e.idx.SearchText([]string{tok.Field + ":" + tok.Value})
	}
}

// resolvePhrase narrows candidates by the phrase terms, then demands an
// exact (case-insensitive) substring match on the raw text.
func (e *Executor) resolvePhrase(phrase string) map[string]struct{} {
	candidates := e.idx.SearchText(e.tok.Tokenize(phrase))
	needle := strings.ToLower(phrase)
	out := make(map[string]struct{}, len(candidates))
	for id := range candidates {
		entry, ok := e.idx.Get(id)
		if ok && strings.Contains(strings.ToLower(entry.RawText), needle) {
			out[id] = struct{}{}
		}
	}
	return out
}

// resolveProximity keeps candidates whose text contains all phrase terms
// within a window of len(terms)+slop tokens.
func (e *Executor) resolveProximity(tok query.Token) map[string]struct{} {
	slop, err := strconv.Atoi(tok.Modifier)
	if err != nil || slop < 0 {
		slop = 0
	}
	terms := e.tok.Tokenize(tok.Value)
	candidates := e.idx.SearchText(terms)
	out := make(map[string]struct{}, len(candidates))
	for id := range candidates {
		entry, ok := e.idx.Get(id)
		if ok && withinWindow(e.tok.Tokenize(entry.RawText), terms, slop) {
			out[id] = struct{}{}
		}
	}
	return out
}

// withinWindow reports whether every phrase term occurs inside some window
// of len(terms)+slop consecutive document terms.
func withinWindow(docTerms, terms []string, slop int) bool {
	if len(terms) == 0 {
		return false
	}
	window := len(terms) + slop
	for i := range docTerms {
		if docTerms[i] != terms[0] {
			continue
		}
		end := i + window
		if end > len(docTerms) {
			end = len(docTerms)
		}
		if containsAll(docTerms[i:end], terms) {
			return true
		}
	}
	return false
}

func containsAll(window, terms []string) bool {
	for _, term := range terms {
		found := false
		for _, w := range window {
			if w == term {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// applyQueryFilters intersects the candidate set with the range filters
// extracted from the query string.
func (e *Executor) applyQueryFilters(ids map[string]struct{}, q *query.Query) map[string]struct{} {
	for field, f := range q.Filters {
		var allowed map[string]struct{}
		switch {
		case field == "confidence" && f.Numeric:
			allowed = e.idx.SearchByConfidence(f.Min, f.Max)
		case field == "page" && f.Numeric:
			allowed = e.idx.SearchByPage(expandPages(f.Min, f.Max))
		case f.Numeric:
			allowed = e.idx.SearchNumericTermRange(field, f.Min, f.Max)
		default:
			allowed = e.idx.SearchTermRange(field, f.StrMin, f.StrMax)
		}
		ids = intersect(ids, allowed)
	}
	return ids
}

// applyOptionFilters intersects the candidate set with the ad-hoc option
// constraints.
func (e *Executor) applyOptionFilters(ids map[string]struct{}, opts Options) map[string]struct{} {
	if len(opts.ElementTypes) > 0 {
		types := make([]string, len(opts.ElementTypes))
		for i, t := range opts.ElementTypes {
			types[i] = string(t)
		}
		ids = intersect(ids, e.idx.SearchByType(types))
	}
	if opts.Confidence != nil {
		ids = intersect(ids, e.idx.SearchByConfidence(opts.Confidence.Min, opts.Confidence.Max))
	}
	if opts.Pages != nil {
		ids = intersect(ids, e.idx.SearchByPage(expandPages(float64(opts.Pages.Min), float64(opts.Pages.Max))))
	}
	return ids
}

// materialize builds scored results for the surviving ids. A failure on any
// single element drops that element only; the rest of the batch survives.
// Ids are visited in sorted order so tie scores rank deterministically.
func (e *Executor) materialize(ctx context.Context, q *query.Query, ids map[string]struct{}, highlight bool) []ranker.Result {
	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	results := make([]ranker.Result, 0, len(ordered))
	for _, id := range ordered {
		entry, ok := e.idx.Get(id)
		if !ok {
			// Removed between resolution and materialization.
			continue
		}
		result, err := e.buildResult(ctx, q, id, entry, highlight)
		if err != nil {
			e.logger.Warn("dropping result", "id", id, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// buildResult fetches, scores, and optionally highlights a single element.
// A panic while processing the element is confined to it and surfaces as an
// error, so one bad element cannot fail the whole search.
func (e *Executor) buildResult(ctx context.Context, q *query.Query, id string, entry *index.Entry, highlight bool) (result ranker.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building result: %v", r)
		}
	}()
	text := entry.RawText
	if e.fetcher != nil {
		el, ferr := e.fetcher.Get(ctx, id)
		if ferr != nil {
			return ranker.Result{}, fmt.Errorf("element fetch failed: %w", ferr)
		}
		text = el.Text
	}
	score, matchInfo := e.score(entry, q)
	result = ranker.Result{
		ElementID:    id,
		Score:        score,
		Type:         entry.Type,
		Page:         entry.Page,
		Confidence:   entry.Confidence,
		MatchInfo:    matchInfo,
		LastModified: entry.LastModified,
	}
	if highlight {
		result.HighlightedText = highlightTerms(text, q.FreeTextValues())
	}
	return result, nil
}

// score implements the base relevance formula: per matched free-text term,
// (occurrences / total text terms) x 10 scaled by the token boost, plus
// confidence x 5 and the per-type bonus.
func (e *Executor) score(entry *index.Entry, q *query.Query) (float64, map[string]int) {
	textTerms := e.tok.Tokenize(entry.RawText)
	counts := make(map[string]int, len(textTerms))
	for _, term := range textTerms {
		counts[term]++
	}
	matchInfo := make(map[string]int)
	var score float64
	for _, tok := range q.Tokens {
		if tok.Kind == query.KindField {
			continue
		}
		for _, term := range e.tok.Tokenize(tok.Value) {
			occ := counts[term]
			if tok.Kind == query.KindWildcard {
				occ = 0
				for t, c := range counts {
					if strings.HasPrefix(t, term) {
						occ += c
					}
				}
			}
			if occ == 0 {
				continue
			}
			matchInfo[term] = occ
			score += float64(occ) / float64(len(textTerms)) * 10 * tok.Boost
		}
	}
	score += entry.Confidence * 5
	score += ranker.TypeBonus(entry.Type)
	return score, matchInfo
}

// highlightTerms wraps each whole-word occurrence of the query words in
// <em> tags.
func highlightTerms(text string, words []string) string {
	highlighted := text
	for _, word := range words {
		if word == "" {
			continue
		}
		highlighted = wrapWord(highlighted, word)
	}
	return highlighted
}

// wrapWord matches over a lowered copy of the text. Lowering can change a
// rune's byte length, so every lowered byte offset is mapped back to the
// original offset before slicing the original text.
func wrapWord(text, word string) string {
	word = strings.ToLower(word)
	if word == "" {
		return text
	}
	var lowered strings.Builder
	lowered.Grow(len(text))
	back := make([]int, 0, len(text)+1)
	for i, r := range text {
		n, _ := lowered.WriteRune(unicode.ToLower(r))
		for k := 0; k < n; k++ {
			back = append(back, i)
		}
	}
	back = append(back, len(text))
	lower := lowered.String()

	var b strings.Builder
	prev := 0
	for i := 0; i < len(lower); {
		j := strings.Index(lower[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)
		i = end
		if !isWordBoundary(lower, start, end) {
			continue
		}
		b.WriteString(text[prev:back[start]])
		b.WriteString("<em>")
		b.WriteString(text[back[start]:back[end]])
		b.WriteString("</em>")
		prev = back[end]
	}
	if prev == 0 {
		return text
	}
	b.WriteString(text[prev:])
	return b.String()
}

func isWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func expandPages(min, max float64) []int {
	lo := int(min)
	if float64(lo) < min {
		lo++
	}
	hi := int(max)
	pages := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		pages = append(pages, p)
	}
	return pages
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(map[string]struct{}, len(a))
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

func difference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a))
	for id := range a {
		if _, ok := b[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}
