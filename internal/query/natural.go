package query

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nlTypeRe = regexp.MustCompile(`(?i)\bfind\s+all\s+(\w+?)s?\s+elements?\b`)
	nlConfRe = regexp.MustCompile(`(?i)\bconfidence\s+(above|over|below|under)\s+(\d*\.?\d+)\b`)
	nlPageRe = regexp.MustCompile(`(?i)\bon\s+page\s+(\d+)\b`)
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "in": {},
	"is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "show": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
	"me": {}, "all": {}, "find": {}, "get": {}, "give": {},
}

// ParseNaturalLanguage recognizes a small fixed set of English patterns
// ("find all <type> elements", "confidence above <n>", "on page <n>") and
// degrades whatever remains to simple terms with stop-words stripped. The
// output uses the same token model as Parse; this mode is sugar, never the
// only way to express a query.
func (p *Parser) ParseNaturalLanguage(raw string) *Query {
	q := &Query{
		Raw:     raw,
		Filters: make(map[string]Filter),
	}
	working := raw

	if m := nlTypeRe.FindStringSubmatch(working); m != nil {
		q.Tokens = append(q.Tokens, Token{
			Kind:  KindField,
			Field: "type",
			Value: strings.ToLower(m[1]),
			Boost: 1.0,
		})
		working = nlTypeRe.ReplaceAllString(working, " ")
	}
	if m := nlConfRe.FindStringSubmatch(working); m != nil {
		q.Filters["confidence"] = confidenceFilter(m[1], m[2])
		working = nlConfRe.ReplaceAllString(working, " ")
	}
	if m := nlPageRe.FindStringSubmatch(working); m != nil {
		q.Tokens = append(q.Tokens, Token{
			Kind:  KindField,
			Field: "page",
			Value: m[1],
			Boost: 1.0,
		})
		working = nlPageRe.ReplaceAllString(working, " ")
	}

	for _, word := range strings.Fields(strings.ToLower(working)) {
		word = strings.Trim(word, ".,!?;:'\"")
		if word == "" {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		q.Tokens = append(q.Tokens, Token{Kind: KindSimple, Value: word, Boost: 1.0})
	}
	return q
}

func confidenceFilter(direction, bound string) Filter {
	f := Filter{Numeric: true, Min: 0, Max: 1}
	v, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return f
	}
	switch strings.ToLower(direction) {
	case "above", "over":
		f.Min = v
	case "below", "under":
		f.Max = v
	}
	return f
}
