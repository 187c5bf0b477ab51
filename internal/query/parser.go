package query

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/docugrid/searchcore/pkg/errors"
)

// Structural fields resolvable through the secondary indexes.
var structuralFields = []string{"type", "page", "confidence", "language", "lang"}

var (
	rangeRe     = regexp.MustCompile(`(\w+):\[\s*([^\s\]]+)\s+TO\s+([^\s\]]+)\s*\]`)
	fieldRe     = regexp.MustCompile(`(\w+):(?:"([^"]*)"|([^\s"]+))`)
	proximityRe = regexp.MustCompile(`"([^"]*)"~(\d+)(?:\^(\d+(?:\.\d+)?))?`)
	phraseRe    = regexp.MustCompile(`"([^"]*)"(?:\^(\d+(?:\.\d+)?))?`)
	boostRe     = regexp.MustCompile(`^(.+)\^(\d+(?:\.\d+)?)$`)
	fuzzyRe     = regexp.MustCompile(`^(.+?)~(\d*)$`)
)

// Parser turns raw query strings into Queries. It is permissive: fragments
// that match no recognized form degrade to simple terms, and semantic
// problems surface through Validate rather than parse failures.
type Parser struct {
	fields map[string]struct{}
}

// NewParser creates a Parser recognizing the structural fields plus the
// given custom field names.
func NewParser(customFields ...string) *Parser {
	fields := make(map[string]struct{}, len(structuralFields)+len(customFields))
	for _, f := range structuralFields {
		fields[f] = struct{}{}
	}
	for _, f := range customFields {
		fields[strings.ToLower(f)] = struct{}{}
	}
	return &Parser{fields: fields}
}

// KnownField reports whether the field name is recognized.
func (p *Parser) KnownField(name string) bool {
	_, ok := p.fields[strings.ToLower(name)]
	return ok
}

// Parse runs the extraction passes in order, each consuming its matches from
// the working string: ranges, field searches, proximity phrases, plain
// phrases, boolean operators, then residual terms with wildcard, fuzzy, and
// boost modifiers. Proximity runs before plain phrases so that a quoted
// phrase followed by ~N is not split apart.
func (p *Parser) Parse(raw string) *Query {
	q := &Query{
		Raw:     raw,
		Filters: make(map[string]Filter),
	}
	working := raw

	// Pass 1: range filters field:[A TO B].
	for _, m := range rangeRe.FindAllStringSubmatch(working, -1) {
		field := strings.ToLower(m[1])
		q.Filters[field] = buildFilter(m[2], m[3])
	}
	working = rangeRe.ReplaceAllString(working, " ")

	// Pass 2: field searches field:value.
	for _, m := range fieldRe.FindAllStringSubmatch(working, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		q.Tokens = append(q.Tokens, Token{
			Kind:  KindField,
			Field: strings.ToLower(m[1]),
			Value: strings.ToLower(value),
			Boost: 1.0,
		})
	}
	working = fieldRe.ReplaceAllString(working, " ")

	// Pass 3: proximity phrases "..."~N, with an optional trailing boost.
	for _, m := range proximityRe.FindAllStringSubmatch(working, -1) {
		q.Tokens = append(q.Tokens, Token{
			Kind:     KindProximity,
			Value:    strings.ToLower(m[1]),
			Modifier: m[2],
			Boost:    parseBoost(m[3]),
		})
	}
	working = proximityRe.ReplaceAllString(working, " ")

	// Pass 4: exact phrases "...", with an optional trailing boost.
	for _, m := range phraseRe.FindAllStringSubmatch(working, -1) {
		q.Tokens = append(q.Tokens, Token{
			Kind:  KindPhrase,
			Value: strings.ToLower(m[1]),
			Boost: parseBoost(m[2]),
		})
	}
	working = phraseRe.ReplaceAllString(working, " ")

	// Pass 5: boolean operators, in encounter order. Runs after the quoted
	// passes so operators inside consumed phrases are not picked up.
	residual := make([]string, 0, 8)
	for _, word := range strings.Fields(working) {
		switch strings.ToUpper(word) {
		case "AND":
			q.Operators = append(q.Operators, OpAnd)
		case "OR":
			q.Operators = append(q.Operators, OpOr)
		case "NOT":
			q.Operators = append(q.Operators, OpNot)
		default:
			residual = append(residual, word)
		}
	}

	// Pass 6: residual terms with modifiers.
	for _, word := range residual {
		q.Tokens = append(q.Tokens, p.parseTerm(word, q))
	}
	return q
}

// parseTerm builds a token from a bare word, peeling boost, wildcard, and
// fuzzy suffixes.
func (p *Parser) parseTerm(word string, q *Query) Token {
	tok := Token{Kind: KindSimple, Boost: 1.0}
	if m := boostRe.FindStringSubmatch(word); m != nil {
		if boost, err := strconv.ParseFloat(m[2], 64); err == nil {
			tok.Boost = boost
			word = m[1]
		}
	}
	switch {
	case len(word) > 1 && strings.HasSuffix(word, "*"):
		tok.Kind = KindWildcard
		word = strings.TrimSuffix(word, "*")
	default:
		if m := fuzzyRe.FindStringSubmatch(word); m != nil {
			tok.Kind = KindFuzzy
			tok.Modifier = m[2]
			word = m[1]
			q.FuzzyEnabled = true
			if m[2] != "" {
				if d, err := strconv.Atoi(m[2]); err == nil && d > q.FuzzyDistance {
					q.FuzzyDistance = d
				}
			}
		}
	}
	tok.Value = strings.ToLower(word)
	return tok
}

// Validate reports the semantic problems of a parsed query. An empty slice
// means the query is executable.
func (p *Parser) Validate(q *Query) []error {
	var errs []error
	if len(q.Tokens) == 0 && len(q.Filters) == 0 {
		errs = append(errs, apperrors.ErrEmptyQuery)
	}
	for _, tok := range q.Tokens {
		if tok.Kind == KindField && !p.KnownField(tok.Field) {
			errs = append(errs, apperrors.Newf(apperrors.ErrUnknownField, 400, "field %q", tok.Field))
		}
		if tok.Value == "" && tok.Kind != KindField {
			errs = append(errs, apperrors.Newf(apperrors.ErrInvalidQuery, 400, "empty %s token", tok.Kind))
		}
	}
	for field := range q.Filters {
		if !p.KnownField(field) {
			errs = append(errs, apperrors.Newf(apperrors.ErrUnknownField, 400, "field %q", field))
		}
	}
	// The parser connects at most tokens-1 operators by construction; more
	// than that means dangling operators.
	if len(q.Tokens) > 0 && len(q.Operators) > len(q.Tokens)-1 {
		errs = append(errs, apperrors.Newf(apperrors.ErrInvalidQuery,
			400, "%d operators for %d tokens", len(q.Operators), len(q.Tokens)))
	}
	return errs
}

// parseBoost reads an optional ^N capture, defaulting to the neutral 1.0.
func parseBoost(s string) float64 {
	if s == "" {
		return 1.0
	}
	b, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	return b
}

// buildFilter classifies range bounds as numeric when both parse as numbers,
// lexicographic otherwise.
func buildFilter(minStr, maxStr string) Filter {
	minF, errMin := strconv.ParseFloat(minStr, 64)
	maxF, errMax := strconv.ParseFloat(maxStr, 64)
	if errMin == nil && errMax == nil {
		return Filter{Numeric: true, Min: minF, Max: maxF}
	}
	return Filter{
		StrMin: strings.ToLower(minStr),
		StrMax: strings.ToLower(maxStr),
	}
}
