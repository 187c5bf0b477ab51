// Package query parses raw query strings into structured queries: ordered
// tokens, boolean operators, and field filters.
package query

// TokenKind classifies a query token.
type TokenKind int

const (
	KindSimple TokenKind = iota
	KindField
	KindPhrase
	KindWildcard
	KindFuzzy
	KindProximity
)

func (k TokenKind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindPhrase:
		return "phrase"
	case KindWildcard:
		return "wildcard"
	case KindFuzzy:
		return "fuzzy"
	case KindProximity:
		return "proximity"
	default:
		return "simple"
	}
}

// Token is one unit of a parsed query.
type Token struct {
	Kind     TokenKind `json:"kind"`
	Value    string    `json:"value"`
	Field    string    `json:"field,omitempty"`
	Modifier string    `json:"modifier,omitempty"`
	Boost    float64   `json:"boost"`
}

// Operator combines two adjacent tokens in left-to-right order.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
)

func (o Operator) String() string {
	switch o {
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	default:
		return "AND"
	}
}

// Filter is a range constraint on a field, numeric when both bounds parsed
// as numbers, lexicographic otherwise.
type Filter struct {
	Numeric bool    `json:"numeric"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	StrMin  string  `json:"str_min,omitempty"`
	StrMax  string  `json:"str_max,omitempty"`
}

// Query is an immutable parsed query. Operators[i] combines Tokens[i] and
// Tokens[i+1]; the executor pads missing trailing operators with AND.
type Query struct {
	Raw           string            `json:"raw"`
	Tokens        []Token           `json:"tokens"`
	Operators     []Operator        `json:"operators,omitempty"`
	Filters       map[string]Filter `json:"filters,omitempty"`
	FuzzyEnabled  bool              `json:"fuzzy_enabled,omitempty"`
	FuzzyDistance int               `json:"fuzzy_distance,omitempty"`
}

// IsSimple reports whether the query is a single plain-text token with no
// filters or operators, eligible for the executor's fast path.
func (q *Query) IsSimple() bool {
	return len(q.Tokens) == 1 &&
		q.Tokens[0].Kind == KindSimple &&
		len(q.Operators) == 0 &&
		len(q.Filters) == 0
}

// FreeTextValues returns the values of all non-field tokens, used for
// scoring and highlighting.
func (q *Query) FreeTextValues() []string {
	values := make([]string, 0, len(q.Tokens))
	for _, tok := range q.Tokens {
		if tok.Kind == KindField {
			continue
		}
		values = append(values, tok.Value)
	}
	return values
}
