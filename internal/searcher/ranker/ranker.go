// Package ranker orders search results. Every strategy is a stable total
// order: ties preserve candidate order, so repeated identical queries
// against an unchanged index produce identical orderings.
package ranker

import (
	"sort"
	"time"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/query"
)

// Result is one scored search hit.
type Result struct {
	ElementID       string         `json:"element_id"`
	Score           float64        `json:"score"`
	Type            element.Type   `json:"type"`
	Page            int            `json:"page,omitempty"`
	Confidence      float64        `json:"confidence"`
	MatchInfo       map[string]int `json:"match_info,omitempty"`
	HighlightedText string         `json:"highlighted_text,omitempty"`
	LastModified    time.Time      `json:"-"`
}

// Strategy names a ranking order.
type Strategy string

const (
	StrategyRelevance  Strategy = "relevance"
	StrategyConfidence Strategy = "confidence"
	StrategyRecency    Strategy = "recency"
	StrategyPosition   Strategy = "position"
	StrategyCustom     Strategy = "custom"
)

// ScoreFunc is an injected scoring function for the custom strategy.
type ScoreFunc func(r Result, q *query.Query) float64

// Ranker applies ranking strategies. The custom scorer is owned per
// instance; there is no global registry.
type Ranker struct {
	custom ScoreFunc
}

// New creates a Ranker with no custom scorer.
func New() *Ranker {
	return &Ranker{}
}

// RegisterCustom installs the scorer used by StrategyCustom.
func (r *Ranker) RegisterCustom(fn ScoreFunc) {
	r.custom = fn
}

// Rank orders results in place according to the strategy. Unknown
// strategies, and StrategyCustom without a registered scorer, fall back to
// relevance.
func (r *Ranker) Rank(results []Result, strategy Strategy, q *query.Query) {
	switch strategy {
	case StrategyConfidence:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Confidence > results[j].Confidence
		})
	case StrategyRecency:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].LastModified.After(results[j].LastModified)
		})
	case StrategyPosition:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Page != results[j].Page {
				return results[i].Page < results[j].Page
			}
			return results[i].ElementID < results[j].ElementID
		})
	case StrategyCustom:
		if r.custom != nil {
			for i := range results {
				results[i].Score = r.custom(results[i], q)
			}
		}
		fallthrough
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
}

// TypeBonus is the fixed per-type relevance bonus: structurally important
// elements outrank narrative text at equal text relevance.
func TypeBonus(t element.Type) float64 {
	switch t {
	case element.TypeTitle:
		return 2.0
	case element.TypeHeader:
		return 1.8
	case element.TypeTable, element.TypeListItem:
		return 1.5
	case element.TypeFigureCaption:
		return 1.2
	default:
		return 1.0
	}
}
