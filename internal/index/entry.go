package index

import (
	"time"

	"github.com/docugrid/searchcore/internal/element"
)

// Entry is the index's derived copy of one element: the deduplicated term
// set plus the metadata the executor and rankers need. It is never shared
// with callers; lookups return copies.
type Entry struct {
	ID           string
	Type         element.Type
	Terms        map[string]struct{}
	RawText      string
	Confidence   float64
	Page         int
	Languages    []string
	LastModified time.Time
}

// clone returns a deep copy safe to hand outside the index lock.
func (e *Entry) clone() *Entry {
	out := &Entry{
		ID:           e.ID,
		Type:         e.Type,
		RawText:      e.RawText,
		Confidence:   e.Confidence,
		Page:         e.Page,
		LastModified: e.LastModified,
	}
	out.Terms = make(map[string]struct{}, len(e.Terms))
	for term := range e.Terms {
		out.Terms[term] = struct{}{}
	}
	if e.Languages != nil {
		out.Languages = make([]string, len(e.Languages))
		copy(out.Languages, e.Languages)
	}
	return out
}
