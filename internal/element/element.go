// Package element defines the document element model consumed by the search
// core and the Source contract for loading elements and receiving changes.
package element

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Type classifies a document element.
type Type string

const (
	TypeTitle         Type = "title"
	TypeHeader        Type = "header"
	TypeNarrativeText Type = "narrative_text"
	TypeTable         Type = "table"
	TypeListItem      Type = "list_item"
	TypeImage         Type = "image"
	TypeFormula       Type = "formula"
	TypeFigureCaption Type = "figure_caption"
)

// ScalarKind tags the variant held by a Scalar.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindInt
	KindFloat
	KindBool
)

// Scalar is a tagged value for element metadata fields. It replaces an
// untyped map value so term synthesis and range parsing can switch on the
// kind exhaustively.
type Scalar struct {
	Kind  ScalarKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// String builds a string Scalar.
func String(v string) Scalar { return Scalar{Kind: KindString, Str: v} }

// Int builds an integer Scalar.
func Int(v int64) Scalar { return Scalar{Kind: KindInt, Int: v} }

// Float builds a float Scalar.
func Float(v float64) Scalar { return Scalar{Kind: KindFloat, Float: v} }

// Bool builds a boolean Scalar.
func Bool(v bool) Scalar { return Scalar{Kind: KindBool, Bool: v} }

// Term returns the value in its canonical term form, as indexed in
// synthetic key:value terms.
func (s Scalar) Term() string {
	switch s.Kind {
	case KindInt:
		return strconv.FormatInt(s.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(s.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.Bool)
	default:
		return s.Str
	}
}

// MarshalJSON encodes the scalar as its bare JSON value.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindInt:
		return json.Marshal(s.Int)
	case KindFloat:
		return json.Marshal(s.Float)
	case KindBool:
		return json.Marshal(s.Bool)
	default:
		return json.Marshal(s.Str)
	}
}

// UnmarshalJSON decodes a bare JSON value into the matching scalar kind.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*s = String(val)
	case float64:
		if val == float64(int64(val)) {
			*s = Int(int64(val))
		} else {
			*s = Float(val)
		}
	case bool:
		*s = Bool(val)
	default:
		return fmt.Errorf("unsupported metadata value %q", string(data))
	}
	return nil
}

// Element is an immutable snapshot of a document element. Page 0 means the
// element carries no page number (pages are 1-based).
type Element struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Page       int               `json:"page,omitempty"`
	Languages  []string          `json:"languages,omitempty"`
	Metadata   map[string]Scalar `json:"metadata,omitempty"`
	Modified   time.Time         `json:"modified,omitempty"`
}

// Clone returns a deep copy. The index keeps derived copies only, never a
// live reference to a caller's element.
func (e Element) Clone() Element {
	out := e
	if e.Languages != nil {
		out.Languages = make([]string, len(e.Languages))
		copy(out.Languages, e.Languages)
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]Scalar, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
