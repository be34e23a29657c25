// Package query holds the structured form of a parsed free-text search query.
package query

import (
	"encoding/json"
	"strings"
)

// Filter is a single semantic field/value pair produced by the model.
// Value is usually a string but the model may emit a list of strings.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Values returns the trimmed, non-empty string values of the filter.
func (f Filter) Values() []string {
	switch v := f.Value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SortSpec orders search results by a field.
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// Result is the canonical output of query parsing.
type Result struct {
	Filters []Filter   `json:"filters"`
	SortBy  []SortSpec `json:"sort_by"`
}

// Empty returns a well-formed result with no filters and no sort specs.
func Empty() Result {
	return Result{Filters: []Filter{}, SortBy: []SortSpec{}}
}

// IsEmpty reports whether the result carries neither filters nor sort specs.
func (r Result) IsEmpty() bool {
	return len(r.Filters) == 0 && len(r.SortBy) == 0
}

// MarshalJSON encodes nil lists as empty arrays.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	p := plain(r)
	if p.Filters == nil {
		p.Filters = []Filter{}
	}
	if p.SortBy == nil {
		p.SortBy = []SortSpec{}
	}
	return json.Marshal(p)
}
