package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/kailas-cloud/flightq/internal/domain/query"
)

const assistantMarker = "Assistant:"

// Failure reasons, used as metric labels.
const (
	reasonGeneration     = "generation_error"
	reasonRepair         = "repair_error"
	reasonDecode         = "decode_error"
	reasonUnexpectedType = "unexpected_shape"
)

// parseError carries the degradation reason of a completion that could not be normalized.
type parseError struct {
	reason string
	err    error
}

func (e *parseError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

var errUnexpectedShape = errors.New("completion is neither a result object nor a list")

// buildPrompt wraps the user text in the chat template the adapters were tuned on.
func buildPrompt(text string) string {
	return "User: " + text + "\n" + assistantMarker
}

// extractAnswer returns the text after the last assistant marker, trimmed and unfenced.
func extractAnswer(completion string) string {
	if i := strings.LastIndex(completion, assistantMarker); i >= 0 {
		completion = completion[i+len(assistantMarker):]
	}
	return stripFence(strings.TrimSpace(completion))
}

// stripFence removes a surrounding markdown code fence such as ```json ... ```.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string ("json")
		if info := strings.TrimSpace(s[:nl]); !strings.ContainsAny(info, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parse repairs, decodes and normalizes a raw answer.
func parse(raw string) (query.Result, error) {
	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return query.Result{}, &parseError{reason: reasonRepair, err: err}
	}

	var data any
	if err := json.Unmarshal([]byte(fixed), &data); err != nil {
		return query.Result{}, &parseError{reason: reasonDecode, err: err}
	}

	res, err := normalize(data)
	if err != nil {
		return query.Result{}, &parseError{reason: reasonUnexpectedType, err: err}
	}
	return res, nil
}

// normalize maps the decoded completion onto the canonical result.
//
// An object with both "filters" and "sort_by" keeps its entries, reduced to field/value and
// field/order; a malformed entry rejects the object. A list is flattened leniently: objects with
// "field" become sort specs, objects with "filters" contribute their object entries, and nested
// lists contribute objects carrying both "field" and "order" as sort specs.
func normalize(data any) (query.Result, error) {
	switch v := data.(type) {
	case map[string]any:
		rawFilters, hasFilters := v["filters"]
		rawSort, hasSort := v["sort_by"]
		if !hasFilters || !hasSort {
			return query.Result{}, errUnexpectedShape
		}
		filters, err := toFilters(rawFilters)
		if err != nil {
			return query.Result{}, fmt.Errorf("filters: %w", err)
		}
		sortBy, err := toSortSpecs(rawSort)
		if err != nil {
			return query.Result{}, fmt.Errorf("sort_by: %w", err)
		}
		return query.Result{Filters: filters, SortBy: sortBy}, nil

	case []any:
		res := query.Empty()
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				if _, ok := it["field"]; ok {
					res.SortBy = append(res.SortBy, toSortSpec(it))
					continue
				}
				if nested, ok := it["filters"]; ok {
					res.Filters = append(res.Filters, collectFilters(nested)...)
				}
			case []any:
				for _, sub := range it {
					obj, ok := sub.(map[string]any)
					if !ok {
						continue
					}
					_, hasField := obj["field"]
					_, hasOrder := obj["order"]
					if hasField && hasOrder {
						res.SortBy = append(res.SortBy, toSortSpec(obj))
					}
				}
			}
		}
		return res, nil
	}
	return query.Result{}, errUnexpectedShape
}

func toFilters(raw any) ([]query.Filter, error) {
	if raw == nil {
		return []query.Filter{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
	out := make([]query.Filter, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", item)
		}
		field, _ := obj["field"].(string)
		out = append(out, query.Filter{Field: field, Value: obj["value"]})
	}
	return out, nil
}

// collectFilters keeps the filter objects of a nested list and skips anything else.
func collectFilters(raw any) []query.Filter {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []query.Filter
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field, _ := obj["field"].(string)
		out = append(out, query.Filter{Field: field, Value: obj["value"]})
	}
	return out
}

func toSortSpecs(raw any) ([]query.SortSpec, error) {
	if raw == nil {
		return []query.SortSpec{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
	out := make([]query.SortSpec, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", item)
		}
		out = append(out, toSortSpec(obj))
	}
	return out, nil
}

func toSortSpec(obj map[string]any) query.SortSpec {
	field, _ := obj["field"].(string)
	order, _ := obj["order"].(string)
	return query.SortSpec{Field: field, Order: order}
}
