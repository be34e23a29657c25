package generation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/flightq/internal/domain/query"
)

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"echoed prompt", "User: hi\nAssistant: {\"a\":1}", `{"a":1}`},
		{"last marker wins", "Assistant: x\nAssistant:  [1] ", "[1]"},
		{"no marker", "  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "Assistant: ```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1, 2]\n```", "[1, 2]"},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAnswer(tt.in))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "User: رحلة مباشرة\nAssistant:", buildPrompt("رحلة مباشرة"))
}

func TestParse_ObjectPassesThrough(t *testing.T) {
	res, err := parse(`{"filters": [{"field": "نوع الرحلة", "value": "مباشر"}], "sort_by": [{"field": "price", "order": "asc"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []query.Filter{{Field: "نوع الرحلة", Value: "مباشر"}}, res.Filters)
	assert.Equal(t, []query.SortSpec{{Field: "price", Order: "asc"}}, res.SortBy)
}

func TestParse_ObjectNullListsBecomeEmpty(t *testing.T) {
	res, err := parse(`{"filters": null, "sort_by": null}`)
	require.NoError(t, err)
	assert.NotNil(t, res.Filters)
	assert.NotNil(t, res.SortBy)
	assert.True(t, res.IsEmpty())
}

func TestParse_ListValueFilter(t *testing.T) {
	res, err := parse(`{"filters": [{"field": "airline", "value": ["Saudia", "Flynas"]}], "sort_by": []}`)
	require.NoError(t, err)
	require.Len(t, res.Filters, 1)
	assert.Equal(t, []string{"Saudia", "Flynas"}, res.Filters[0].Values())
}

func TestParse_ListFlattening(t *testing.T) {
	raw := `[
		{"filters": [{"field": "airline", "value": "Saudia"}, {"field": "نوع الرحلة", "value": "مباشر"}]},
		{"field": "price", "order": "asc"},
		[{"field": "duration", "order": "desc"}, {"field": "ignored"}, "noise"],
		"noise",
		{"other": 1}
	]`
	res, err := parse(raw)
	require.NoError(t, err)

	assert.Equal(t, []query.Filter{
		{Field: "airline", Value: "Saudia"},
		{Field: "نوع الرحلة", Value: "مباشر"},
	}, res.Filters)
	assert.Equal(t, []query.SortSpec{
		{Field: "price", Order: "asc"},
		{Field: "duration", Order: "desc"},
	}, res.SortBy)
}

func TestParse_FieldTakesPrecedenceOverFilters(t *testing.T) {
	res, err := parse(`[{"field": "price", "order": "asc", "filters": [{"field": "x", "value": "y"}]}]`)
	require.NoError(t, err)
	assert.Empty(t, res.Filters)
	assert.Equal(t, []query.SortSpec{{Field: "price", Order: "asc"}}, res.SortBy)
}

func TestParse_ListSkipsMalformedNestedFilters(t *testing.T) {
	res, err := parse(`[
		{"filters": ["direct", {"field": "airline", "value": "Saudia"}]},
		{"filters": "direct"},
		{"field": "price", "order": "asc"}
	]`)
	require.NoError(t, err)
	assert.Equal(t, []query.Filter{{Field: "airline", Value: "Saudia"}}, res.Filters)
	assert.Equal(t, []query.SortSpec{{Field: "price", Order: "asc"}}, res.SortBy)
}

func TestParse_ObjectDropsExtraKeys(t *testing.T) {
	res, err := parse(`{"filters": [{"field": "airline", "value": "Saudia", "confidence": 0.9}], "sort_by": [], "note": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, []query.Filter{{Field: "airline", Value: "Saudia"}}, res.Filters)
}

func TestParse_EmptyList(t *testing.T) {
	res, err := parse(`[]`)
	require.NoError(t, err)
	assert.Equal(t, query.Empty(), res)
}

func TestParse_Repairs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"trailing comma", `{"filters": [{"field": "airline", "value": "Saudia"},], "sort_by": []}`},
		{"truncated", `{"filters": [{"field": "airline", "value": "Saudia"}], "sort_by": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, []query.Filter{{Field: "airline", Value: "Saudia"}}, res.Filters)
		})
	}
}

func TestParse_UnexpectedShapes(t *testing.T) {
	for _, raw := range []string{
		`{"filters": []}`,
		`{"sort_by": []}`,
		`"just a string"`,
		`42`,
		`{"filters": "direct", "sort_by": []}`,
		`{"filters": ["direct"], "sort_by": []}`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := parse(raw)
			require.Error(t, err)
			var pe *parseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, reasonUnexpectedType, pe.reason)
		})
	}
}
