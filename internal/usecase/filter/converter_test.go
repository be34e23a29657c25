package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kailas-cloud/flightq/internal/domain/apifilter"
	"github.com/kailas-cloud/flightq/internal/domain/query"
)

type fakeResolver struct {
	codes map[string]string
	err   map[string]error
	calls []string
}

func (f *fakeResolver) Lookup(_ context.Context, name string) (string, error) {
	f.calls = append(f.calls, name)
	if err := f.err[name]; err != nil {
		return "", err
	}
	return f.codes[name], nil
}

func newResolver() *fakeResolver {
	return &fakeResolver{
		codes: map[string]string{
			"السعودية": "SV",
			"Saudia":   "SV",
			"طيران ناس": "XY",
			"Emirates": "EK",
		},
		err: map[string]error{},
	}
}

func TestConvert_Default(t *testing.T) {
	out := NewConverter(newResolver(), nil).Convert(context.Background(), nil)
	assert.Equal(t, apifilter.New(), out)
	assert.True(t, out.Unrestricted())
}

func TestConvert_FlightType(t *testing.T) {
	tests := []struct {
		name    string
		filters []query.Filter
		want    []int
	}{
		{"direct", []query.Filter{{Field: "نوع الرحلة", Value: "مباشر"}}, []int{0}},
		{"direct feminine", []query.Filter{{Field: "نوع الرحلة", Value: "المباشرة"}}, []int{0}},
		{"not direct", []query.Filter{{Field: "نوع الرحلة", Value: "غير مباشر"}}, []int{1}},
		{"not direct definite", []query.Filter{{Field: "نوع الرحلة", Value: "غير المباشرة"}}, []int{1}},
		{"english", []query.Filter{{Field: "flight_type", Value: "Direct"}}, []int{0}},
		{"english indirect", []query.Filter{{Field: "flight type", Value: "indirect"}}, []int{1}},
		{"padded", []query.Filter{{Field: "  نوع الرحلة ", Value: " مباشر "}}, []int{0}},
		{"unknown value", []query.Filter{{Field: "نوع الرحلة", Value: "سريع"}}, []int{}},
		{"last wins", []query.Filter{
			{Field: "نوع الرحلة", Value: "مباشر"},
			{Field: "نوع الرحلة", Value: "غير مباشر"},
		}, []int{1}},
		{"unknown value keeps earlier", []query.Filter{
			{Field: "نوع الرحلة", Value: "مباشر"},
			{Field: "نوع الرحلة", Value: "سريع"},
		}, []int{0}},
		{"non-string value", []query.Filter{{Field: "نوع الرحلة", Value: 3.0}}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewConverter(newResolver(), nil).Convert(context.Background(), tt.filters)
			assert.Equal(t, tt.want, out.Stops)
		})
	}
}

func TestConvert_Airlines(t *testing.T) {
	r := newResolver()
	out := NewConverter(r, nil).Convert(context.Background(), []query.Filter{
		{Field: "شركة الطيران", Value: "السعودية"},
		{Field: "airline", Value: []any{"Emirates", "Unknown Air"}},
		{Field: "الخطوط الجوية", Value: "طيران ناس"},
	})

	assert.Equal(t, []apifilter.Airline{
		{Code: "SV", Name: "السعودية"},
		{Code: "EK", Name: "Emirates"},
		{Code: "XY", Name: "طيران ناس"},
	}, out.Airlines)
	assert.Equal(t, []string{"السعودية", "Emirates", "Unknown Air", "طيران ناس"}, r.calls)
	assert.True(t, out.Unrestricted())
}

func TestConvert_AirlineDuplicatesCollapse(t *testing.T) {
	out := NewConverter(newResolver(), nil).Convert(context.Background(), []query.Filter{
		{Field: "شركة طيران", Value: "السعودية"},
		{Field: "airline", Value: "Saudia"},
	})
	assert.Equal(t, []apifilter.Airline{{Code: "SV", Name: "السعودية"}}, out.Airlines)
}

func TestConvert_AirlineLookupErrorIsSkipped(t *testing.T) {
	r := newResolver()
	r.err["Emirates"] = errors.New("embedding server down")

	out := NewConverter(r, nil).Convert(context.Background(), []query.Filter{
		{Field: "airline", Value: "Emirates"},
		{Field: "airline", Value: "Saudia"},
	})
	assert.Equal(t, []apifilter.Airline{{Code: "SV", Name: "Saudia"}}, out.Airlines)
}

func TestConvert_IgnoresUnknownFields(t *testing.T) {
	r := newResolver()
	out := NewConverter(r, nil).Convert(context.Background(), []query.Filter{
		{Field: "المدينة", Value: "الرياض"},
		{Field: "price", Value: "cheap"},
	})
	assert.Equal(t, apifilter.New(), out)
	assert.Empty(t, r.calls)
}

func TestConvert_Combined(t *testing.T) {
	out := NewConverter(newResolver(), nil).Convert(context.Background(), []query.Filter{
		{Field: "نوع الرحلة", Value: "مباشر"},
		{Field: "شركة الطيران", Value: "السعودية"},
	})
	assert.Equal(t, []int{0}, out.Stops)
	assert.Equal(t, []apifilter.Airline{{Code: "SV", Name: "السعودية"}}, out.Airlines)
}
