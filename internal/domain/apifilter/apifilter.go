// Package apifilter holds the filter structure consumed by the flight search API.
package apifilter

import (
	"encoding/json"
	"slices"
)

// Stop counts understood by the search API.
const (
	StopsDirect  = 0
	StopsOneStop = 1
)

// Airline is a resolved airline restriction.
type Airline struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Format is the API-ready filter. An empty Stops set means any number of stops.
type Format struct {
	Stops    []int     `json:"stops"`
	Airlines []Airline `json:"airlines"`
}

// New returns an unrestricted filter.
func New() Format {
	return Format{Stops: []int{}, Airlines: []Airline{}}
}

// SetStops replaces the allowed stop counts with a sorted, de-duplicated set.
func (f *Format) SetStops(stops ...int) {
	set := slices.Clone(stops)
	slices.Sort(set)
	f.Stops = slices.Compact(set)
	if f.Stops == nil {
		f.Stops = []int{}
	}
}

// AddAirline appends an airline restriction.
func (f *Format) AddAirline(code, name string) {
	f.Airlines = append(f.Airlines, Airline{Code: code, Name: name})
}

// Unrestricted reports whether no stop restriction applies.
func (f Format) Unrestricted() bool {
	return len(f.Stops) == 0
}

// MarshalJSON encodes nil lists as empty arrays.
func (f Format) MarshalJSON() ([]byte, error) {
	type plain Format
	p := plain(f)
	if p.Stops == nil {
		p.Stops = []int{}
	}
	if p.Airlines == nil {
		p.Airlines = []Airline{}
	}
	return json.Marshal(p)
}
