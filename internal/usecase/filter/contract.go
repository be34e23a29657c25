package filter

import "context"

// AirlineResolver maps an airline name to its IATA code, or "" when nothing matches.
type AirlineResolver interface {
	Lookup(ctx context.Context, name string) (string, error)
}
