package filter

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain/apifilter"
	"github.com/kailas-cloud/flightq/internal/domain/query"
	"github.com/kailas-cloud/flightq/internal/logger"
)

type fieldKind int

const (
	fieldUnknown fieldKind = iota
	fieldFlightType
	fieldAirline
)

// Field names as the adapters emit them. Arabic first; English aliases for the English adapters.
var fieldKinds = map[string]fieldKind{
	"نوع الرحلة":    fieldFlightType,
	"flight_type":   fieldFlightType,
	"flight type":   fieldFlightType,
	"شركة الطيران":  fieldAirline,
	"شركة طيران":    fieldAirline,
	"الخطوط الجوية": fieldAirline,
	"airline":       fieldAirline,
}

var stopsByValue = map[string]int{
	"مباشر":         apifilter.StopsDirect,
	"المباشر":       apifilter.StopsDirect,
	"مباشرة":        apifilter.StopsDirect,
	"المباشرة":      apifilter.StopsDirect,
	"direct":        apifilter.StopsDirect,
	"غير مباشر":     apifilter.StopsOneStop,
	"غير المباشر":   apifilter.StopsOneStop,
	"غير مباشرة":    apifilter.StopsOneStop,
	"غير المباشرة":  apifilter.StopsOneStop,
	"not direct":    apifilter.StopsOneStop,
	"indirect":      apifilter.StopsOneStop,
}

// Converter maps semantic filters onto the flight search API format.
type Converter struct {
	airlines AirlineResolver
	logger   *zap.Logger
}

// NewConverter creates a converter.
func NewConverter(airlines AirlineResolver, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{airlines: airlines, logger: log}
}

// Convert builds the API filter. Unknown fields and values are ignored; the last flight-type
// filter wins; airline names without a code are dropped. It does not fail.
func (c *Converter) Convert(ctx context.Context, filters []query.Filter) apifilter.Format {
	out := apifilter.New()
	log := logger.FromContextOr(ctx, c.logger)
	seen := make(map[string]bool)

	for _, f := range filters {
		switch fieldKinds[normalizeKey(f.Field)] {
		case fieldFlightType:
			for _, v := range f.Values() {
				if stops, ok := stopsByValue[normalizeKey(v)]; ok {
					out.SetStops(stops)
				}
			}
		case fieldAirline:
			for _, name := range f.Values() {
				code, err := c.airlines.Lookup(ctx, name)
				if err != nil {
					log.Warn("Airline lookup failed", zap.String("name", name), zap.Error(err))
					continue
				}
				if code == "" || seen[code] {
					continue
				}
				seen[code] = true
				out.AddAirline(code, name)
			}
		}
	}
	return out
}

// normalizeKey trims and lower-cases; Arabic is unaffected by case folding.
func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
