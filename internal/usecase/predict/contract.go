package predict

import (
	"context"

	"github.com/kailas-cloud/flightq/internal/domain/apifilter"
	"github.com/kailas-cloud/flightq/internal/domain/query"
	"github.com/kailas-cloud/flightq/internal/usecase/airline"
	"github.com/kailas-cloud/flightq/internal/usecase/model"
)

// Loader hands out adapter handles. Every handle from Get is given back with Release.
type Loader interface {
	Get(ctx context.Context, name string) (model.Handle, error)
	Release(h model.Handle)
}

// Generator turns text into a structured query on an adapter.
type Generator interface {
	Generate(ctx context.Context, h model.Handle, text string, maxNewTokens int) query.Result
}

// Converter maps semantic filters onto the API format.
type Converter interface {
	Convert(ctx context.Context, filters []query.Filter) apifilter.Format
}

// Retriever resolves airline names.
type Retriever interface {
	Retrieve(ctx context.Context, text string, topK int, threshold float64) (airline.Match, error)
	Defaults() airline.Options
}
