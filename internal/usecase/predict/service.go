package predict

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/flightq/internal/domain"
	"github.com/kailas-cloud/flightq/internal/domain/apifilter"
	"github.com/kailas-cloud/flightq/internal/domain/query"
)

const (
	// DefaultAdapter serves requests that name no adapter.
	DefaultAdapter = "default"
	// AirlineCodeAdapter routes a request to the airline code retriever instead of the model.
	AirlineCodeAdapter = "airline_code"
)

// AirlineCode is the answer of the airline_code route.
type AirlineCode struct {
	Query       string  `json:"query"`
	AirlineCode string  `json:"airline_code"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
}

// Service orchestrates adapter loading, generation and conversion.
type Service struct {
	loader    Loader
	generator Generator
	converter Converter
	retriever Retriever
}

// New creates a prediction service.
func New(loader Loader, generator Generator, converter Converter, retriever Retriever) *Service {
	return &Service{
		loader:    loader,
		generator: generator,
		converter: converter,
		retriever: retriever,
	}
}

// Predict parses text with the named adapter.
func (s *Service) Predict(ctx context.Context, text, adapter string) (query.Result, error) {
	if strings.TrimSpace(text) == "" {
		return query.Result{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}
	if adapter == "" {
		adapter = DefaultAdapter
	}

	h, err := s.loader.Get(ctx, adapter)
	if err != nil {
		return query.Result{}, fmt.Errorf("get adapter: %w", err)
	}
	defer s.loader.Release(h)
	return s.generator.Generate(ctx, h, text, 0), nil
}

// PredictAirlineCode resolves text to an airline code with the retriever's defaults.
// A miss returns an empty code, not an error.
func (s *Service) PredictAirlineCode(ctx context.Context, text string) (AirlineCode, error) {
	if strings.TrimSpace(text) == "" {
		return AirlineCode{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}

	opts := s.retriever.Defaults()
	m, err := s.retriever.Retrieve(ctx, text, opts.TopK, opts.Threshold)
	if err != nil {
		return AirlineCode{}, fmt.Errorf("retrieve airline: %w", err)
	}
	return AirlineCode{Query: text, AirlineCode: m.Code, Name: m.Name, Score: m.Score}, nil
}

// PredictFilter parses text and converts the filters to the API format.
func (s *Service) PredictFilter(ctx context.Context, text, adapter string) (apifilter.Format, error) {
	res, err := s.Predict(ctx, text, adapter)
	if err != nil {
		return apifilter.Format{}, err
	}
	return s.converter.Convert(ctx, res.Filters), nil
}
