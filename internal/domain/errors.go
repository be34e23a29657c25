package domain

import "errors"

var (
	// ErrAdapterNotFound signals an adapter name missing from the registry.
	ErrAdapterNotFound = errors.New("adapter not found")
	// ErrModelProviderError signals a failure of the inference server.
	ErrModelProviderError = errors.New("model provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidRecord signals a dataset row that cannot become an airline record.
	ErrInvalidRecord = errors.New("invalid airline record")
	// ErrInvalidRequest signals a malformed prediction request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDatasetUnavailable signals a missing or unreadable airline dataset.
	ErrDatasetUnavailable = errors.New("airline dataset unavailable")
)
