package model

import "context"

// Backend is the inference server that serves the base model and hot-loads adapters.
type Backend interface {
	BaseModel() string
	CheckBaseModel(ctx context.Context) error
	LoadAdapter(ctx context.Context, name, path string) error
	UnloadAdapter(ctx context.Context, name string) error
}

// Handle names the model a completion request should target.
type Handle struct {
	// Adapter is the registry name the caller asked for.
	Adapter string
	// Model is the id the server knows: the adapter name, or the base model for pathless adapters.
	Model string
}
