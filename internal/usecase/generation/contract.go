package generation

import "context"

// Completer runs a greedy text completion against a served model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}
