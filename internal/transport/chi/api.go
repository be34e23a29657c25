package chi

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeAdapterNotFound        ErrorCode = "adapter_not_found"
	ErrorCodeModelProviderError     ErrorCode = "model_provider_error"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PredictRequest is the body of /predict and /predict_filter.
type PredictRequest struct {
	Query    string `json:"query"`
	LoraName string `json:"lora_name,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// livenessMessage is served on GET /.
const livenessMessage = "Flight query service is running"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20
