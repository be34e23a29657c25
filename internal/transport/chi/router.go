package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers the API on r. Middleware must be attached to r beforehand.
func Routes(r chi.Router, s *Server) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/predict", s.Predict)
	r.Post("/predict_filter", s.PredictFilter)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}
