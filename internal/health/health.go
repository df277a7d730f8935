package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter serves the liveness probe. Anything beyond "the process is
// up" belongs to the deployment environment, not this endpoint.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
