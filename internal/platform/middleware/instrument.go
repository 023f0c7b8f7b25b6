package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mrcreams/internal/platform/metrics"
)

// Instrument records per-endpoint latency. The chi route pattern is used as
// the label so cardinality stays bounded regardless of path parameters.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			endpoint := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					endpoint = pattern
				}
			}
			m.ObserveEndpointLatency(endpoint, time.Since(start).Seconds())
		})
	}
}
