package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
)

// Metrics records request counts and latency labelled with the matched chi route.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			m.Start()
			defer func() {
				m.Observe(r.Method, matchedRoute(r), rec.code(), time.Since(start))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// matchedRoute is read after the handler ran, when chi has filled in the pattern.
func matchedRoute(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
