package middleware

import (
	"net/http"
	"time"

	"github.com/josh-kwaku/splitledger/internal/metrics"
)

// Metrics records request counts and latency labelled by the matched route
// pattern. It must wrap the ServeMux directly so the pattern is set when the
// handler returns.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(r.Method, route, rec.status, time.Since(start).Seconds())
	})
}
