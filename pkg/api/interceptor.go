package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/metrics"
)

// knownPaths bounds the path label on the request counter
var knownPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/livez":   true,
	"/metrics": true,
	"/slots":   true,
	"/events":  true,
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ReadOnly wraps the admin mux so that only GET and HEAD reach it.
// The admin listener exposes state; it never mutates it.
func ReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		if !isReadOnlyMethod(r.Method) {
			http.Error(rec, "write operations not allowed on the admin listener", http.StatusMethodNotAllowed)
		} else {
			next.ServeHTTP(rec, r)
		}

		path := r.URL.Path
		if !knownPaths[path] {
			path = "other"
		}
		metrics.AdminRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.code)).Inc()

		log.Logger.Debug().
			Str("component", "admin").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code).
			Dur("duration", time.Since(start)).
			Msg("admin request")
	})
}

// isReadOnlyMethod checks if an HTTP method is read-only
func isReadOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}
