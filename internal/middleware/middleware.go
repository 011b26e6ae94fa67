package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
)

// responseWriter captures the status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Config controls which requests the logging middleware reports.
type Config struct {
	LogBlobRequests bool
	LogHealthChecks bool
}

// DefaultConfig returns a sensible default configuration: blob payload
// requests are high-volume and skipped, health checks are logged.
func DefaultConfig() Config {
	return Config{
		LogBlobRequests: false,
		LogHealthChecks: true,
	}
}

// Logger logs requests and records HTTP metrics.
func Logger(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			path := metricPath(r.URL.Path)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())

			if !config.LogBlobRequests && strings.HasPrefix(r.URL.Path, "/blob/") {
				return
			}
			if !config.LogHealthChecks && isHealthCheck(r.URL.Path) {
				return
			}

			logging.Info("%s %s %d %dB %v", r.Method, r.URL.Path, rw.statusCode, rw.bytesWritten, duration)
		})
	}
}

// metricPath collapses high-cardinality paths to keep label sets bounded.
func metricPath(path string) string {
	if strings.HasPrefix(path, "/blob/") {
		return "/blob/{token}"
	}
	return path
}

func isHealthCheck(path string) bool {
	switch path {
	case "/health", "/healthz", "/livez", "/readyz":
		return true
	}
	return false
}
