package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseWriter captures the status code and body size for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

// Logging is a middleware factory that writes one access log line per
// request. Health probes log at debug so they do not drown the info stream;
// 5xx responses log at warn.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case r.URL.Path == "/health":
				level = slog.LevelDebug
			case rw.statusCode >= http.StatusInternalServerError:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"status", rw.statusCode,
				"bytes", rw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
