package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// AccessLog returns middleware that logs one line per request once the
// response has been written.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			hw := &hookWriter{ResponseWriter: w}
			next.ServeHTTP(hw, r)

			level := slog.LevelInfo
			if hw.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path, //nolint:gosec // logged, not interpreted
				"status", hw.Status(),
				"bytes", hw.bytes,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
