package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// statusRecorder captures the status code written by a downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging returns middleware that logs each request with a generated
// request id, the response status, and the handling duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"id", shared.GenerateID(),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// Guard returns middleware comparing the request's bearer credential against
// the configured shared secret. On mismatch, including an absent or
// malformed header, the request is rejected before any downstream call.
// The comparison is constant-time.
func Guard(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, prefix) {
				writeError(w, http.StatusUnauthorized, shared.ErrUnauthorized)
				return
			}

			presented := strings.TrimPrefix(header, prefix)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, shared.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns middleware applying a shared token bucket to every
// request passing through it. Requests over the limit receive 429.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
