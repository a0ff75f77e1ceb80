package api

import (
	"net/http"
	"time"

	"github.com/ticket-arcade/raffle-indexer/internal/logger"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// RecoveryMiddleware converts panics into 500 responses.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, recovered)
					respondError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request with status and duration.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, recorder.status, time.Since(start))
		})
	}
}

// CORSMiddleware adds CORS headers for the allowed origins. A single "*"
// entry allows any origin.
func CORSMiddleware(allowedOrigins []string) Middleware {
	wildcard := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard && origin != "":
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			default:
				if _, ok := allowed[origin]; ok && origin != "" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			}

			if w.Header().Get("Access-Control-Allow-Origin") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
