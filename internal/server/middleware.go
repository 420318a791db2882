package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PKCanCode/SoundM8/internal/auth"
	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/charmbracelet/log"
)

// unexported, collision-proof context keys
type accessTokenKeyType struct{}
type sessionIDKeyType struct{}

var (
	accessTokenKey = accessTokenKeyType{}
	sessionIDKey   = sessionIDKeyType{}
)

// AccessTokenFromContext extracts the Spotify access token attached by [RequireSession].
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok
}

// SessionIDFromContext extracts the session id attached by [RequireSession].
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// BearerSessionID extracts the opaque session id from the Authorization header.
func BearerSessionID(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// CORS returns middleware allowing cross-origin requests from the configured
// client origin, answering preflight requests directly.
func CORS(clientURL string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", clientURL)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger returns middleware logging each request with a correlation id,
// method, path, status, and duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := shared.GenerateID()

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
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

// RequireSession wraps a handler with the auth guard. On success the request
// context carries the session id and a live access token; otherwise the
// request short-circuits with 401.
func RequireSession(gateway *auth.Gateway) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := BearerSessionID(r)

			token, err := gateway.Guard(r.Context(), sessionID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, guardMessage(err))
				return
			}

			ctx := context.WithValue(r.Context(), accessTokenKey, token)
			ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
