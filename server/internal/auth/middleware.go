package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/chickenjockey/sitestatus/server/internal/config"
)

// Middleware wraps an http.Handler with an authentication check.
type Middleware func(http.Handler) http.Handler

// FromConfig returns the middleware selected by cfg.Mode. Secrets are
// resolved from the environment once, at construction.
func FromConfig(cfg config.AuthConfig) Middleware {
	switch cfg.Mode {
	case "apikey":
		return APIKey(cfg.EffectiveHeader(), cfg.Key())
	case "basic":
		return Basic(cfg.Username, cfg.PasswordHash())
	default:
		return PassThrough
	}
}

// PassThrough performs no authentication.
func PassThrough(next http.Handler) http.Handler { return next }

// APIKey returns middleware that enforces API key authentication.
//
// Behaviour:
//   - If key == "", all requests are allowed (auth not configured).
//   - Otherwise the value of header is compared to key in constant time.
//   - A missing, empty, or incorrect key is answered with 401.
func APIKey(header, key string) Middleware {
	return func(next http.Handler) http.Handler {
		if key == "" {
			slog.Warn("auth: apikey mode without a key; ingest is open")
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Basic returns middleware that checks HTTP basic credentials against a
// username and a bcrypt hash of the password. An empty hash rejects every
// request.
func Basic(username, hash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="sitestatus"`)
				unauthorized(w, "missing credentials")
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil || !userOK {
				unauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
