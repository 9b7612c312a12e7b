// Package middleware provides HTTP middleware for the companion API.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ashureev/wellness-companion/internal/identity"
)

var allowedHeaders = strings.Join([]string{"Content-Type", identity.SessionHeaderName}, ", ")

// AllowedOrigins derives the CORS allow-list from the configured frontend
// URL. Development builds accept any origin.
func AllowedOrigins(frontendURL string, isDev bool) []string {
	if isDev || frontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(frontendURL, "/")}
}

// CORS returns middleware that handles CORS headers. Preflight requests are
// answered with 204 and never reach the router.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit := origin != "" && slices.Contains(allowedOrigins, origin)

			if origin != "" && (wildcard || explicit) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				h.Set("Access-Control-Allow-Headers", allowedHeaders)
				h.Add("Vary", "Origin")
				// Credentials only for explicit origins; echoing a wildcard
				// match with credentials enables CSRF.
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
