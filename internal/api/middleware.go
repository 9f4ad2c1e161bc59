package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyAuth guards a route group with the shared backend key. Clients send
// the key in X-API-Key or as a bearer token; a missing key is 401, a
// mismatched key is 403.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestAPIKey(r)
			if key == "" {
				respondError(w, http.StatusUnauthorized, "API key required (X-API-Key header or bearer token)")
				return
			}

			// Constant-time compare; the key is a shared secret.
			if subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				respondError(w, http.StatusForbidden, "API key not recognized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestAPIKey extracts the client's key, preferring the dedicated header
// over the Authorization form.
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
