package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"clipshare/internal/logging"
)

// AuthConfig holds the static API credential. Token is compared in
// constant time; TokenHash is a bcrypt hash. A request passes if it matches
// either. With both empty the gate is open.
type AuthConfig struct {
	Token     string
	TokenHash string
}

// Enabled reports whether a credential is configured.
func (c AuthConfig) Enabled() bool {
	return c.Token != "" || c.TokenHash != ""
}

var publicPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
	"/version": true,
}

// Auth returns middleware that rejects requests without a valid
// Authorization header. Static uploads, health probes and token-bearing
// share streams are let through.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r) || config.valid(r.Header.Get("Authorization")) {
				next.ServeHTTP(w, r)
				return
			}

			logging.Debug("Rejected unauthenticated %s %s", r.Method, sanitizeLogField(r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			if err := json.NewEncoder(w).Encode(map[string]string{
				"error":   "Unauthorized",
				"message": "Invalid API Token",
			}); err != nil {
				logging.Error("failed to encode JSON response: %v", err)
			}
		})
	}
}

func (c AuthConfig) valid(header string) bool {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return false
	}

	if c.Token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(c.Token)) == 1 {
		return true
	}
	if c.TokenHash != "" && bcrypt.CompareHashAndPassword([]byte(c.TokenHash), []byte(token)) == nil {
		return true
	}
	return false
}

func isExempt(r *http.Request) bool {
	path := r.URL.Path
	if publicPaths[path] || strings.HasPrefix(path, "/uploads/") {
		return true
	}
	return isShareStream(r)
}

// isShareStream matches GET /video/{id}/share?token=... without an expiry
// parameter. Issuing a link always needs the credential.
func isShareStream(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/video/")
	if !ok {
		return false
	}
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" || tail != "share" {
		return false
	}
	q := r.URL.Query()
	return q.Get("token") != "" && !q.Has("expiry")
}
