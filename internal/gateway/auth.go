package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// authorized reports whether r carries the operator credentials: the
// bearer token, or the basic user and password. Comparisons are constant
// time.
func (a AuthConfig) authorized(r *http.Request) bool {
	if a.BearerToken != "" {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && secretEqual(token, a.BearerToken) {
			return true
		}
	}
	if a.BasicUser != "" && a.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		// Evaluate both so a wrong user costs the same as a wrong password.
		userOK := secretEqual(user, a.BasicUser)
		passOK := secretEqual(pass, a.BasicPass)
		return ok && userOK && passOK
	}
	return false
}

// requireAuth guards the operator routes. Slack webhooks never pass
// through it; they are verified by signature instead.
func requireAuth(a AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.authorized(r) {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("Authorization") != "" {
				logger.Warn("gateway: rejected credentials", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			}
			if a.BasicUser != "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="slackapprove"`)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
