package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "ops-token", BasicUser: "ops", BasicPass: "hunter2"}

	tests := []struct {
		name      string
		cfg       AuthConfig
		setup     func(r *http.Request)
		want      int
		challenge bool
	}{
		{"bearer ok", AuthConfig{BearerToken: "ops-token"}, bearer("ops-token"), http.StatusOK, false},
		{"bearer wrong", AuthConfig{BearerToken: "ops-token"}, bearer("guess"), http.StatusUnauthorized, false},
		{"bearer missing", AuthConfig{BearerToken: "ops-token"}, func(*http.Request) {}, http.StatusUnauthorized, false},
		{"bearer scheme case", AuthConfig{BearerToken: "ops-token"}, header("bearer ops-token"), http.StatusUnauthorized, false},
		{"basic ok", AuthConfig{BasicUser: "ops", BasicPass: "hunter2"}, basic("ops", "hunter2"), http.StatusOK, false},
		{"basic wrong pass", AuthConfig{BasicUser: "ops", BasicPass: "hunter2"}, basic("ops", "hunter3"), http.StatusUnauthorized, true},
		{"basic wrong user", AuthConfig{BasicUser: "ops", BasicPass: "hunter2"}, basic("root", "hunter2"), http.StatusUnauthorized, true},
		{"both accept bearer", both, bearer("ops-token"), http.StatusOK, false},
		{"both accept basic", both, basic("ops", "hunter2"), http.StatusOK, false},
		{"both reject", both, bearer("nope"), http.StatusUnauthorized, true},
		{"basic half configured", AuthConfig{BasicUser: "ops"}, basic("ops", ""), http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := requireAuth(tt.cfg, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if got := rr.Header().Get("WWW-Authenticate") != ""; got != tt.challenge {
				t.Errorf("WWW-Authenticate present = %v, want %v", got, tt.challenge)
			}
		})
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true},
		{"basic complete", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic user only", AuthConfig{BasicUser: "u"}, false},
		{"basic pass only", AuthConfig{BasicPass: "p"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsConfigured(); got != tt.want {
			t.Errorf("%s: IsConfigured() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func bearer(token string) func(*http.Request) {
	return header("Bearer " + token)
}

func header(v string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", v) }
}

func basic(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}
