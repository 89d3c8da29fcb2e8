package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/slackapprove/pkg/interaction"
)

const (
	testBotToken      = "xoxb-1-2-abc"
	testAppToken      = "xapp-1-A1-abc"
	testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// signedHeaders returns the headers Slack would send for body at ts.
func signedHeaders(secret string, ts time.Time, body string) http.Header {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + stamp + ":" + body))

	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("X-Slack-Request-Timestamp", stamp)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

// fakeAPI is a minimal Slack Web API. Fail maps a method to the Slack error
// it answers with; RateLimit makes the first call to a method return 429.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	forms     map[string]url.Values
	bodies    map[string][]byte
	fail      map[string]string
	rateLimit map[string]bool
	socketURL string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:         t,
		calls:     make(map[string]int),
		forms:     make(map[string]url.Values),
		bodies:    make(map[string][]byte),
		fail:      make(map[string]string),
		rateLimit: make(map[string]bool),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// URL is the api_url to configure: it ends in a slash like Slack's.
func (f *fakeAPI) URL() string {
	return f.srv.URL + "/api/"
}

func (f *fakeAPI) setFail(method, slackErr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = slackErr
}

func (f *fakeAPI) setRateLimit(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimit[method] = true
}

func (f *fakeAPI) setSocketURL(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.socketURL = u
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) form(method string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[method]
}

func (f *fakeAPI) body(method string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method]
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))

	f.mu.Lock()
	f.calls[method]++
	f.forms[method] = form
	f.bodies[method] = body
	limited := f.rateLimit[method]
	delete(f.rateLimit, method)
	slackErr := f.fail[method]
	socketURL := f.socketURL
	f.mu.Unlock()

	if limited {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	if slackErr != "" {
		writeJSON(f.t, w, map[string]any{"ok": false, "error": slackErr})
		return
	}

	switch method {
	case methodAuthTest:
		writeJSON(f.t, w, map[string]any{"ok": true, "team": "acme", "user": "approvals", "user_id": "UBOT", "bot_id": "B1"})
	case methodViewsOpen:
		writeJSON(f.t, w, map[string]any{"ok": true, "view": map[string]any{"id": "V1"}})
	case methodPostMessage:
		writeJSON(f.t, w, map[string]any{"ok": true, "channel": "D" + form.Get("channel"), "ts": "1700000000.000100"})
	case methodUpdate:
		writeJSON(f.t, w, map[string]any{"ok": true, "channel": form.Get("channel"), "ts": form.Get("ts"), "text": form.Get("text")})
	case "apps.connections.open":
		writeJSON(f.t, w, map[string]any{"ok": true, "url": socketURL})
	default:
		f.t.Logf("unexpected API call: %s", method)
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// inboxRecorder collects interactions pushed to the inbox.
type inboxRecorder struct {
	mu   sync.Mutex
	seen []interaction.Interaction
	ch   chan interaction.Interaction
	err  error
}

func newInboxRecorder() *inboxRecorder {
	return &inboxRecorder{ch: make(chan interaction.Interaction, 16)}
}

func (r *inboxRecorder) submit(in interaction.Interaction) error {
	r.mu.Lock()
	r.seen = append(r.seen, in)
	err := r.err
	r.mu.Unlock()
	r.ch <- in
	return err
}

func (r *inboxRecorder) wait(t *testing.T) interaction.Interaction {
	t.Helper()
	select {
	case in := <-r.ch:
		return in
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an interaction")
		return interaction.Interaction{}
	}
}

func (r *inboxRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

const viewSubmissionPayload = `{
  "type": "view_submission",
  "trigger_id": "T-view",
  "user": {"id": "U1"},
  "view": {
    "id": "V1",
    "callback_id": "approval_modal",
    "state": {"values": {
      "approver_block": {"approver_select": {"type": "users_select", "selected_user": "U2"}},
      "request_block": {"request_input": {"type": "plain_text_input", "value": "Deploy v2 to prod"}}
    }}
  }
}`

const blockActionPayload = `{
  "type": "block_actions",
  "trigger_id": "T-action",
  "user": {"id": "U2"},
  "container": {"type": "message", "channel_id": "D2", "message_ts": "1700000000.000100"},
  "channel": {"id": "D2"},
  "message": {"ts": "1700000000.000100"},
  "actions": [{"type": "button", "block_id": "approval_actions", "action_id": "approve_request", "value": "{\"requesterId\":\"U1\",\"requestText\":\"Deploy\"}"}]
}`
