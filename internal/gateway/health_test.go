package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeStats struct {
	inflight int64
	queued   int
}

func (s fakeStats) InFlight() int64 { return s.inflight }
func (s fakeStats) Queued() int     { return s.queued }

type fakeLedger struct {
	err error
}

func (fakeLedger) Backend() string                { return "memory" }
func (l fakeLedger) Ping(_ context.Context) error { return l.err }

func getHealth(t *testing.T, g *Gateway) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	g.handleHealth().ServeHTTP(rr, req)

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rr.Code, resp
}

func TestHealth_AllHealthy(t *testing.T) {
	t.Parallel()

	g := &Gateway{
		logger: testLogger(),
		stats:  fakeStats{inflight: 2, queued: 5},
		ledger: fakeLedger{},
	}

	code, resp := getHealth(t, g)
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Status != "ok" || resp.Ledger != LedgerOK {
		t.Errorf("resp = %+v", resp)
	}
	if resp.InFlight != 2 || resp.Queued != 5 {
		t.Errorf("inflight=%d queued=%d, want 2/5", resp.InFlight, resp.Queued)
	}
}

func TestHealth_LedgerDown(t *testing.T) {
	t.Parallel()

	g := &Gateway{
		logger: testLogger(),
		ledger: fakeLedger{err: errors.New("connection refused")},
	}

	code, resp := getHealth(t, g)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Status != "degraded" || resp.Ledger != LedgerUnreachable {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealth_NoServices(t *testing.T) {
	t.Parallel()

	code, resp := getHealth(t, &Gateway{logger: testLogger()})
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Status != "ok" || resp.Ledger != LedgerDisabled {
		t.Errorf("resp = %+v", resp)
	}
}

func TestStatus_Report(t *testing.T) {
	t.Parallel()

	d := NewWebhookDispatcher(testLogger(), 0, nil)
	d.Register("slack", &mockWebhookHandler{}, nil)

	g := &Gateway{
		logger:     testLogger(),
		dispatcher: d,
		stats:      fakeStats{inflight: 1},
		ledger:     fakeLedger{},
		startedAt:  time.Now().Add(-5 * time.Minute),
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	g.handleStatus().ServeHTTP(rr, req)

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Uptime < 290 {
		t.Errorf("uptime = %d, expected >= 290", resp.Uptime)
	}
	if resp.Ledger != "memory" || resp.InFlight != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "slack" {
		t.Errorf("sources = %v", resp.Sources)
	}
}
