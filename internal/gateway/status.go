package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   int64    `json:"uptime_seconds"`
	InFlight int64    `json:"inflight"`
	Queued   int      `json:"queued"`
	Ledger   string   `json:"ledger_backend"`
	Sources  []string `json:"webhook_sources"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:  int64(time.Since(g.startedAt).Seconds()),
			Ledger:  LedgerDisabled,
			Sources: g.dispatcher.Sources(),
		}

		if g.stats != nil {
			resp.InFlight = g.stats.InFlight()
			resp.Queued = g.stats.Queued()
		}
		if g.ledger != nil {
			resp.Ledger = g.ledger.Backend()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
