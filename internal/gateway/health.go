package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// Ledger health values.
const (
	LedgerDisabled    = "disabled"
	LedgerOK          = "ok"
	LedgerUnreachable = "unreachable"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	InFlight int64  `json:"inflight"`
	Queued   int    `json:"queued"`
	Ledger   string `json:"ledger"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 when healthy, 503 if the configured ledger does not answer.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Ledger: LedgerDisabled,
		}

		if g.stats != nil {
			resp.InFlight = g.stats.InFlight()
			resp.Queued = g.stats.Queued()
		}

		if g.ledger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			err := g.ledger.Ping(ctx)
			cancel()
			if err != nil {
				g.logger.Warn("health: ledger ping failed", "backend", g.ledger.Backend(), "error", err)
				resp.Status = "degraded"
				resp.Ledger = LedgerUnreachable
			} else {
				resp.Ledger = LedgerOK
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
