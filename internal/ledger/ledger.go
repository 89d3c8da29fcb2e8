// Package ledger holds the decision ledger contract shared by the ledger
// backend modules, an in-memory store, and a metrics decorator.
//
// A ledger maps a decision surface fingerprint to the first terminal status
// applied to it. Entries expire after a TTL; an expired surface can be
// decided again.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/slackapprove/internal/workflow"
)

// ServiceName is the AppContext service key under which the configured
// ledger backend registers its Store.
const ServiceName = "workflow.ledger"

// DefaultTTL is how long a decision is remembered.
const DefaultTTL = 7 * 24 * time.Hour

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("ledger: store closed")

// Store is a decision ledger backend.
type Store interface {
	workflow.Ledger

	// Backend names the implementation ("memory", "redis", "sqlite").
	Backend() string

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Prune drops expired entries and reports how many were removed.
	// Backends with native expiry return 0.
	Prune(ctx context.Context) (int, error)

	Close() error
}

// Claim outcomes, used as metric labels.
const (
	OutcomeClaimed   = "claimed"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
)

// Outcome classifies the result of a Claim for status.
func Outcome(status, recorded string, claimed bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case claimed:
		return OutcomeClaimed
	case recorded == status:
		return OutcomeDuplicate
	default:
		return OutcomeConflict
	}
}
