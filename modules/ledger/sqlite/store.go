package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/slackapprove/internal/ledger"
)

// Store is a ledger.Store backed by a SQLite table. Decisions survive
// restarts and are shared by processes using the same file.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func newStore(db *sql.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// claimSQL inserts a decision, or replaces one that has expired. A live
// row is left untouched and the statement affects zero rows.
const claimSQL = `INSERT INTO decisions (key, status, decided_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	status     = excluded.status,
	decided_at = excluded.decided_at,
	expires_at = excluded.expires_at
WHERE decisions.expires_at <= excluded.decided_at`

// Claim implements workflow.Ledger.
func (s *Store) Claim(ctx context.Context, key, status string) (string, bool, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("sqlite: begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, claimSQL, key, status, now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return "", false, fmt.Errorf("sqlite: claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("sqlite: claim rows: %w", err)
	}
	if n > 0 {
		if err := tx.Commit(); err != nil {
			return "", false, fmt.Errorf("sqlite: commit claim: %w", err)
		}
		return status, true, nil
	}

	var recorded string
	if err := tx.QueryRowContext(ctx, "SELECT status FROM decisions WHERE key = ?", key).Scan(&recorded); err != nil {
		return "", false, fmt.Errorf("sqlite: read decision: %w", err)
	}
	return recorded, false, nil
}

// Backend implements ledger.Store.
func (s *Store) Backend() string { return "sqlite" }

// Ping implements ledger.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Prune implements ledger.Store.
func (s *Store) Prune(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM decisions WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune rows: %w", err)
	}
	return int(n), nil
}

// Close implements ledger.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
