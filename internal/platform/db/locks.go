package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AdvisoryXactLock takes a transaction-scoped advisory lock keyed by an
// arbitrary string. The lock is released automatically at commit/rollback.
// Callers use it to serialise same-key critical sections such as per-account
// document numbering.
func AdvisoryXactLock(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("platform/db: advisory lock %q: %w", key, err)
	}
	return nil
}
