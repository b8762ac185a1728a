package replica

import (
	"context"
	"fmt"
	"time"

	"tally/internal/store"
)

// Applier recomputes one aggregate row from its file replicas.
type Applier struct {
	store *store.Store
}

// NewApplier wraps the shared store.
func NewApplier(st *store.Store) *Applier {
	return &Applier{store: st}
}

// Apply recomputes the aggregate for upd and clears its dirty markers in one
// transaction. Idempotent: a second application recomputes the same numbers
// and deletes nothing. A vanished aggregate row is not an error; the markers
// are cleared and the update becomes a no-op.
func (a *Applier) Apply(ctx context.Context, upd Update) error {
	tx, err := a.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	row := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM collection_replicas WHERE id = ?`, upd.ID)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("check replica: %w", err)
	}

	if exists > 0 {
		var (
			fileCount      int64
			bytes          int64
			availableFiles int64
			availableBytes int64
		)
		row = tx.QueryRowContext(ctx,
			`SELECT COUNT(1),
                COALESCE(SUM(bytes), 0),
                COALESCE(SUM(available), 0),
                COALESCE(SUM(CASE WHEN available = 1 THEN bytes ELSE 0 END), 0)
             FROM file_replicas WHERE replica_id = ?`,
			upd.ID,
		)
		if err := row.Scan(&fileCount, &bytes, &availableFiles, &availableBytes); err != nil {
			return fmt.Errorf("aggregate file replicas: %w", err)
		}

		state := deriveState(fileCount, availableFiles)
		if _, err := tx.ExecContext(ctx,
			`UPDATE collection_replicas
             SET state = ?, file_count = ?, bytes = ?, available_files = ?,
                 available_bytes = ?, updated_at = ?
             WHERE id = ?`,
			string(state), fileCount, bytes, availableFiles, availableBytes,
			store.FormatTime(time.Now()), upd.ID,
		); err != nil {
			return fmt.Errorf("update replica %d: %w", upd.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM replica_updates WHERE replica_id = ?`, upd.ID,
	); err != nil {
		return fmt.Errorf("clear markers for replica %d: %w", upd.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

func deriveState(fileCount, availableFiles int64) State {
	switch {
	case fileCount == 0:
		return StateUnknown
	case availableFiles == fileCount:
		return StateAvailable
	case availableFiles == 0:
		return StateUnavailable
	default:
		return StatePartial
	}
}
