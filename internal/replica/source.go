package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/store"
)

// Source reads and writes the dirty-marker log and the aggregate rows.
type Source struct {
	store *store.Store
}

// NewSource wraps the shared store.
func NewSource(st *store.Store) *Source {
	return &Source{store: st}
}

// Fetch returns up to limit dirty replicas owned by workerNumber out of
// totalWorkers, oldest marker first. Ownership is replica id modulo
// totalWorkers, so for a fixed fleet size the per-worker result sets are
// disjoint and their union covers every dirty replica. Orphan markers whose
// aggregate row no longer exists are deleted on the way in, mirroring how
// the backlog would otherwise accumulate rows nothing can ever drain.
// A limit <= 0 fetches the whole partition.
func (s *Source) Fetch(ctx context.Context, totalWorkers, workerNumber, limit int) ([]Update, error) {
	if totalWorkers <= 0 {
		return nil, fmt.Errorf("total workers must be positive, got %d", totalWorkers)
	}
	if workerNumber < 0 || workerNumber >= totalWorkers {
		return nil, fmt.Errorf("worker number %d out of range [0, %d)", workerNumber, totalWorkers)
	}

	if _, err := s.store.DB().ExecContext(ctx,
		`DELETE FROM replica_updates
         WHERE replica_id NOT IN (SELECT id FROM collection_replicas)`,
	); err != nil {
		return nil, fmt.Errorf("clean orphan markers: %w", err)
	}

	query := `SELECT cr.id, cr.collection, cr.store_name
        FROM collection_replicas cr
        WHERE cr.id IN (SELECT replica_id FROM replica_updates)
          AND cr.id % ? = ?
        ORDER BY (SELECT MIN(created_at) FROM replica_updates ru WHERE ru.replica_id = cr.id)`
	args := []any{totalWorkers, workerNumber}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch dirty replicas: %w", err)
	}
	defer rows.Close()

	var updates []Update
	for rows.Next() {
		var upd Update
		if err := rows.Scan(&upd.ID, &upd.Collection, &upd.StoreName); err != nil {
			return nil, fmt.Errorf("scan dirty replica: %w", err)
		}
		updates = append(updates, upd)
	}
	return updates, rows.Err()
}

// MarkDirty appends a marker for the replica. Callers mutate file replicas
// first and mark afterwards; duplicate markers are fine.
func (s *Source) MarkDirty(ctx context.Context, replicaID int64) error {
	_, err := s.store.DB().ExecContext(ctx,
		`INSERT INTO replica_updates (replica_id, created_at) VALUES (?, ?)`,
		replicaID, store.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("mark replica dirty: %w", err)
	}
	return nil
}

// CreateReplica inserts an empty aggregate row for (collection, storeName).
func (s *Source) CreateReplica(ctx context.Context, collection, storeName string) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx,
		`INSERT INTO collection_replicas (collection, store_name, state) VALUES (?, ?, ?)`,
		collection, storeName, string(StateUnknown),
	)
	if err != nil {
		return 0, fmt.Errorf("insert replica: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// AddFile attaches a file replica row and marks the aggregate dirty.
func (s *Source) AddFile(ctx context.Context, replicaID int64, name string, bytes int64, available bool) error {
	availableInt := 0
	if available {
		availableInt = 1
	}
	if _, err := s.store.DB().ExecContext(ctx,
		`INSERT INTO file_replicas (replica_id, name, bytes, available) VALUES (?, ?, ?, ?)`,
		replicaID, name, bytes, availableInt,
	); err != nil {
		return fmt.Errorf("insert file replica: %w", err)
	}
	return s.MarkDirty(ctx, replicaID)
}

// SetFileAvailability flips one file replica's availability and marks its
// aggregate dirty.
func (s *Source) SetFileAvailability(ctx context.Context, replicaID int64, name string, available bool) error {
	availableInt := 0
	if available {
		availableInt = 1
	}
	res, err := s.store.DB().ExecContext(ctx,
		`UPDATE file_replicas SET available = ? WHERE replica_id = ? AND name = ?`,
		availableInt, replicaID, name,
	)
	if err != nil {
		return fmt.Errorf("update file replica: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("file replica %q not found for replica %d", name, replicaID)
	}
	return s.MarkDirty(ctx, replicaID)
}

// GetReplica fetches one aggregate row, or nil when absent.
func (s *Source) GetReplica(ctx context.Context, id int64) (*Replica, error) {
	row := s.store.DB().QueryRowContext(ctx,
		`SELECT `+replicaColumns+` FROM collection_replicas WHERE id = ?`, id)
	rep, err := scanReplica(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get replica: %w", err)
	}
	return rep, nil
}

// List returns all aggregate rows ordered by collection and store.
func (s *Source) List(ctx context.Context) ([]*Replica, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT `+replicaColumns+` FROM collection_replicas ORDER BY collection, store_name`)
	if err != nil {
		return nil, fmt.Errorf("list replicas: %w", err)
	}
	defer rows.Close()

	var replicas []*Replica
	for rows.Next() {
		rep, err := scanReplica(rows)
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, rep)
	}
	return replicas, rows.Err()
}

// Stats aggregates backlog and fleet-facing numbers for the status CLI.
func (s *Source) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.store.DB().QueryRowContext(ctx, `SELECT COUNT(1) FROM replica_updates`)
	if err := row.Scan(&stats.PendingMarkers); err != nil {
		return Stats{}, fmt.Errorf("count markers: %w", err)
	}
	row = s.store.DB().QueryRowContext(ctx, `SELECT COUNT(DISTINCT replica_id) FROM replica_updates`)
	if err := row.Scan(&stats.DirtyReplicas); err != nil {
		return Stats{}, fmt.Errorf("count dirty replicas: %w", err)
	}
	row = s.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(bytes), 0), COALESCE(SUM(available_bytes), 0) FROM collection_replicas`)
	if err := row.Scan(&stats.TotalReplicas, &stats.TotalBytes, &stats.AvailableBytes); err != nil {
		return Stats{}, fmt.Errorf("replica totals: %w", err)
	}
	return stats, nil
}

const replicaColumns = "id, collection, store_name, state, file_count, bytes, available_files, available_bytes, updated_at"

func scanReplica(scanner interface{ Scan(dest ...any) error }) (*Replica, error) {
	var (
		rep        Replica
		stateStr   string
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rep.ID,
		&rep.Collection,
		&rep.StoreName,
		&stateStr,
		&rep.FileCount,
		&rep.Bytes,
		&rep.AvailableFiles,
		&rep.AvailableBytes,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	rep.State = State(stateStr)
	if updatedRaw.Valid {
		if updated, err := store.ParseTime(updatedRaw.String); err == nil {
			rep.UpdatedAt = updated
		}
	}
	return &rep, nil
}
