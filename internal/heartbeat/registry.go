package heartbeat

import (
	"context"
	"fmt"
	"os"
	"time"

	"tally/internal/config"
	"tally/internal/store"
)

// Registry describes one process's view of the liveness table. Handlers
// created from the same Registry share executable, hostname, and pid but
// carry distinct worker identifiers.
type Registry struct {
	store      *store.Store
	executable string
	hostname   string
	pid        int
	interval   time.Duration
	expiry     time.Duration
}

// NewRegistry builds a registry for the named daemon role.
func NewRegistry(st *store.Store, executable string, cfg config.Heartbeat) (*Registry, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}
	return &Registry{
		store:      st,
		executable: executable,
		hostname:   hostname,
		pid:        os.Getpid(),
		interval:   time.Duration(cfg.IntervalSeconds) * time.Second,
		expiry:     time.Duration(cfg.ExpirySeconds) * time.Second,
	}, nil
}

// Executable returns the daemon role name heartbeats are grouped by.
func (r *Registry) Executable() string {
	return r.executable
}

// Workers lists the currently live workers for this registry's executable,
// ordered the same way partition ranks are assigned.
func (r *Registry) Workers(ctx context.Context) ([]Worker, error) {
	cutoff := store.FormatTime(time.Now().Add(-r.expiry))
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT hostname, pid, worker, updated_at FROM heartbeats
         WHERE executable = ? AND updated_at >= ?
         ORDER BY hostname, pid, worker`,
		r.executable, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list heartbeats: %w", err)
	}
	defer rows.Close()

	var workers []Worker
	for rows.Next() {
		var w Worker
		var updatedRaw string
		if err := rows.Scan(&w.Hostname, &w.PID, &w.Worker, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		if updated, err := store.ParseTime(updatedRaw); err == nil {
			w.UpdatedAt = updated
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// Worker is one live row in the registry.
type Worker struct {
	Hostname  string
	PID       int
	Worker    string
	UpdatedAt time.Time
}

func (r *Registry) reapExpired(ctx context.Context) error {
	cutoff := store.FormatTime(time.Now().Add(-r.expiry))
	_, err := r.store.DB().ExecContext(ctx,
		`DELETE FROM heartbeats WHERE executable = ? AND updated_at < ?`,
		r.executable, cutoff,
	)
	if err != nil {
		return fmt.Errorf("reap expired heartbeats: %w", err)
	}
	return nil
}

func (r *Registry) upsert(ctx context.Context, worker string) error {
	now := store.FormatTime(time.Now())
	_, err := r.store.DB().ExecContext(ctx,
		`INSERT INTO heartbeats (executable, hostname, pid, worker, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (executable, hostname, pid, worker) DO UPDATE SET updated_at = excluded.updated_at`,
		r.executable, r.hostname, r.pid, worker, now,
	)
	if err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	return nil
}

func (r *Registry) delete(ctx context.Context, worker string) error {
	_, err := r.store.DB().ExecContext(ctx,
		`DELETE FROM heartbeats WHERE executable = ? AND hostname = ? AND pid = ? AND worker = ?`,
		r.executable, r.hostname, r.pid, worker,
	)
	if err != nil {
		return fmt.Errorf("delete heartbeat: %w", err)
	}
	return nil
}
