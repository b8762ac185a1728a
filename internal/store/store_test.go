package store_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"tally/internal/store"
	"tally/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	stale, err := st.SchemaStale(context.Background())
	if err != nil {
		t.Fatalf("SchemaStale: %v", err)
	}
	if stale {
		t.Fatal("fresh database reported stale")
	}

	for _, table := range []string{"collection_replicas", "file_replicas", "replica_updates", "heartbeats"} {
		var count int
		row := st.DB().QueryRow(
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("check table %s: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := first.DB().Exec(
		"INSERT INTO collection_replicas (collection, store_name, state) VALUES ('c', 's', 'UNKNOWN')",
	); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	var count int
	if err := second.DB().QueryRow("SELECT COUNT(1) FROM collection_replicas").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.DB().Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}

	stale, err := st.SchemaStale(context.Background())
	if err != nil {
		t.Fatalf("SchemaStale: %v", err)
	}
	if !stale {
		t.Fatal("expected stale after version bump")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("reopen error = %v, want ErrSchemaMismatch", err)
	}
}

func TestFormatTimeSortsChronologically(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}

	formatted := make([]string, len(times))
	for i, ts := range times {
		formatted[i] = store.FormatTime(ts)
	}
	if !sort.StringsAreSorted(formatted) {
		t.Fatalf("formatted timestamps not in chronological order: %v", formatted)
	}

	for i, ts := range times {
		parsed, err := store.ParseTime(formatted[i])
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", formatted[i], err)
		}
		if !parsed.Equal(ts) {
			t.Fatalf("round trip of %v gave %v", ts, parsed)
		}
	}
}

func TestMigrationsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	var count int
	row := st.DB().QueryRow(
		"SELECT COUNT(1) FROM schema_migrations WHERE version = '0001_replica_updates_created_at'")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("check migration: %v", err)
	}
	if count != 1 {
		t.Fatal("migration 0001 not recorded")
	}

	row = st.DB().QueryRow(
		"SELECT COUNT(1) FROM sqlite_master WHERE type='index' AND name='idx_replica_updates_created_at'")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("check index: %v", err)
	}
	if count != 1 {
		t.Fatal("migration index missing")
	}
}
