package replica_test

import (
	"context"
	"testing"

	"tally/internal/replica"
	"tally/internal/store"
	"tally/internal/testsupport"
)

func newApplier(t *testing.T) (*replica.Source, *replica.Applier, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return replica.NewSource(st), replica.NewApplier(st), st
}

func markerCount(t *testing.T, st *store.Store, replicaID int64) int {
	t.Helper()
	var count int
	if err := st.DB().QueryRow(
		`SELECT COUNT(1) FROM replica_updates WHERE replica_id = ?`, replicaID).Scan(&count); err != nil {
		t.Fatalf("count markers: %v", err)
	}
	return count
}

func TestApplyDerivesState(t *testing.T) {
	cases := []struct {
		name      string
		files     []testsupport.FileSpec
		state     replica.State
		bytes     int64
		available int64
	}{
		{
			name:  "no files",
			state: replica.StateUnknown,
		},
		{
			name: "all available",
			files: []testsupport.FileSpec{
				{Name: "a", Bytes: 10, Available: true},
				{Name: "b", Bytes: 20, Available: true},
			},
			state:     replica.StateAvailable,
			bytes:     30,
			available: 30,
		},
		{
			name: "none available",
			files: []testsupport.FileSpec{
				{Name: "a", Bytes: 10, Available: false},
				{Name: "b", Bytes: 20, Available: false},
			},
			state: replica.StateUnavailable,
			bytes: 30,
		},
		{
			name: "mixed",
			files: []testsupport.FileSpec{
				{Name: "a", Bytes: 10, Available: true},
				{Name: "b", Bytes: 20, Available: false},
			},
			state:     replica.StatePartial,
			bytes:     30,
			available: 10,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source, applier, _ := newApplier(t)
			ctx := context.Background()

			id := testsupport.SeedReplica(t, source, "collection", "store", tc.files...)
			if err := applier.Apply(ctx, replica.Update{ID: id}); err != nil {
				t.Fatalf("Apply: %v", err)
			}

			rep, err := source.GetReplica(ctx, id)
			if err != nil {
				t.Fatalf("GetReplica: %v", err)
			}
			if rep == nil {
				t.Fatal("replica vanished")
			}
			if rep.State != tc.state {
				t.Fatalf("state = %s, want %s", rep.State, tc.state)
			}
			if rep.FileCount != int64(len(tc.files)) {
				t.Fatalf("file count = %d, want %d", rep.FileCount, len(tc.files))
			}
			if rep.Bytes != tc.bytes {
				t.Fatalf("bytes = %d, want %d", rep.Bytes, tc.bytes)
			}
			if rep.AvailableBytes != tc.available {
				t.Fatalf("available bytes = %d, want %d", rep.AvailableBytes, tc.available)
			}
		})
	}
}

func TestApplyClearsAllMarkers(t *testing.T) {
	source, applier, st := newApplier(t)
	ctx := context.Background()

	id := testsupport.SeedReplica(t, source, "c", "s",
		testsupport.FileSpec{Name: "a", Bytes: 1, Available: true})
	if err := source.MarkDirty(ctx, id); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	if err := source.MarkDirty(ctx, id); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	if got := markerCount(t, st, id); got != 3 {
		t.Fatalf("markers before apply = %d, want 3", got)
	}

	if err := applier.Apply(ctx, replica.Update{ID: id}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := markerCount(t, st, id); got != 0 {
		t.Fatalf("markers after apply = %d, want 0", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	source, applier, st := newApplier(t)
	ctx := context.Background()

	id := testsupport.SeedReplica(t, source, "c", "s",
		testsupport.FileSpec{Name: "a", Bytes: 7, Available: true},
		testsupport.FileSpec{Name: "b", Bytes: 3, Available: false})

	if err := applier.Apply(ctx, replica.Update{ID: id}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	first, err := source.GetReplica(ctx, id)
	if err != nil {
		t.Fatalf("GetReplica: %v", err)
	}

	// Re-applying the same update recomputes the same numbers and deletes
	// nothing it should not.
	if err := applier.Apply(ctx, replica.Update{ID: id}); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	second, err := source.GetReplica(ctx, id)
	if err != nil {
		t.Fatalf("GetReplica: %v", err)
	}

	if first.State != second.State || first.FileCount != second.FileCount ||
		first.Bytes != second.Bytes || first.AvailableFiles != second.AvailableFiles ||
		first.AvailableBytes != second.AvailableBytes {
		t.Fatalf("second apply changed aggregates: %+v vs %+v", first, second)
	}
	if got := markerCount(t, st, id); got != 0 {
		t.Fatalf("markers = %d, want 0", got)
	}
}

func TestApplyMissingReplicaClearsMarkers(t *testing.T) {
	source, applier, st := newApplier(t)
	ctx := context.Background()

	if err := source.MarkDirty(ctx, 4242); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	if err := applier.Apply(ctx, replica.Update{ID: 4242}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := markerCount(t, st, 4242); got != 0 {
		t.Fatalf("markers = %d, want 0", got)
	}
}
