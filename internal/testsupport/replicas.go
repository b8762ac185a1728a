package testsupport

import (
	"context"
	"testing"

	"tally/internal/replica"
)

// FileSpec describes one file replica to seed beneath an aggregate.
type FileSpec struct {
	Name      string
	Bytes     int64
	Available bool
}

// SeedReplica creates an aggregate row with the given files attached. Each
// AddFile call leaves a dirty marker behind, so the returned replica starts
// out pending reconciliation.
func SeedReplica(t testing.TB, source *replica.Source, collection, storeName string, files ...FileSpec) int64 {
	t.Helper()

	ctx := context.Background()
	id, err := source.CreateReplica(ctx, collection, storeName)
	if err != nil {
		t.Fatalf("CreateReplica: %v", err)
	}
	for _, f := range files {
		if err := source.AddFile(ctx, id, f.Name, f.Bytes, f.Available); err != nil {
			t.Fatalf("AddFile %s: %v", f.Name, err)
		}
	}
	return id
}
