package heartbeat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/config"
	"tally/internal/heartbeat"
	"tally/internal/store"
	"tally/internal/testsupport"
)

const testExecutable = "tally-test-daemon"

func newRegistry(t *testing.T) (*heartbeat.Registry, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	registry, err := heartbeat.NewRegistry(st, testExecutable, cfg.Heartbeat)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry, st
}

func TestLiveRequiresRegister(t *testing.T) {
	registry, _ := newRegistry(t)
	handler := heartbeat.NewHandler(registry, nil)

	if _, _, _, err := handler.Live(context.Background()); !errors.Is(err, heartbeat.ErrNotRegistered) {
		t.Fatalf("Live error = %v, want ErrNotRegistered", err)
	}
}

func TestSingleWorkerOwnsWholeFleet(t *testing.T) {
	registry, _ := newRegistry(t)
	ctx := context.Background()

	handler := heartbeat.NewHandler(registry, nil)
	if err := handler.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}

	workerNumber, totalWorkers, logger, err := handler.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if workerNumber != 0 || totalWorkers != 1 {
		t.Fatalf("assignment = (%d, %d), want (0, 1)", workerNumber, totalWorkers)
	}
	if logger == nil {
		t.Fatal("Live returned nil logger")
	}
}

func TestRanksFollowWorkerOrdering(t *testing.T) {
	registry, _ := newRegistry(t)
	ctx := context.Background()

	first := heartbeat.NewHandler(registry, nil)
	second := heartbeat.NewHandler(registry, nil)
	for _, h := range []*heartbeat.Handler{first, second} {
		if err := h.Register(ctx); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	firstRank, firstTotal, _, err := first.Live(ctx)
	if err != nil {
		t.Fatalf("Live first: %v", err)
	}
	secondRank, secondTotal, _, err := second.Live(ctx)
	if err != nil {
		t.Fatalf("Live second: %v", err)
	}

	if firstTotal != 2 || secondTotal != 2 {
		t.Fatalf("totals = (%d, %d), want (2, 2)", firstTotal, secondTotal)
	}
	if firstRank == secondRank {
		t.Fatalf("both handlers got rank %d", firstRank)
	}

	// Same hostname and pid, so rank order comes down to the worker id.
	wantFirst := 1
	if first.Worker() < second.Worker() {
		wantFirst = 0
	}
	if firstRank != wantFirst {
		t.Fatalf("first rank = %d, want %d", firstRank, wantFirst)
	}
}

func TestExpiredRowsExcludedFromFleet(t *testing.T) {
	registry, st := newRegistry(t)
	ctx := context.Background()

	stale := store.FormatTime(time.Now().Add(-2 * time.Hour))
	if _, err := st.DB().Exec(
		`INSERT INTO heartbeats (executable, hostname, pid, worker, updated_at)
         VALUES (?, 'dead-host', 12345, 'dead-worker', ?)`,
		testExecutable, stale,
	); err != nil {
		t.Fatalf("insert stale heartbeat: %v", err)
	}

	handler := heartbeat.NewHandler(registry, nil)
	if err := handler.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}

	workerNumber, totalWorkers, _, err := handler.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if workerNumber != 0 || totalWorkers != 1 {
		t.Fatalf("assignment = (%d, %d), want (0, 1) with stale row ignored", workerNumber, totalWorkers)
	}

	workers, err := registry.Workers(ctx)
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("live workers = %d, want 1", len(workers))
	}
	if workers[0].Worker == "dead-worker" {
		t.Fatal("stale row listed as live")
	}
}

func TestWorkersHonorConfiguredExpiry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHeartbeat(1, 2))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Three seconds old: dead under a 2 second expiry, alive under the
	// default window.
	aged := store.FormatTime(time.Now().Add(-3 * time.Second))
	if _, err := st.DB().Exec(
		`INSERT INTO heartbeats (executable, hostname, pid, worker, updated_at)
         VALUES (?, 'slow-host', 321, 'slow-worker', ?)`,
		testExecutable, aged,
	); err != nil {
		t.Fatalf("insert heartbeat: %v", err)
	}

	narrow, err := heartbeat.NewRegistry(st, testExecutable, cfg.Heartbeat)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	workers, err := narrow.Workers(ctx)
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if len(workers) != 0 {
		t.Fatalf("live workers = %d, want 0 under narrow expiry", len(workers))
	}

	wide, err := heartbeat.NewRegistry(st, testExecutable, config.Default().Heartbeat)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	workers, err = wide.Workers(ctx)
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("live workers = %d, want 1 under default expiry", len(workers))
	}
}

func TestDeregisterShrinksFleet(t *testing.T) {
	registry, _ := newRegistry(t)
	ctx := context.Background()

	first := heartbeat.NewHandler(registry, nil)
	second := heartbeat.NewHandler(registry, nil)
	for _, h := range []*heartbeat.Handler{first, second} {
		if err := h.Register(ctx); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if err := second.Deregister(ctx); err != nil {
		t.Fatalf("Deregister: %v", err)
	}

	workerNumber, totalWorkers, _, err := first.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if workerNumber != 0 || totalWorkers != 1 {
		t.Fatalf("assignment = (%d, %d), want (0, 1) after deregister", workerNumber, totalWorkers)
	}
}

func TestDeregisterUnregisteredIsNoop(t *testing.T) {
	registry, _ := newRegistry(t)
	handler := heartbeat.NewHandler(registry, nil)
	if err := handler.Deregister(context.Background()); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
}

func TestLiveRepublishesMissingRow(t *testing.T) {
	registry, st := newRegistry(t)
	ctx := context.Background()

	handler := heartbeat.NewHandler(registry, nil)
	if err := handler.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Simulate an external reap racing this worker between refresh and
	// ranking.
	if _, err := st.DB().Exec(
		`DELETE FROM heartbeats WHERE worker = ?`, handler.Worker(),
	); err != nil {
		t.Fatalf("delete heartbeat: %v", err)
	}

	workerNumber, totalWorkers, _, err := handler.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if workerNumber != 0 || totalWorkers != 1 {
		t.Fatalf("assignment = (%d, %d), want (0, 1) after republish", workerNumber, totalWorkers)
	}
}
