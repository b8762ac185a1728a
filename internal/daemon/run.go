package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tally/internal/heartbeat"
	"tally/internal/logging"
	"tally/internal/store"
)

// joinPollInterval is the slice length of the driver's bounded wait. The
// driver re-checks loop completion at this cadence instead of blocking on an
// unbounded join.
const joinPollInterval = 500 * time.Millisecond

// Options configures a Run invocation.
type Options struct {
	// Once runs a single cycle in the calling goroutine and returns.
	// Threads is ignored in this mode.
	Once bool
	// Threads is the number of identical loops to launch.
	Threads int
	// SleepTime is the inter-cycle pause after a drained partition.
	SleepTime time.Duration
	// PartitionWait is the fleet-settle pause at loop start.
	PartitionWait time.Duration
}

// Run is the concurrency driver: it verifies the schema precondition, then
// executes one loop synchronously (Once) or launches Threads identical loops
// and joins them with an interruptible bounded-poll wait. stop is the shared
// cooperative stop flag; the surrounding executable wires it to OS signals.
//
// A loop that dies on a cycle error terminates alone; the remaining loops
// keep running and the error is reported once all loops have exited.
func Run(ctx context.Context, st *store.Store, registry *heartbeat.Registry, cycle CycleFunc, stop *StopSignal, logger *slog.Logger, opts Options) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	stale, err := st.SchemaStale(ctx)
	if err != nil {
		return fmt.Errorf("schema precondition: %w", err)
	}
	if stale {
		return fmt.Errorf("schema precondition: %w", store.ErrSchemaMismatch)
	}

	if opts.Once {
		logger.Info("executing one iteration only")
		loop := NewLoop(st, registry, cycle, logger, opts.SleepTime, opts.PartitionWait)
		return loop.Run(ctx, stop, true)
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = 1
	}
	logger.Info("starting loops", logging.Int("threads", threads))

	var wg sync.WaitGroup
	errs := make([]error, threads)
	for i := 0; i < threads; i++ {
		loop := NewLoop(st, registry, cycle, logger, opts.SleepTime, opts.PartitionWait)
		wg.Add(1)
		go func(i int, loop *Loop) {
			defer wg.Done()
			errs[i] = loop.Run(ctx, stop, false)
		}(i, loop)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	logger.Info("waiting for interrupts")
	ticker := time.NewTicker(joinPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return errors.Join(errs...)
		case <-ticker.C:
			// Bounded slice; loops observe the stop signal themselves, the
			// driver only needs to wake often enough to notice completion.
		}
	}
}
