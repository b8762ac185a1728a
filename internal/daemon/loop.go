package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"tally/internal/heartbeat"
	"tally/internal/logging"
	"tally/internal/store"
)

// State is a loop's position in its lifecycle. A loop moves
// STARTING -> POLLING <-> SLEEPING -> STOPPING -> STOPPED and never
// restarts itself.
type State int32

const (
	StateStarting State = iota
	StatePolling
	StateSleeping
	StateStopping
	StateStopped
)

// String returns the state's log label.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateSleeping:
		return "sleeping"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CycleFunc runs one polling cycle under the given liveness handler and stop
// signal. It reports whether the loop should sleep before the next cycle.
// Errors are fatal to the calling loop.
type CycleFunc func(ctx context.Context, hb *heartbeat.Handler, stop *StopSignal) (mustSleep bool, err error)

// Loop drives a CycleFunc until stopped. Each loop registers its own
// heartbeat identity, so N loops in one process count as N workers in the
// fleet.
type Loop struct {
	store         *store.Store
	registry      *heartbeat.Registry
	cycle         CycleFunc
	logger        *slog.Logger
	sleepTime     time.Duration
	partitionWait time.Duration

	state atomic.Int32
}

// NewLoop assembles a loop. The logger may be nil.
func NewLoop(st *store.Store, registry *heartbeat.Registry, cycle CycleFunc, logger *slog.Logger, sleepTime, partitionWait time.Duration) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		store:         st,
		registry:      registry,
		cycle:         cycle,
		logger:        logger,
		sleepTime:     sleepTime,
		partitionWait: partitionWait,
	}
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run executes cycles until the stop signal is set, or exactly one cycle
// when once is true. The loop deregisters its heartbeat on the way out, for
// errors included, so the fleet's worker count shrinks without waiting for
// expiry.
func (l *Loop) Run(ctx context.Context, stop *StopSignal, once bool) error {
	l.setState(StateStarting)

	if stale, err := l.store.SchemaStale(ctx); err != nil {
		l.setState(StateStopped)
		return err
	} else if stale {
		l.setState(StateStopped)
		return store.ErrSchemaMismatch
	}

	hb := heartbeat.NewHandler(l.registry, l.logger)
	if err := hb.Register(ctx); err != nil {
		l.setState(StateStopped)
		return err
	}
	defer l.deregister(hb)

	logger := l.logger.With(logging.String("worker", hb.Worker()))
	logger.Debug("loop starting", logging.Bool("once", once))

	// Let the rest of the fleet publish heartbeats before the first
	// partitioned fetch, otherwise a cold start briefly claims the whole
	// backlog as worker 0 of 1.
	if l.partitionWait > 0 {
		stop.Sleep(l.partitionWait)
	}

	for !stop.Stopped() {
		l.setState(StatePolling)
		mustSleep, err := l.cycle(ctx, hb, stop)
		if err != nil {
			l.setState(StateStopping)
			logger.Error("cycle failed, loop terminating", logging.Error(err))
			return err
		}
		if once {
			break
		}
		if mustSleep && !stop.Stopped() {
			l.setState(StateSleeping)
			stop.Sleep(l.sleepTime)
		}
	}

	l.setState(StateStopping)
	logger.Debug("loop stopping")
	return nil
}

// deregister removes the loop's heartbeat with a short deadline detached
// from the run context, which is often already canceled at this point.
func (l *Loop) deregister(hb *heartbeat.Handler) {
	defer l.setState(StateStopped)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hb.Deregister(ctx); err != nil {
		l.logger.Warn("heartbeat deregistration failed", logging.Error(err))
	}
}
