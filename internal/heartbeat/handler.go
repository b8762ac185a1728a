package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tally/internal/logging"
)

// ErrNotRegistered is returned by Live before Register has run.
var ErrNotRegistered = errors.New("heartbeat handler not registered")

// Handler is one loop's presence in the registry. It is not safe for
// concurrent use; each loop owns exactly one handler.
type Handler struct {
	registry *Registry
	worker   string
	base     *slog.Logger

	registered bool
	lastBeat   time.Time

	// cached assignment so repeated Live calls within a batch reuse the
	// bound logger instead of rebuilding it per item
	workerNumber int
	totalWorkers int
	bound        *slog.Logger
}

// NewHandler creates an unregistered handler with a fresh worker identity.
func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		registry:     registry,
		worker:       uuid.NewString(),
		base:         logger,
		totalWorkers: -1,
	}
}

// Worker returns the handler's worker identifier.
func (h *Handler) Worker() string {
	return h.worker
}

// Register publishes the handler's first heartbeat.
func (h *Handler) Register(ctx context.Context) error {
	if err := h.registry.upsert(ctx, h.worker); err != nil {
		return err
	}
	h.registered = true
	h.lastBeat = time.Now()
	return nil
}

// Live refreshes this worker's liveness and returns its current partition
// assignment plus a logger bound to the worker identity. It is cheap enough
// to call once per processed item: the registry row is only rewritten when
// the configured interval has elapsed, but the assignment is re-derived from
// the live rows on every call so fleet resizes are picked up promptly.
func (h *Handler) Live(ctx context.Context) (workerNumber, totalWorkers int, logger *slog.Logger, err error) {
	if !h.registered {
		return 0, 0, nil, ErrNotRegistered
	}

	if time.Since(h.lastBeat) >= h.registry.interval {
		if err := h.registry.upsert(ctx, h.worker); err != nil {
			return 0, 0, nil, err
		}
		h.lastBeat = time.Now()
		if err := h.registry.reapExpired(ctx); err != nil {
			return 0, 0, nil, err
		}
	}

	workers, err := h.registry.Workers(ctx)
	if err != nil {
		return 0, 0, nil, err
	}

	rank := -1
	for i, w := range workers {
		if w.Worker == h.worker {
			rank = i
			break
		}
	}
	if rank < 0 {
		// Own row expired between refresh and ranking; republish and retry
		// once rather than handing out an assignment we do not hold.
		if err := h.registry.upsert(ctx, h.worker); err != nil {
			return 0, 0, nil, err
		}
		h.lastBeat = time.Now()
		workers, err = h.registry.Workers(ctx)
		if err != nil {
			return 0, 0, nil, err
		}
		for i, w := range workers {
			if w.Worker == h.worker {
				rank = i
				break
			}
		}
		if rank < 0 {
			return 0, 0, nil, fmt.Errorf("worker %s missing from live set after republish", h.worker)
		}
	}

	if rank != h.workerNumber || len(workers) != h.totalWorkers || h.bound == nil {
		h.workerNumber = rank
		h.totalWorkers = len(workers)
		h.bound = h.base.With(
			logging.Int("worker_number", rank),
			logging.Int("total_workers", len(workers)),
		)
	}
	return h.workerNumber, h.totalWorkers, h.bound, nil
}

// Deregister removes this worker's heartbeat so the fleet shrinks without
// waiting for expiry. Best effort; safe to call on an unregistered handler.
func (h *Handler) Deregister(ctx context.Context) error {
	if !h.registered {
		return nil
	}
	h.registered = false
	return h.registry.delete(ctx, h.worker)
}
