package replica

import (
	"context"
	"time"

	"tally/internal/daemon"
	"tally/internal/heartbeat"
	"tally/internal/logging"
)

// DaemonName identifies this worker role in the heartbeat registry. Every
// process in the fleet must register under the same name for partition
// ranks to line up.
const DaemonName = "tally-collection-replica"

// UpdateApplier applies one unit of reconciliation work. *Applier is the
// production implementation.
type UpdateApplier interface {
	Apply(ctx context.Context, upd Update) error
}

// Reconciler is the polling cycle: fetch this worker's share of dirty
// replicas and recompute each aggregate.
type Reconciler struct {
	source  *Source
	applier UpdateApplier
	limit   int
}

// NewReconciler builds a cycle over the given source and applier. limit
// bounds the per-cycle batch; zero or negative disables both the bound and
// the partial-batch sleep heuristic.
func NewReconciler(source *Source, applier UpdateApplier, limit int) *Reconciler {
	return &Reconciler{source: source, applier: applier, limit: limit}
}

// RunCycle implements daemon.CycleFunc.
//
// The partition assignment is re-read from the heartbeat registry at the top
// of every cycle, never cached across cycles, so fleet resizes take effect
// on the next fetch. Within a batch the assignment from fetch time sticks:
// liveness is still refreshed before each item (keeping this worker's
// heartbeat fresh during long batches and its logging identity current),
// but the batch is processed to completion or abandonment as fetched.
// Applier and source errors propagate to the loop untouched.
func (r *Reconciler) RunCycle(ctx context.Context, hb *heartbeat.Handler, stop *daemon.StopSignal) (bool, error) {
	workerNumber, totalWorkers, logger, err := hb.Live(ctx)
	if err != nil {
		return false, err
	}

	start := time.Now()
	updates, err := r.source.Fetch(ctx, totalWorkers, workerNumber, r.limit)
	if err != nil {
		return false, err
	}
	logger.Debug("partition query finished",
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("size", len(updates)),
	)

	if len(updates) == 0 {
		logger.Info("did not get any work")
		return true, nil
	}

	for _, upd := range updates {
		if _, _, logger, err = hb.Live(ctx); err != nil {
			return false, err
		}
		if stop.Stopped() {
			break
		}
		itemStart := time.Now()
		if err := r.applier.Apply(ctx, upd); err != nil {
			return false, err
		}
		logger.Debug("replica updated",
			logging.Int64("replica_id", upd.ID),
			logging.String("collection", upd.Collection),
			logging.String("store", upd.StoreName),
			logging.Duration("elapsed", time.Since(itemStart)),
		)
	}

	mustSleep := r.limit > 0 && len(updates) < r.limit
	return mustSleep, nil
}
