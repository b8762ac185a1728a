// Package heartbeat implements the worker liveness registry that drives
// partition assignment across the daemon fleet.
//
// Every loop owns a Handler identified by (executable, hostname, pid, worker
// UUID). Live refreshes the handler's registry row, reaps expired rows, and
// derives the loop's (worker number, total workers) pair from its ordinal
// rank among the live rows for the same executable. There is no coordinator:
// every worker ranks the same rows the same way, so the fleet agrees on a
// disjoint partitioning as long as heartbeats are fresh. Assignments shift
// when workers join or leave; the reconciliation work itself is idempotent,
// which makes transient overlap during a resize harmless.
package heartbeat
