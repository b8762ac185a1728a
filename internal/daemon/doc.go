// Package daemon runs the partitioned reconciliation loops.
//
// A Loop repeatedly drives one cycle function: refresh liveness, fetch a
// bounded batch for the current partition, apply each item, and sleep when
// the partition's backlog is drained. Run launches a configurable number of
// identical loops in one process and joins them with an interruptible wait.
// The only mutable state shared between loops is the StopSignal; everything
// else is coordinated through the heartbeat registry.
//
// Cancellation is cooperative. Setting the StopSignal prevents the next item
// and the next cycle from starting but does not preempt an in-flight apply;
// there is deliberately no per-item timeout, so a hung apply blocks that one
// loop indefinitely while its siblings keep running. Known availability
// limitation.
package daemon
