// Package replica holds the collection replica domain: the aggregates, the
// dirty-marker work source, the applier that recomputes one aggregate from
// its file replicas, and the reconciler cycle the daemon loops drive.
//
// The applier is idempotent. That is the correctness net for the whole
// design: partition assignments shift when the fleet resizes, and two
// workers may briefly process the same replica, but recomputing an aggregate
// twice lands on the same row either way.
package replica
