package replica

import "time"

// State describes an aggregate's availability, derived from its file rows.
type State string

const (
	// StateUnknown marks a replica with no file rows to derive from.
	StateUnknown State = "UNKNOWN"
	// StateAvailable marks a replica whose files are all available.
	StateAvailable State = "AVAILABLE"
	// StatePartial marks a replica with a mix of available and missing files.
	StatePartial State = "PARTIAL"
	// StateUnavailable marks a replica none of whose files are available.
	StateUnavailable State = "UNAVAILABLE"
)

// Replica is one derived aggregate row: the summary of a collection's file
// replicas at a given store.
type Replica struct {
	ID             int64
	Collection     string
	StoreName      string
	State          State
	FileCount      int64
	Bytes          int64
	AvailableFiles int64
	AvailableBytes int64
	UpdatedAt      time.Time
}

// Update is one unit of pending work: a dirty replica awaiting recompute.
// The daemon treats it as an opaque handle; only ID is inspected, for
// logging and partitioning.
type Update struct {
	ID         int64
	Collection string
	StoreName  string
}

// Stats summarizes the dirty-marker backlog for operator surfaces.
type Stats struct {
	PendingMarkers int64
	DirtyReplicas  int64
	TotalReplicas  int64
	TotalBytes     int64
	AvailableBytes int64
}
