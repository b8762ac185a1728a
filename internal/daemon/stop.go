package daemon

import (
	"sync"
	"sync/atomic"
	"time"
)

// StopSignal is the process-wide cooperative stop flag: set at most once,
// never cleared, single writer, any number of readers. Loops check it before
// every cycle and before every item; sleeps wake as soon as it is set.
//
// Signals are threaded explicitly through loops rather than held in a
// package variable so tests can run independent instances side by side.
type StopSignal struct {
	once sync.Once
	done chan struct{}
	set  atomic.Bool
}

// NewStopSignal returns an unset signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Stop sets the signal. Safe to call repeatedly and from signal handlers;
// this is the function the surrounding executable wires to SIGINT/SIGTERM.
func (s *StopSignal) Stop() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// Stopped reports whether the signal has been set.
func (s *StopSignal) Stopped() bool {
	return s.set.Load()
}

// Done returns a channel closed when the signal is set.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Sleep pauses for d or until the signal is set, whichever comes first.
// Returns false when interrupted by the signal.
func (s *StopSignal) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.Stopped()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}
