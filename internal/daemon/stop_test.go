package daemon

import (
	"testing"
	"time"
)

func TestStopSignalSetOnce(t *testing.T) {
	stop := NewStopSignal()
	if stop.Stopped() {
		t.Fatal("fresh signal reports stopped")
	}

	stop.Stop()
	stop.Stop()
	if !stop.Stopped() {
		t.Fatal("signal not stopped after Stop")
	}

	select {
	case <-stop.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSleepCompletesWhenUnset(t *testing.T) {
	stop := NewStopSignal()
	if !stop.Sleep(5 * time.Millisecond) {
		t.Fatal("uninterrupted sleep returned false")
	}
}

func TestSleepInterruptedByStop(t *testing.T) {
	stop := NewStopSignal()
	stop.Stop()

	start := time.Now()
	if stop.Sleep(5 * time.Second) {
		t.Fatal("sleep on stopped signal returned true")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("sleep did not wake promptly, took %s", elapsed)
	}
}

func TestSleepZeroDuration(t *testing.T) {
	stop := NewStopSignal()
	if !stop.Sleep(0) {
		t.Fatal("zero sleep on unset signal returned false")
	}
	stop.Stop()
	if stop.Sleep(0) {
		t.Fatal("zero sleep on stopped signal returned true")
	}
}
