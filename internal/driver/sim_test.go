// ABOUTME: Tests for the simulated haptic driver
// ABOUTME: Tests queue accounting and wall-clock drain behavior
package driver

import (
	"testing"
	"time"
)

// fixedClock returns a controllable clock for drain tests.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	current := start
	now := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return now, advance
}

func TestSimSubmitAndQueueState(t *testing.T) {
	sim := NewSim(DefaultCapabilities())
	now, _ := fixedClock(time.Now())
	sim.SetClock(now)

	buf := make([]byte, 100)
	if err := sim.Submit(Left, buf, 100); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	qs, err := sim.QueueState(Left)
	if err != nil {
		t.Fatalf("queue state failed: %v", err)
	}
	if qs.Queued != 100 {
		t.Errorf("expected 100 queued, got %d", qs.Queued)
	}
	if qs.Available != sim.capacity-100 {
		t.Errorf("expected %d available, got %d", sim.capacity-100, qs.Available)
	}
}

func TestSimDrainsAtSampleRate(t *testing.T) {
	sim := NewSim(DefaultCapabilities()) // 1000 Hz
	now, advance := fixedClock(time.Now())
	sim.SetClock(now)

	buf := make([]byte, 100)
	if err := sim.Submit(Left, buf, 100); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	advance(50 * time.Millisecond) // 50 samples at 1kHz

	qs, _ := sim.QueueState(Left)
	if qs.Queued != 50 {
		t.Errorf("expected 50 queued after 50ms, got %d", qs.Queued)
	}

	advance(time.Second) // drain past empty

	qs, _ = sim.QueueState(Left)
	if qs.Queued != 0 {
		t.Errorf("expected empty queue, got %d", qs.Queued)
	}
}

func TestSimDevicesAreIndependent(t *testing.T) {
	sim := NewSim(DefaultCapabilities())
	now, _ := fixedClock(time.Now())
	sim.SetClock(now)

	buf := make([]byte, 64)
	if err := sim.Submit(Left, buf, 64); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	qs, _ := sim.QueueState(Right)
	if qs.Queued != 0 {
		t.Errorf("expected right device empty, got %d queued", qs.Queued)
	}
}

func TestSimRejectsOversizedSubmit(t *testing.T) {
	sim := NewSim(DefaultCapabilities())

	buf := make([]byte, 10)
	if err := sim.Submit(Left, buf, 20); err == nil {
		t.Error("expected error for sample count exceeding buffer")
	}
}

func TestSimRejectsQueueOverflow(t *testing.T) {
	sim := NewSim(DefaultCapabilities())
	now, _ := fixedClock(time.Now())
	sim.SetClock(now)

	buf := make([]byte, sim.capacity+1)
	if err := sim.Submit(Left, buf, sim.capacity+1); err == nil {
		t.Error("expected error for submit beyond device capacity")
	}
}
