// ABOUTME: Tests for the per-device output scheduler
// ABOUTME: Tests queue ordering, preemption, backpressure, padding and prediction
package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/hapticore/hapticore-go/internal/device"
	"github.com/hapticore/hapticore-go/internal/driver"
	"github.com/hapticore/hapticore-go/internal/haptic"
)

// fakeDriver gives tests full control over reported queue state and records
// every submission.
type fakeDriver struct {
	caps      driver.Capabilities
	queue     driver.QueueState
	queueErr  error
	submitErr error

	submits      [][]byte
	submitCounts []int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		caps:  driver.DefaultCapabilities(),
		queue: driver.QueueState{Queued: 0, Available: 1024},
	}
}

func (f *fakeDriver) Capabilities(dev driver.DeviceID) driver.Capabilities {
	return f.caps
}

func (f *fakeDriver) QueueState(dev driver.DeviceID) (driver.QueueState, error) {
	if f.queueErr != nil {
		return driver.QueueState{}, f.queueErr
	}
	return f.queue, nil
}

func (f *fakeDriver) Submit(dev driver.DeviceID, buf []byte, sampleCount int) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	samples := make([]byte, sampleCount)
	copy(samples, buf)
	f.submits = append(f.submits, samples)
	f.submitCounts = append(f.submitCounts, sampleCount)
	f.queue.Queued += sampleCount
	f.queue.Available -= sampleCount
	return nil
}

func newTestOutput(f *fakeDriver) *Output {
	desc := &device.Descriptor{}
	desc.Load(f, driver.Left)
	return NewOutput(f, driver.Left, desc)
}

// constantClip builds a clip of n samples all holding value v.
func constantClip(n int, v byte) *haptic.Clip {
	c := haptic.NewClip(n)
	for i := 0; i < n; i++ {
		c.Append(v)
	}
	return c
}

// drainReal runs Process repeatedly, resetting the reported queue depth
// between ticks, and returns all submitted non-padding samples in order.
func drainReal(o *Output, f *fakeDriver, ticks int) []byte {
	var real []byte
	for i := 0; i < ticks; i++ {
		f.queue.Queued = 0
		f.queue.Available = 1024
		o.Process()
	}
	for _, s := range f.submits {
		for _, v := range s {
			if v != 0 {
				real = append(real, v)
			}
		}
	}
	return real
}

func TestQueueOrdering(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(30, 1))
	o.Enqueue(constantClip(30, 2))
	o.Enqueue(constantClip(30, 3))

	real := drainReal(o, f, 5)

	if len(real) != 90 {
		t.Fatalf("expected 90 real samples, got %d", len(real))
	}
	for i, v := range real {
		expected := byte(1 + i/30)
		if v != expected {
			t.Fatalf("sample %d: expected %d, got %d (clips drained out of order)", i, expected, v)
		}
	}
}

func TestPreemptDiscardsPending(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(30, 1))
	o.Preempt(constantClip(20, 2))

	real := drainReal(o, f, 5)

	if len(real) != 20 {
		t.Fatalf("expected 20 real samples, got %d", len(real))
	}
	for i, v := range real {
		if v != 2 {
			t.Errorf("sample %d: expected 2, got %d", i, v)
		}
	}
}

func TestPreemptAbandonsPartiallyReadClip(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(100, 1))
	o.Process() // drains part of the clip

	o.Preempt(constantClip(10, 2))
	f.submits = nil

	real := drainReal(o, f, 5)

	for i, v := range real {
		if v != 2 {
			t.Errorf("sample %d: expected only preempting clip samples, got %d", i, v)
		}
	}
}

func TestClearDropsPending(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(30, 1))
	o.Clear()

	if o.Pending() != 0 {
		t.Errorf("expected empty queue after clear, got %d pending", o.Pending())
	}

	real := drainReal(o, f, 2)
	if len(real) != 0 {
		t.Errorf("expected only padding after clear, got %d real samples", len(real))
	}
}

func TestBackpressureNoSubmit(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(30, 1))
	f.queue.Queued = f.caps.OptimalBufferSamples // already at the desired depth

	o.Process()

	if len(f.submits) != 0 {
		t.Errorf("expected no submission under backpressure, got %d", len(f.submits))
	}
	if o.Pending() != 30 {
		t.Errorf("expected pending clip untouched, got %d unread", o.Pending())
	}
}

func TestPaddingFloor(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Process() // empty queue, device empty

	if len(f.submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.submits))
	}
	if got := f.submitCounts[0]; got < f.caps.MinBufferSamples {
		t.Errorf("expected at least %d padding samples, got %d", f.caps.MinBufferSamples, got)
	}
	for i, v := range f.submits[0] {
		if v != 0 {
			t.Errorf("padding sample %d: expected zero, got %d", i, v)
		}
	}
}

func TestPaddingCappedAtAvailable(t *testing.T) {
	f := newFakeDriver()
	f.queue.Available = 8 // below the minimum buffer depth
	o := newTestOutput(f)

	o.Process()

	if len(f.submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.submits))
	}
	if got := f.submitCounts[0]; got != 8 {
		t.Errorf("expected submission capped at 8 available samples, got %d", got)
	}
}

func TestUnderrunDetection(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	current := time.Now()
	o.now = func() time.Time { return current }

	o.Process() // submits padding; records queue depth

	// 10ms later ~38 of the 48 submitted samples should still be queued,
	// but the device reports empty.
	current = current.Add(10 * time.Millisecond)
	f.queue.Queued = 0
	f.queue.Available = 1024
	o.Process()

	if got := o.Stats().Underruns; got != 1 {
		t.Errorf("expected 1 underrun, got %d", got)
	}
}

func TestPredictionHit(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	current := time.Now()
	o.now = func() time.Time { return current }

	o.Process() // submits 48 samples at the optimal depth

	current = current.Add(10 * time.Millisecond) // 10 samples at 1kHz
	f.queue.Queued = 38
	f.queue.Available = 1024
	o.Process()

	stats := o.Stats()
	if stats.PredictionHits != 1 {
		t.Errorf("expected 1 prediction hit, got %d", stats.PredictionHits)
	}
	if stats.PredictionMisses != 0 {
		t.Errorf("expected 0 prediction misses, got %d", stats.PredictionMisses)
	}
}

func TestPredictionMiss(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	current := time.Now()
	o.now = func() time.Time { return current }

	o.Process()

	current = current.Add(10 * time.Millisecond)
	f.queue.Queued = 20 // drained faster than predicted
	f.queue.Available = 1024
	o.Process()

	if got := o.Stats().PredictionMisses; got != 1 {
		t.Errorf("expected 1 prediction miss, got %d", got)
	}
}

func TestLowLatencyTarget(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)
	o.SetLowLatency(true)

	current := time.Now()
	o.now = func() time.Time { return current }

	// First tick has no elapsed time, so it fills to the optimal depth.
	o.Process()
	if got := f.submitCounts[0]; got != f.caps.OptimalBufferSamples {
		t.Fatalf("expected first tick to fill to %d, got %d", f.caps.OptimalBufferSamples, got)
	}

	// With 10ms between ticks the target is minSafeQueued + 10 samples.
	current = current.Add(10 * time.Millisecond)
	f.queue.Queued = 0
	f.queue.Available = 1024
	o.Process()

	expected := f.caps.MinSafeQueued + 10
	if got := f.submitCounts[1]; got != expected {
		t.Errorf("expected low-latency submission of %d samples, got %d", expected, got)
	}
}

func TestDriverErrorSkipsTick(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(30, 1))
	f.queueErr = errors.New("device unavailable")

	o.Process()

	if len(f.submits) != 0 {
		t.Errorf("expected no submission on driver error, got %d", len(f.submits))
	}
	if got := o.Stats().SkippedTicks; got != 1 {
		t.Errorf("expected 1 skipped tick, got %d", got)
	}
	if o.Pending() != 30 {
		t.Errorf("expected pending clip untouched, got %d unread", o.Pending())
	}
}

func TestSubmitErrorSkipsTick(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	f.submitErr = errors.New("device unavailable")
	o.Process()

	if got := o.Stats().SkippedTicks; got != 1 {
		t.Errorf("expected 1 skipped tick, got %d", got)
	}
}

func TestProcessAfterCloseIsNoop(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Close()
	o.Process()

	if len(f.submits) != 0 {
		t.Errorf("expected no submission after close, got %d", len(f.submits))
	}
}

func TestPruneRemovesConsumedTrackers(t *testing.T) {
	f := newFakeDriver()
	o := newTestOutput(f)

	o.Enqueue(constantClip(10, 1))
	o.Enqueue(constantClip(100, 2))

	o.Process() // drains the first clip entirely and part of the second

	o.mu.Lock()
	queueLen := len(o.pending)
	o.mu.Unlock()

	if queueLen != 1 {
		t.Errorf("expected 1 tracker after prune, got %d", queueLen)
	}
}
