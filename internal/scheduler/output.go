// ABOUTME: Per-device output scheduler, the core of the haptic pipeline
// ABOUTME: Feeds the device queue each tick with adaptive buffering, mixing and padding
package scheduler

import (
	"math"
	"sync"
	"time"

	"github.com/hapticore/hapticore-go/internal/device"
	"github.com/hapticore/hapticore-go/internal/driver"
	"github.com/hapticore/hapticore-go/internal/haptic"
)

// tracker pairs a pending clip with how many of its samples have already
// been copied to the device. Trackers never mutate clip contents.
type tracker struct {
	clip *haptic.Clip
	read int
}

func (t *tracker) unread() int {
	return t.clip.Len() - t.read
}

// Stats holds the scheduler's diagnostic counters. They are telemetry for
// tuning the low-latency target and never gate scheduling decisions.
type Stats struct {
	PredictionHits   int64
	PredictionMisses int64
	Underruns        int64
	SkippedTicks     int64 // driver errors, treated like backpressure
	Submitted        int64 // total samples submitted, real and padding
	Padded           int64 // padding samples submitted
}

// Output schedules clips onto one physical device. It owns an ordered FIFO
// queue of pending trackers and a scratch buffer allocated once for its
// lifetime. All methods are safe for concurrent use; a single coarse mutex
// guards the queue and scratch buffer.
type Output struct {
	drv  driver.Driver
	dev  driver.DeviceID
	desc *device.Descriptor

	mu         sync.Mutex
	pending    []*tracker
	scratch    []byte
	lowLatency bool
	closed     bool

	// previous submission observation, for prediction
	prevQueued int
	prevAt     time.Time
	havePrev   bool

	stats Stats
	now   func() time.Time
}

// NewOutput creates a scheduler for one device. The scratch buffer is sized
// to the descriptor's maximum buffer at construction and reused every tick.
func NewOutput(drv driver.Driver, dev driver.DeviceID, desc *device.Descriptor) *Output {
	return &Output{
		drv:     drv,
		dev:     dev,
		desc:    desc,
		scratch: make([]byte, desc.MaxBufferSamples*desc.SampleSizeBytes),
		now:     time.Now,
	}
}

// Preempt drops all pending trackers and starts clip immediately. Unread
// samples of any in-flight clip are abandoned.
func (o *Output) Preempt(clip *haptic.Clip) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dropPending()
	o.pending = append(o.pending, &tracker{clip: clip})
}

// Enqueue appends clip to play strictly after all currently pending clips.
func (o *Output) Enqueue(clip *haptic.Clip) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, &tracker{clip: clip})
}

// Clear drops all pending trackers. Samples already submitted to the device
// are unaffected.
func (o *Output) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dropPending()
}

// Mix overlays clip onto however much of the pending queue will play
// concurrently with it, summing amplitudes sample for sample with
// saturation. Total playback duration is unchanged unless the incoming
// clip outlasts all pending unread samples, in which case it extends to
// exactly the incoming clip's length.
func (o *Output) Mix(clip *haptic.Clip) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Walk the queue to find how many trackers play concurrently with the
	// incoming clip, and the mixed clip's total length.
	remaining := clip.Len()
	samplesToMix := 0
	k := 0
	for _, t := range o.pending {
		if remaining <= 0 {
			break
		}
		remaining -= t.unread()
		samplesToMix += t.unread()
		k++
	}
	if remaining > 0 {
		// The incoming clip outlasts everything pending; its tail plays
		// with nothing to mix against.
		samplesToMix += remaining
	}

	if k == 0 {
		o.pending = append(o.pending, &tracker{clip: clip})
		return
	}

	mixed := haptic.NewClip(samplesToMix)
	in := 0
	for _, t := range o.pending[:k] {
		for i := t.read; i < t.clip.Len(); i++ {
			s := t.clip.Sample(i)
			if in < clip.Len() {
				s = haptic.SaturatingAdd(s, clip.Sample(in))
				in++
			}
			mixed.Append(s)
		}
	}
	for ; in < clip.Len(); in++ {
		mixed.Append(clip.Sample(in))
	}

	// The first visited tracker is replaced by the mixed clip; the other
	// k-1 are removed. Trackers past position k are untouched.
	o.pending[0] = &tracker{clip: mixed}
	kept := append(o.pending[:1], o.pending[k:]...)
	for i := len(kept); i < len(o.pending); i++ {
		o.pending[i] = nil
	}
	o.pending = kept
}

// Process runs one scheduling step. Intended to be called once per frame.
func (o *Output) Process() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	qs, err := o.drv.QueueState(o.dev)
	if err != nil {
		// Device unavailable: skip the tick, same as backpressure.
		o.stats.SkippedTicks++
		return
	}

	now := o.now()
	var elapsed time.Duration
	first := !o.havePrev
	if !first {
		elapsed = now.Sub(o.prevAt)
		played := int(math.Round(elapsed.Seconds() * float64(o.desc.SampleRateHz)))
		expected := o.prevQueued - played
		if expected < 0 {
			expected = 0
		}
		if qs.Queued == expected {
			o.stats.PredictionHits++
		} else {
			o.stats.PredictionMisses++
		}
		if expected > 0 && qs.Queued == 0 {
			o.stats.Underruns++
		}
	}
	o.prevQueued = qs.Queued
	o.prevAt = now
	o.havePrev = true

	desired := o.desc.OptimalBufferSamples
	if o.lowLatency && !first {
		// Queue just enough to survive until the next tick plus a safety
		// margin, instead of filling to the comfortable optimal depth.
		needed := int(math.Ceil(elapsed.Seconds() * float64(o.desc.SampleRateHz)))
		if target := o.desc.MinSafeQueued + needed; target < desired {
			desired = target
		}
	}

	if qs.Queued >= desired {
		// The device has enough buffered; adding more only adds latency.
		return
	}

	if desired > o.desc.MaxBufferSamples {
		desired = o.desc.MaxBufferSamples
	}
	if limit := len(o.scratch) / o.desc.SampleSizeBytes; desired > limit {
		desired = limit
	}
	if desired > qs.Available {
		desired = qs.Available
	}

	acquired := 0
	for _, t := range o.pending {
		if acquired >= desired {
			break
		}
		n := min(t.unread(), desired-acquired)
		copy(o.scratch[acquired:], t.clip.Samples()[t.read:t.read+n])
		t.read += n
		acquired += n
	}
	o.prune()

	// An emptying device queue with nothing pending stutters or cuts off
	// abruptly; padding with silence keeps a steady minimum depth so
	// prediction stays meaningful and a later real clip starts smoothly.
	padding := desired - (qs.Queued + acquired)
	if floor := o.desc.MinBufferSamples - acquired; padding < floor {
		padding = floor
	}
	if acquired+padding > qs.Available {
		padding = qs.Available - acquired
	}
	if padding > 0 {
		zero := o.scratch[acquired : acquired+padding]
		for i := range zero {
			zero[i] = 0
		}
		acquired += padding
		o.stats.Padded += int64(padding)
	}

	if acquired == 0 {
		return
	}

	if err := o.drv.Submit(o.dev, o.scratch[:acquired*o.desc.SampleSizeBytes], acquired); err != nil {
		o.stats.SkippedTicks++
		return
	}
	o.stats.Submitted += int64(acquired)

	if after, err := o.drv.QueueState(o.dev); err == nil {
		o.prevQueued = after.Queued
		o.prevAt = o.now()
	}
}

// SetLowLatency toggles the low-latency buffering policy.
func (o *Output) SetLowLatency(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lowLatency = enabled
}

// Pending returns the total unread samples across the queue.
func (o *Output) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	total := 0
	for _, t := range o.pending {
		total += t.unread()
	}
	return total
}

// Stats returns a snapshot of the diagnostic counters.
func (o *Output) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Close drops pending clips and releases the scratch buffer. The scheduler
// rejects further Process calls.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dropPending()
	o.scratch = nil
	o.closed = true
}

// prune rebuilds the queue without fully-consumed trackers.
func (o *Output) prune() {
	kept := o.pending[:0]
	for _, t := range o.pending {
		if t.unread() > 0 {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(o.pending); i++ {
		o.pending[i] = nil
	}
	o.pending = kept
}

func (o *Output) dropPending() {
	for i := range o.pending {
		o.pending[i] = nil
	}
	o.pending = o.pending[:0]
}
