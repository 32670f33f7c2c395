// ABOUTME: Simulated haptic driver for development and tests
// ABOUTME: Drains device queues at the configured sample rate using wall-clock time
package driver

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapabilities returns the capability set the simulator reports when
// none is configured. The numbers model a 1kHz 8-bit amplitude actuator.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		SampleRateHz:         1000,
		SampleSizeBytes:      1,
		MinSafeQueued:        10,
		MinBufferSamples:     16,
		OptimalBufferSamples: 48,
		MaxBufferSamples:     256,
	}
}

// Sim is an in-process haptic device simulator. Each device holds a playback
// queue that drains at the configured sample rate as wall-clock time passes.
type Sim struct {
	caps     Capabilities
	capacity int

	mu      sync.Mutex
	devices map[DeviceID]*simDevice
	now     func() time.Time
}

type simDevice struct {
	queued    float64
	lastDrain time.Time
}

// NewSim creates a simulator reporting the given capabilities for every
// device. The device queue capacity is four times the maximum buffer size.
func NewSim(caps Capabilities) *Sim {
	return &Sim{
		caps:     caps,
		capacity: caps.MaxBufferSamples * 4,
		devices:  make(map[DeviceID]*simDevice),
		now:      time.Now,
	}
}

// Capabilities returns the configured capability snapshot.
func (s *Sim) Capabilities(device DeviceID) Capabilities {
	return s.caps
}

// QueueState reports the device queue after draining elapsed playback.
func (s *Sim) QueueState(device DeviceID) (QueueState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.device(device)
	s.drain(d)

	queued := int(d.queued)
	return QueueState{
		Queued:    queued,
		Available: s.capacity - queued,
	}, nil
}

// Submit appends sampleCount samples to the device queue.
func (s *Sim) Submit(device DeviceID, buf []byte, sampleCount int) error {
	if sampleCount*s.caps.SampleSizeBytes > len(buf) {
		return fmt.Errorf("sim: submit of %d samples exceeds buffer of %d bytes", sampleCount, len(buf))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.device(device)
	s.drain(d)

	if int(d.queued)+sampleCount > s.capacity {
		return fmt.Errorf("sim: device %s queue overflow (%d queued, %d submitted, capacity %d)",
			device, int(d.queued), sampleCount, s.capacity)
	}

	d.queued += float64(sampleCount)
	return nil
}

// SetClock replaces the wall clock, for tests.
func (s *Sim) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	for _, d := range s.devices {
		d.lastDrain = now()
	}
}

func (s *Sim) device(id DeviceID) *simDevice {
	d, ok := s.devices[id]
	if !ok {
		d = &simDevice{lastDrain: s.now()}
		s.devices[id] = d
	}
	return d
}

// drain removes the samples played since the last observation.
func (s *Sim) drain(d *simDevice) {
	now := s.now()
	elapsed := now.Sub(d.lastDrain)
	d.lastDrain = now

	played := elapsed.Seconds() * float64(s.caps.SampleRateHz)
	d.queued -= played
	if d.queued < 0 {
		d.queued = 0
	}
}
