// ABOUTME: Haptic device driver interface definition
// ABOUTME: Common interface for physical and simulated output backends
package driver

// DeviceID identifies a physical output device.
type DeviceID int

// The two managed devices, one per hand.
const (
	Left DeviceID = iota
	Right
)

func (d DeviceID) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// Capabilities is a snapshot of a device's playback limits.
type Capabilities struct {
	SampleRateHz         int
	SampleSizeBytes      int
	MinSafeQueued        int
	MinBufferSamples     int
	OptimalBufferSamples int
	MaxBufferSamples     int
}

// QueueState reports a device's current playback queue depth.
type QueueState struct {
	Queued    int // samples submitted but not yet played
	Available int // samples the device can still accept
}

// Driver exposes the physical haptic devices behind an opaque boundary.
// Calls are synchronous and non-blocking.
type Driver interface {
	// Capabilities returns the capability snapshot for a device.
	Capabilities(device DeviceID) Capabilities

	// QueueState returns the current queue depth for a device.
	QueueState(device DeviceID) (QueueState, error)

	// Submit hands buf (the first sampleCount samples) to the device for
	// playback. Fire and forget; the buffer is consumed before Submit
	// returns.
	Submit(device DeviceID, buf []byte, sampleCount int) error
}
