// ABOUTME: Scheduler facade owning the left and right output schedulers
// ABOUTME: Routes per-hand requests and drives both devices once per frame
package engine

import (
	"fmt"

	"github.com/hapticore/hapticore-go/internal/device"
	"github.com/hapticore/hapticore-go/internal/driver"
	"github.com/hapticore/hapticore-go/internal/scheduler"
)

// Engine owns the two per-hand output schedulers and the capability
// descriptor they share. It is constructed explicitly and passed by
// reference; there are no package-level instances.
type Engine struct {
	drv  driver.Driver
	desc device.Descriptor

	left  *scheduler.Output
	right *scheduler.Output

	leftCh  *Channel
	rightCh *Channel
}

// Stats is a per-hand snapshot of scheduler counters.
type Stats struct {
	Left  scheduler.Stats
	Right scheduler.Stats
}

// New creates an engine driving both hands through drv.
func New(drv driver.Driver) (*Engine, error) {
	e := &Engine{drv: drv}

	// Capabilities are read from the left device; both hands share one
	// descriptor, matching how paired controllers report.
	e.desc.Load(drv, driver.Left)
	if err := e.desc.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.left = scheduler.NewOutput(drv, driver.Left, &e.desc)
	e.right = scheduler.NewOutput(drv, driver.Right, &e.desc)
	e.leftCh = &Channel{out: e.left}
	e.rightCh = &Channel{out: e.right}

	return e, nil
}

// Left returns the left-hand channel.
func (e *Engine) Left() *Channel {
	return e.leftCh
}

// Right returns the right-hand channel.
func (e *Engine) Right() *Channel {
	return e.rightCh
}

// Channel returns the channel for a device id.
func (e *Engine) Channel(dev driver.DeviceID) *Channel {
	if dev == driver.Right {
		return e.rightCh
	}
	return e.leftCh
}

// Tick refreshes the capability snapshot and runs one scheduling step on
// both devices. Intended to be invoked once per application frame.
func (e *Engine) Tick() error {
	e.desc.Load(e.drv, driver.Left)
	if err := e.desc.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	e.left.Process()
	e.right.Process()
	return nil
}

// SetLowLatency toggles the low-latency buffering policy on both hands.
func (e *Engine) SetLowLatency(enabled bool) {
	e.left.SetLowLatency(enabled)
	e.right.SetLowLatency(enabled)
}

// Stats returns a snapshot of both schedulers' counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Left:  e.left.Stats(),
		Right: e.right.Stats(),
	}
}

// SampleRate returns the device sample rate from the last capability load.
func (e *Engine) SampleRate() int {
	return e.desc.SampleRateHz
}

// Pending returns unread sample counts per hand.
func (e *Engine) Pending() (left, right int) {
	return e.left.Pending(), e.right.Pending()
}

// Close releases both schedulers' scratch buffers.
func (e *Engine) Close() {
	e.left.Close()
	e.right.Close()
}
