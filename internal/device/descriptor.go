// ABOUTME: Device capability descriptor
// ABOUTME: Wholesale-reloaded snapshot of driver-reported playback limits
package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/hapticore/hapticore-go/internal/driver"
)

// ErrUnsupportedSampleSize is returned when a device reports multi-byte
// samples. The mixing path is defined for 8-bit amplitudes only.
var ErrUnsupportedSampleSize = errors.New("device: only 1-byte samples are supported")

// Descriptor is the capability snapshot schedulers consult each tick.
// Load overwrites the whole struct; readers never see a partial update.
type Descriptor struct {
	driver.Capabilities
}

// Load refreshes every field from the driver's reported capabilities for
// the reference device. Reloading is idempotent and cheap.
func (d *Descriptor) Load(drv driver.Driver, dev driver.DeviceID) {
	d.Capabilities = drv.Capabilities(dev)
}

// Validate rejects configurations the scheduler cannot serve.
func (d *Descriptor) Validate() error {
	if d.SampleSizeBytes != 1 {
		return fmt.Errorf("%w: got %d bytes", ErrUnsupportedSampleSize, d.SampleSizeBytes)
	}
	if d.SampleRateHz <= 0 {
		return fmt.Errorf("device: invalid sample rate %d", d.SampleRateHz)
	}
	if d.MinBufferSamples > d.OptimalBufferSamples || d.OptimalBufferSamples > d.MaxBufferSamples {
		return fmt.Errorf("device: buffer bounds not ordered: min=%d optimal=%d max=%d",
			d.MinBufferSamples, d.OptimalBufferSamples, d.MaxBufferSamples)
	}
	return nil
}

// SampleDuration returns the playback time of a single sample.
func (d *Descriptor) SampleDuration() time.Duration {
	return time.Second / time.Duration(d.SampleRateHz)
}
