// ABOUTME: Haptic clip type definitions
// ABOUTME: Defines the 8-bit amplitude sample buffer handed to schedulers
package haptic

// SampleMax is the largest representable amplitude. Samples are 8-bit
// unsigned; additive mixing saturates here instead of wrapping.
const SampleMax = 255

// Clip is a bounded sequence of haptic amplitude samples.
// A clip is append-only while it is being authored and must be treated as
// read-only once handed to a scheduler: trackers advance their own read
// cursor, never the clip contents.
type Clip struct {
	samples []byte
}

// NewClip creates an empty clip with room for sizeHint samples.
func NewClip(sizeHint int) *Clip {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Clip{samples: make([]byte, 0, sizeHint)}
}

// FromSamples creates a clip wrapping the given samples.
// The caller must not modify the slice afterwards.
func FromSamples(samples []byte) *Clip {
	return &Clip{samples: samples}
}

// Padding returns a clip of n all-zero samples.
func Padding(n int) *Clip {
	if n < 0 {
		n = 0
	}
	return &Clip{samples: make([]byte, n)}
}

// Append adds one sample to the end of the clip.
func (c *Clip) Append(sample byte) {
	c.samples = append(c.samples, sample)
}

// Len returns the number of valid samples.
func (c *Clip) Len() int {
	return len(c.samples)
}

// Sample returns the i-th sample.
func (c *Clip) Sample(i int) byte {
	return c.samples[i]
}

// Samples returns the valid samples. Callers must treat the slice as
// read-only.
func (c *Clip) Samples() []byte {
	return c.samples
}

// SaturatingAdd sums two amplitude samples, clamping at SampleMax.
func SaturatingAdd(a, b byte) byte {
	s := int(a) + int(b)
	if s > SampleMax {
		return SampleMax
	}
	return byte(s)
}
