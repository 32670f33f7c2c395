// ABOUTME: Synthesized pattern source for the feeder
// ABOUTME: Generates pulse envelopes for demonstration without a pattern file
package server

import (
	"sync"
	"time"

	"github.com/hapticore/hapticore-go/internal/haptic"
	"github.com/hapticore/hapticore-go/internal/protocol"
)

// PatternSource cycles through synthesized haptic envelopes, alternating
// hands and playback modes so every scheduler path gets exercised.
type PatternSource struct {
	mu           sync.Mutex
	sampleRateHz int
	clipSamples  int
	step         int
}

// NewPatternSource creates a pattern generator emitting clips sized to the
// feed interval.
func NewPatternSource(sampleRateHz int, interval time.Duration) *PatternSource {
	clipSamples := int(float64(sampleRateHz) * interval.Seconds())
	if clipSamples < 1 {
		clipSamples = 1
	}
	return &PatternSource{
		sampleRateHz: sampleRateHz,
		clipSamples:  clipSamples,
	}
}

// Next returns the next pulse in the cycle.
func (p *PatternSource) Next() (protocol.Pulse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var clip *haptic.Clip
	var mode string
	switch p.step % 4 {
	case 0:
		clip = p.tap()
		mode = protocol.ModeQueue
	case 1:
		clip = p.rampUp()
		mode = protocol.ModeQueue
	case 2:
		clip = p.buzz()
		mode = protocol.ModeMix
	case 3:
		clip = p.rampDown()
		mode = protocol.ModePreempt
	}

	channel := protocol.ChannelLeft
	if p.step%2 == 1 {
		channel = protocol.ChannelRight
	}
	if p.step%8 == 6 {
		channel = protocol.ChannelBoth
	}
	p.step++

	return protocol.Pulse{
		Channel: channel,
		Mode:    mode,
		Samples: protocol.EncodeSamples(clip.Samples()),
	}, nil
}

// Close releases nothing; pattern generation is stateless.
func (p *PatternSource) Close() error {
	return nil
}

// tap is a sharp attack with an exponential-feeling decay.
func (p *PatternSource) tap() *haptic.Clip {
	clip := haptic.NewClip(p.clipSamples)
	for i := 0; i < p.clipSamples; i++ {
		v := 220 - (220*i*2)/p.clipSamples
		if v < 0 {
			v = 0
		}
		clip.Append(byte(v))
	}
	return clip
}

// rampUp rises linearly to near full amplitude.
func (p *PatternSource) rampUp() *haptic.Clip {
	clip := haptic.NewClip(p.clipSamples)
	for i := 0; i < p.clipSamples; i++ {
		clip.Append(byte((200 * i) / p.clipSamples))
	}
	return clip
}

// rampDown falls linearly from near full amplitude.
func (p *PatternSource) rampDown() *haptic.Clip {
	clip := haptic.NewClip(p.clipSamples)
	for i := 0; i < p.clipSamples; i++ {
		clip.Append(byte(200 - (200*i)/p.clipSamples))
	}
	return clip
}

// buzz is a constant mid-amplitude rumble.
func (p *PatternSource) buzz() *haptic.Clip {
	clip := haptic.NewClip(p.clipSamples)
	for i := 0; i < p.clipSamples; i++ {
		clip.Append(90)
	}
	return clip
}
