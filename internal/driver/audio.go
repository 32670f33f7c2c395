// ABOUTME: Audio preview driver backend using the oto library
// ABOUTME: Renders haptic amplitude envelopes as an audible carrier tone
package driver

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	previewSampleRate = 48000
	previewCarrierHz  = 170.0 // typical LRA resonant frequency
)

// Audio is a preview backend that plays haptic clips as sound, so pulse
// timing and envelopes can be heard during development without hardware.
// Each device gets its own persistent oto player fed through a pipe.
//
// Queue depth is estimated client-side from submissions and elapsed time,
// since oto exposes no queue query.
type Audio struct {
	caps   Capabilities
	otoCtx *oto.Context

	mu      sync.Mutex
	devices map[DeviceID]*audioDevice
}

type audioDevice struct {
	writer    *io.PipeWriter
	player    *oto.Player
	phase     float64
	queued    float64
	lastDrain time.Time
}

// NewAudio creates the preview backend. The reported haptic capabilities
// match the simulator's so schedulers behave identically on both.
func NewAudio() (*Audio, error) {
	op := &oto.NewContextOptions{
		SampleRate:   previewSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Printf("Audio preview initialized: %dHz carrier at %.0fHz", previewSampleRate, previewCarrierHz)

	return &Audio{
		caps:    DefaultCapabilities(),
		otoCtx:  ctx,
		devices: make(map[DeviceID]*audioDevice),
	}, nil
}

// Capabilities returns the haptic capability snapshot.
func (a *Audio) Capabilities(device DeviceID) Capabilities {
	return a.caps
}

// QueueState estimates the device queue from prior submissions.
func (a *Audio) QueueState(device DeviceID) (QueueState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := a.device(device)
	a.drain(d)

	queued := int(d.queued)
	return QueueState{
		Queued:    queued,
		Available: a.caps.MaxBufferSamples*4 - queued,
	}, nil
}

// Submit renders sampleCount amplitude samples as carrier audio and writes
// them to the device's player pipe.
func (a *Audio) Submit(device DeviceID, buf []byte, sampleCount int) error {
	if sampleCount > len(buf) {
		return fmt.Errorf("audio: submit of %d samples exceeds buffer of %d bytes", sampleCount, len(buf))
	}

	a.mu.Lock()
	d := a.device(device)
	a.drain(d)
	d.queued += float64(sampleCount)

	framesPerSample := previewSampleRate / a.caps.SampleRateHz
	out := make([]byte, sampleCount*framesPerSample*2)
	step := 2 * math.Pi * previewCarrierHz / previewSampleRate

	for i := 0; i < sampleCount; i++ {
		amp := float64(buf[i]) / 255.0
		for f := 0; f < framesPerSample; f++ {
			v := int16(math.Sin(d.phase) * amp * 0.5 * math.MaxInt16)
			binary.LittleEndian.PutUint16(out[(i*framesPerSample+f)*2:], uint16(v))
			d.phase += step
		}
	}
	if d.phase > 2*math.Pi {
		d.phase -= 2 * math.Pi * math.Floor(d.phase/(2*math.Pi))
	}
	writer := d.writer
	a.mu.Unlock()

	// Written outside the lock: the pipe blocks when oto's buffer is full.
	if _, err := writer.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Close tears down all device players.
func (a *Audio) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.devices {
		d.writer.Close()
		d.player.Close()
	}
	a.devices = make(map[DeviceID]*audioDevice)
	a.otoCtx.Suspend()
	return nil
}

func (a *Audio) device(id DeviceID) *audioDevice {
	d, ok := a.devices[id]
	if !ok {
		reader, writer := io.Pipe()
		player := a.otoCtx.NewPlayer(reader)
		player.Play()

		d = &audioDevice{
			writer:    writer,
			player:    player,
			lastDrain: time.Now(),
		}
		a.devices[id] = d
	}
	return d
}

func (a *Audio) drain(d *audioDevice) {
	now := time.Now()
	elapsed := now.Sub(d.lastDrain)
	d.lastDrain = now

	d.queued -= elapsed.Seconds() * float64(a.caps.SampleRateHz)
	if d.queued < 0 {
		d.queued = 0
	}
}
