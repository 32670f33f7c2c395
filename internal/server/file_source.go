// ABOUTME: MP3-backed pulse source for the feeder
// ABOUTME: Converts an audio file into a haptic amplitude envelope and replays it
package server

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hapticore/hapticore-go/internal/protocol"
)

// FileSource converts an MP3 file into a haptic envelope once at
// construction, then replays it cyclically as pulses. Each haptic sample is
// the peak amplitude of its window of audio frames, so transients in the
// music become taps and buzzes.
type FileSource struct {
	envelope    []byte
	clipSamples int
	pos         int
}

// NewFileSource opens and converts path at the given haptic sample rate.
func NewFileSource(path string, sampleRateHz int, interval time.Duration) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	envelope, err := decodeEnvelope(decoder, sampleRateHz)
	if err != nil {
		return nil, err
	}
	if len(envelope) == 0 {
		return nil, fmt.Errorf("no audio in %s", path)
	}

	clipSamples := int(float64(sampleRateHz) * interval.Seconds())
	if clipSamples < 1 {
		clipSamples = 1
	}

	log.Printf("Converted %s: %d envelope samples at %dHz", path, len(envelope), sampleRateHz)

	return &FileSource{
		envelope:    envelope,
		clipSamples: clipSamples,
	}, nil
}

// Next returns the next envelope window as a pulse for both hands.
func (s *FileSource) Next() (protocol.Pulse, error) {
	window := make([]byte, s.clipSamples)
	for i := range window {
		window[i] = s.envelope[(s.pos+i)%len(s.envelope)]
	}
	s.pos = (s.pos + s.clipSamples) % len(s.envelope)

	return protocol.Pulse{
		Channel: protocol.ChannelBoth,
		Mode:    protocol.ModeQueue,
		Samples: protocol.EncodeSamples(window),
	}, nil
}

// Close releases nothing; the envelope is decoded up front.
func (s *FileSource) Close() error {
	return nil
}

// decodeEnvelope folds 16-bit stereo PCM down to one 8-bit peak amplitude
// per haptic sample window.
func decodeEnvelope(decoder *mp3.Decoder, sampleRateHz int) ([]byte, error) {
	window := decoder.SampleRate() / sampleRateHz
	if window < 1 {
		window = 1
	}

	var envelope []byte
	var peak int
	framesInWindow := 0

	buf := make([]byte, 8192)
	for {
		n, err := decoder.Read(buf)
		// go-mp3 emits 16-bit little-endian stereo, 4 bytes per frame.
		for i := 0; i+3 < n; i += 4 {
			left := int(int16(uint16(buf[i]) | uint16(buf[i+1])<<8))
			right := int(int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8))

			amp := left
			if amp < 0 {
				amp = -amp
			}
			if r := abs(right); r > amp {
				amp = r
			}
			if amp > peak {
				peak = amp
			}

			framesInWindow++
			if framesInWindow == window {
				envelope = append(envelope, byte(peak*255/32767))
				peak = 0
				framesInWindow = 0
			}
		}

		if err == io.EOF {
			return envelope, nil
		}
		if err != nil {
			return nil, fmt.Errorf("mp3 decode error: %w", err)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
