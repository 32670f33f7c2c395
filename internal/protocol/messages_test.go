// ABOUTME: Tests for pulse feed protocol messages
// ABOUTME: Tests sample encoding and pulse validation
package protocol

import (
	"testing"
)

func TestSampleEncodingRoundTrip(t *testing.T) {
	samples := []byte{0, 15, 255, 128, 1}

	decoded, err := DecodeSamples(EncodeSamples(samples))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestDecodeSamplesRejectsGarbage(t *testing.T) {
	if _, err := DecodeSamples("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestValidPulse(t *testing.T) {
	tests := []struct {
		name    string
		pulse   Pulse
		wantErr bool
	}{
		{"queue left", Pulse{Channel: ChannelLeft, Mode: ModeQueue}, false},
		{"mix both", Pulse{Channel: ChannelBoth, Mode: ModeMix}, false},
		{"preempt right", Pulse{Channel: ChannelRight, Mode: ModePreempt}, false},
		{"bad channel", Pulse{Channel: "middle", Mode: ModeQueue}, true},
		{"bad mode", Pulse{Channel: ChannelLeft, Mode: "blend"}, true},
		{"empty", Pulse{}, true},
	}

	for _, tt := range tests {
		err := ValidPulse(tt.pulse)
		if tt.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s: expected no error, got %v", tt.name, err)
		}
	}
}
