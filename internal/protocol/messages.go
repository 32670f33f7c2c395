// ABOUTME: Pulse feed protocol message type definitions
// ABOUTME: Defines structs for all message types exchanged with a feeder
package protocol

import (
	"encoding/base64"
	"fmt"
)

// Playback modes a pulse message may request.
const (
	ModePreempt = "preempt"
	ModeQueue   = "queue"
	ModeMix     = "mix"
)

// Channel names a pulse message may target.
const (
	ChannelLeft  = "left"
	ChannelRight = "right"
	ChannelBoth  = "both"
)

// Message is the top-level wrapper for all feed messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientHello is sent by players to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains player device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the feeder's response to client/hello
type ServerHello struct {
	ServerID     string `json:"server_id"`
	Name         string `json:"name"`
	Version      int    `json:"version"`
	SampleRateHz int    `json:"sample_rate_hz"`
}

// Pulse carries one haptic clip for a target channel
type Pulse struct {
	Channel string `json:"channel"` // "left", "right" or "both"
	Mode    string `json:"mode"`    // "preempt", "queue" or "mix"
	Samples string `json:"samples"` // Base64-encoded 8-bit amplitude samples
}

// ClearCommand drops pending playback on a channel
type ClearCommand struct {
	Channel string `json:"channel"`
}

// StatsReport is sent back to the feeder periodically
type StatsReport struct {
	PredictionHits   int64 `json:"prediction_hits"`
	PredictionMisses int64 `json:"prediction_misses"`
	Underruns        int64 `json:"underruns"`
	SkippedTicks     int64 `json:"skipped_ticks"`
}

// EncodeSamples encodes raw amplitude samples for a Pulse payload.
func EncodeSamples(samples []byte) string {
	return base64.StdEncoding.EncodeToString(samples)
}

// DecodeSamples decodes a Pulse payload back into raw amplitude samples.
func DecodeSamples(encoded string) ([]byte, error) {
	samples, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid pulse samples: %w", err)
	}
	return samples, nil
}

// ValidPulse checks a pulse's channel and mode fields.
func ValidPulse(p Pulse) error {
	switch p.Channel {
	case ChannelLeft, ChannelRight, ChannelBoth:
	default:
		return fmt.Errorf("unknown pulse channel %q", p.Channel)
	}
	switch p.Mode {
	case ModePreempt, ModeQueue, ModeMix:
	default:
		return fmt.Errorf("unknown pulse mode %q", p.Mode)
	}
	return nil
}
