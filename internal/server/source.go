// ABOUTME: Pulse source abstraction for the feeder
// ABOUTME: Sources produce the haptic pulses the server broadcasts
package server

import (
	"github.com/hapticore/hapticore-go/internal/protocol"
)

// Source produces the pulses the feeder broadcasts.
type Source interface {
	// Next returns the next pulse to broadcast.
	Next() (protocol.Pulse, error)

	// Close releases source resources.
	Close() error
}
