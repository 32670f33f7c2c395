// ABOUTME: Version constants for the player
// ABOUTME: Reported in the feed handshake device info
package version

const (
	// Version is the software version reported to feeders.
	Version = "0.3.0"

	// Product is the product name.
	Product = "Hapticore Player"

	// Manufacturer identifies the project.
	Manufacturer = "Hapticore"
)
