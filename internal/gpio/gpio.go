// Package gpio drives actuator outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single GPIO output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(on bool) error

	// Close drives the line low and releases it.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinLights = 18 // lighting relay
	DefaultPinHVAC   = 19 // air-conditioning relay
)
