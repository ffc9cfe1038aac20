// Package link abstracts the wireless network link. Association and
// authentication belong to the system's network manager; this package only
// reports carrier state and signal strength, and re-kicks the interface on
// reconnect attempts.
package link

// SignalNone is reported when the signal-strength query fails. It sits
// below the valid dBm range so consumers can tell it from a real reading.
const SignalNone = -127

// Link reports wireless-link state.
type Link interface {
	// Connect asks the platform to (re-)establish the link.
	Connect() error

	// State reports whether the link currently has a carrier.
	State() (bool, error)

	// SignalStrength returns the received signal strength in dBm.
	SignalStrength() (int, error)

	// Close releases link resources.
	Close() error
}
