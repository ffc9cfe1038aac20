//go:build !linux

package link

import "errors"

// WirelessLink is not available on non-Linux platforms.
type WirelessLink struct{}

// NewWireless returns an error on non-Linux platforms.
func NewWireless(iface string) (*WirelessLink, error) {
	return nil, errors.New("link: not supported on this platform (requires Linux)")
}

func (l *WirelessLink) Connect() error { return errors.New("link: not supported") }

func (l *WirelessLink) State() (bool, error) { return false, errors.New("link: not supported") }

func (l *WirelessLink) SignalStrength() (int, error) {
	return SignalNone, errors.New("link: not supported")
}

func (l *WirelessLink) Close() error { return nil }
