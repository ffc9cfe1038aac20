//go:build linux

package link

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WirelessLink reads link state from sysfs and signal strength from
// /proc/net/wireless for a single interface.
type WirelessLink struct {
	iface        string
	operstate    string
	wirelessPath string
}

// NewWireless creates a link monitor for the named interface.
func NewWireless(iface string) (*WirelessLink, error) {
	l := &WirelessLink{
		iface:        iface,
		operstate:    "/sys/class/net/" + iface + "/operstate",
		wirelessPath: "/proc/net/wireless",
	}
	if _, err := os.Stat("/sys/class/net/" + iface); err != nil {
		return nil, fmt.Errorf("interface %s: %w", iface, err)
	}
	return l, nil
}

// Connect verifies the interface is still present. Re-association is owned
// by the system's supplicant; there is nothing more to kick from here.
func (l *WirelessLink) Connect() error {
	if _, err := os.Stat("/sys/class/net/" + l.iface); err != nil {
		return fmt.Errorf("interface %s: %w", l.iface, err)
	}
	return nil
}

// State reports whether the interface operstate is "up".
func (l *WirelessLink) State() (bool, error) {
	data, err := os.ReadFile(l.operstate)
	if err != nil {
		return false, fmt.Errorf("read operstate: %w", err)
	}
	return strings.TrimSpace(string(data)) == "up", nil
}

// SignalStrength parses the level column of /proc/net/wireless.
func (l *WirelessLink) SignalStrength() (int, error) {
	data, err := os.ReadFile(l.wirelessPath)
	if err != nil {
		return SignalNone, fmt.Errorf("read %s: %w", l.wirelessPath, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 || !strings.HasPrefix(fields[0], l.iface+":") {
			continue
		}
		// Level column looks like "-56." on most drivers.
		level := strings.TrimSuffix(fields[3], ".")
		v, err := strconv.ParseFloat(level, 64)
		if err != nil {
			return SignalNone, fmt.Errorf("parse signal level %q: %w", fields[3], err)
		}
		return int(v), nil
	}

	return SignalNone, fmt.Errorf("interface %s not found in %s", l.iface, l.wirelessPath)
}

// Close releases nothing; the monitor holds no descriptors between reads.
func (l *WirelessLink) Close() error {
	return nil
}
