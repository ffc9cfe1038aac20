// Package health samples live system counters into point-in-time records.
package health

import (
	"runtime"
	"sync"
	"time"

	"github.com/cfern/casa-central/internal/link"
)

// Alert thresholds, matching the installation's monitoring conventions.
const (
	// LowMemoryBytes marks a snapshot as memory-constrained.
	LowMemoryBytes = 30000

	// WeakSignalDBm marks a snapshot as having poor wireless reception.
	WeakSignalDBm = -80
)

// Snapshot is a point-in-time health record. Created fresh on each
// Sample call; never persisted.
type Snapshot struct {
	FreeMemory    uint64
	MinFreeMemory uint64
	Signal        int
	UptimeSeconds uint64
	SessionUp     bool
}

// LowMemory reports whether free memory sits below the alert threshold.
func (s Snapshot) LowMemory() bool { return s.FreeMemory < LowMemoryBytes }

// WeakSignal reports whether the signal reading is valid but below the
// alert threshold.
func (s Snapshot) WeakSignal() bool {
	return s.Signal != link.SignalNone && s.Signal < WeakSignalDBm
}

// SignalSource is the slice of link.Link the provider needs.
type SignalSource interface {
	SignalStrength() (int, error)
}

// Provider samples memory, uptime, signal strength and the session flag.
type Provider struct {
	start     time.Time
	signal    SignalSource
	sessionUp func() bool
	now       func() time.Time
	readFree  func() uint64

	mu      sync.Mutex
	minFree uint64
}

// NewProvider creates a provider. sessionUp is polled on every sample.
func NewProvider(start time.Time, signal SignalSource, sessionUp func() bool) *Provider {
	return &Provider{
		start:     start,
		signal:    signal,
		sessionUp: sessionUp,
		now:       time.Now,
		readFree:  readFreeMemory,
	}
}

// Sample reads the live counters. A failed signal query yields
// link.SignalNone, distinguishable from every real dBm reading.
func (p *Provider) Sample() Snapshot {
	free := p.readFree()

	p.mu.Lock()
	if p.minFree == 0 || free < p.minFree {
		p.minFree = free
	}
	minFree := p.minFree
	p.mu.Unlock()

	signal, err := p.signal.SignalStrength()
	if err != nil {
		signal = link.SignalNone
	}

	return Snapshot{
		FreeMemory:    free,
		MinFreeMemory: minFree,
		Signal:        signal,
		UptimeSeconds: uint64(p.now().Sub(p.start) / time.Second),
		SessionUp:     p.sessionUp(),
	}
}

// readFreeMemory approximates "free heap" for a Go process: heap space
// obtained from the OS but not currently in use.
func readFreeMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapSys - m.HeapInuse
}
