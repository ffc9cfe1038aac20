package link

import "sync"

// FakeLink is a test double with settable state.
type FakeLink struct {
	mu sync.Mutex

	// Up controls the value State returns.
	Up bool

	// Signal is the value SignalStrength returns when SignalErr is nil.
	Signal int

	// ConnectErr, StateErr, SignalErr are returned by the matching methods.
	ConnectErr error
	StateErr   error
	SignalErr  error

	// ConnectCalls counts calls to Connect.
	ConnectCalls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeLink creates a FakeLink that starts down with the given signal.
func NewFakeLink(signal int) *FakeLink {
	return &FakeLink{Signal: signal}
}

// SetUp flips the carrier state.
func (f *FakeLink) SetUp(up bool) {
	f.mu.Lock()
	f.Up = up
	f.mu.Unlock()
}

// Connect records the attempt and returns ConnectErr.
func (f *FakeLink) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
	return f.ConnectErr
}

// State returns the scripted carrier state.
func (f *FakeLink) State() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StateErr != nil {
		return false, f.StateErr
	}
	return f.Up, nil
}

// SignalStrength returns the scripted signal level.
func (f *FakeLink) SignalStrength() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SignalErr != nil {
		return SignalNone, f.SignalErr
	}
	return f.Signal, nil
}

// Close marks the link as closed.
func (f *FakeLink) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
