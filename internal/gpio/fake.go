package gpio

import "sync"

// FakeOutput records every level written for test assertions.
type FakeOutput struct {
	mu sync.Mutex

	// On is the last level written.
	On bool

	// Writes contains every level passed to Set, in order.
	Writes []bool

	// SetErr, if set, will be returned by Set.
	SetErr error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput driven low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.On = on
	f.Writes = append(f.Writes, on)
	return nil
}

// Level returns the last level written.
func (f *FakeOutput) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.mu.Lock()
	f.On = false
	f.Writes = nil
	f.Closed = false
	f.SetErr = nil
	f.mu.Unlock()
}
