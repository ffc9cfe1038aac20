// Package stats tracks message and connectivity counters for the daemon.
// The tracker is written by the event-dispatch goroutine and the publish
// facade, and read by every periodic task.
package stats

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Published       uint32
	Received        uint32
	PublishFailures uint32
	Disconnects     uint32
	OfflineDuration time.Duration
	LastMessage     time.Time
}

// Tracker holds the counters behind a mutex.
type Tracker struct {
	mu           sync.Mutex
	snap         Snapshot
	offlineSince time.Time // zero = currently online (or never went offline)
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordPublish counts one publish attempt: Published on success,
// PublishFailures otherwise.
func (t *Tracker) RecordPublish(ok bool) {
	t.mu.Lock()
	if ok {
		t.snap.Published++
	} else {
		t.snap.PublishFailures++
	}
	t.mu.Unlock()
}

// RecordReceived counts one incoming message and stamps its arrival time.
func (t *Tracker) RecordReceived(ts time.Time) {
	t.mu.Lock()
	t.snap.Received++
	t.snap.LastMessage = ts
	t.mu.Unlock()
}

// RecordDisconnect counts one session loss.
func (t *Tracker) RecordDisconnect() {
	t.mu.Lock()
	t.snap.Disconnects++
	t.mu.Unlock()
}

// MarkOffline starts the offline clock. Calling it while already offline
// keeps the original start time.
func (t *Tracker) MarkOffline(now time.Time) {
	t.mu.Lock()
	if t.offlineSince.IsZero() {
		t.offlineSince = now
	}
	t.mu.Unlock()
}

// MarkOnline closes an open offline interval and adds it to the
// accumulated offline duration. A no-op when not offline.
func (t *Tracker) MarkOnline(now time.Time) {
	t.mu.Lock()
	if !t.offlineSince.IsZero() {
		t.snap.OfflineDuration += now.Sub(t.offlineSince)
		t.offlineSince = time.Time{}
	}
	t.mu.Unlock()
}

// Snapshot returns a copy of the counters. Safe from any goroutine.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	s := t.snap
	t.mu.Unlock()
	return s
}

// Reset zeroes the counters except Disconnects and OfflineDuration,
// which carry over as historical record. An open offline interval keeps
// its start time so it still closes correctly.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.snap = Snapshot{
		Disconnects:     t.snap.Disconnects,
		OfflineDuration: t.snap.OfflineDuration,
	}
	t.mu.Unlock()
}
