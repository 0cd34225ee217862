package registry

import (
	"sync"
	"time"
)

// HistoryCapacity is the fixed number of prior values an entry retains.
// Clients depend on it; it is not configurable.
const HistoryCapacity = 64

// Entry is one device's clipboard: the current value plus a bounded history
// of previous values, oldest first.
type Entry struct {
	deviceID string

	mu         sync.Mutex
	current    string
	hasCurrent bool
	history    []string
	updatedAt  time.Time
}

// NewEntry returns an empty entry for deviceID.
func NewEntry(deviceID string) *Entry {
	return &Entry{deviceID: deviceID}
}

// DeviceID returns the id the entry was created with.
func (e *Entry) DeviceID() string { return e.deviceID }

// Write records content as the current value.
//
// The first write stores content both as current and as the sole history
// element. Every later write pushes the outgoing current value onto history,
// evicting the oldest element first once HistoryCapacity is reached.
func (e *Entry) Write(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updatedAt = time.Now()

	if !e.hasCurrent {
		e.current = content
		e.hasCurrent = true
		e.history = append(e.history, content)
		return
	}

	if len(e.history) < HistoryCapacity {
		e.history = append(e.history, e.current)
	} else {
		copy(e.history, e.history[1:])
		e.history[len(e.history)-1] = e.current
	}
	e.current = content
}

// HistoryCount returns the number of retained history values.
func (e *Entry) HistoryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// Current returns the current value and whether anything has been written.
func (e *Entry) Current() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.hasCurrent
}

// History returns a copy of the history, oldest first.
func (e *Entry) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.history))
	copy(out, e.history)
	return out
}

// Snapshot is a point-in-time copy of an entry.
type Snapshot struct {
	DeviceID   string
	Current    string
	HasCurrent bool
	History    []string
	UpdatedAt  time.Time
}

// Snapshot returns a consistent copy of the entry state.
func (e *Entry) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := make([]string, len(e.history))
	copy(h, e.history)
	return Snapshot{
		DeviceID:   e.deviceID,
		Current:    e.current,
		HasCurrent: e.hasCurrent,
		History:    h,
		UpdatedAt:  e.updatedAt,
	}
}
