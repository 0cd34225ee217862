// Package registry implements the shared clipboard store.
// It is transport-agnostic: HTTP and gRPC handlers call into a *Registry
// constructed at startup, addressing entries by device id.
package registry

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultMaxContentBytes bounds a single clipboard value unless overridden.
const DefaultMaxContentBytes = 1 << 20

// Options tunes a Registry. The zero value keeps auto-registration on and
// imposes no content limit.
type Options struct {
	// RejectUnknown makes SetContent fail with KindNotFound for a device id
	// that was never created, instead of silently registering it.
	RejectUnknown bool
	// MaxContentBytes caps len(content) for SetContent. Zero means unlimited.
	MaxContentBytes int
}

// Scope tells whether SetContent targeted one device or all of them.
type Scope int

const (
	ScopeDevice Scope = iota + 1
	ScopeAll
)

// SetResult describes a successful SetContent call.
type SetResult struct {
	Scope    Scope
	DeviceID string // empty for ScopeAll
	Written  int    // number of entries written
}

// DeviceInfo is a listing row returned by Devices.
type DeviceInfo struct {
	DeviceID     string
	HistoryCount int
	HasCurrent   bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

type record struct {
	entry        *Entry
	seq          uint64
	registeredAt time.Time
}

// Registry maps device ids to entries.
//
// The map is guarded by mu; each Entry carries its own lock, so writes to
// different devices only contend on the brief map lookup.
type Registry struct {
	opts Options

	mu      sync.RWMutex
	entries map[string]*record
	seq     uint64

	// afterSnapshot runs between the broadcast snapshot and the fan-out.
	afterSnapshot func()
}

// New returns an empty Registry.
func New(opts Options) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[string]*record),
	}
}

// Create registers an empty entry for deviceID.
func (r *Registry) Create(deviceID string) error {
	if deviceID == "" {
		return InvalidInput("device id is empty")
	}

	r.mu.Lock()
	if _, ok := r.entries[deviceID]; ok {
		r.mu.Unlock()
		return &Error{Kind: KindAlreadyExists, DeviceID: deviceID}
	}
	r.insertLocked(deviceID)
	total := len(r.entries)
	r.mu.Unlock()

	slog.Info("device registered", "device", deviceID, "total", total)
	return nil
}

// Remove deletes the entry for deviceID.
func (r *Registry) Remove(deviceID string) error {
	r.mu.Lock()
	if _, ok := r.entries[deviceID]; !ok {
		r.mu.Unlock()
		return &Error{Kind: KindNotFound, DeviceID: deviceID}
	}
	delete(r.entries, deviceID)
	total := len(r.entries)
	r.mu.Unlock()

	slog.Info("device removed", "device", deviceID, "total", total)
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetContent writes content to deviceID, or to every registered device when
// deviceID is empty.
//
// A targeted write to an unknown device registers it first unless the
// registry was built with RejectUnknown. A broadcast writes to the entries
// present when the call starts, in registration order: devices created during
// the fan-out are skipped, and devices removed during it receive a write that
// is no longer reachable.
func (r *Registry) SetContent(deviceID, content string) (SetResult, error) {
	if limit := r.opts.MaxContentBytes; limit > 0 && len(content) > limit {
		return SetResult{}, &Error{Kind: KindTooLarge, DeviceID: deviceID, Detail: "limit is " + formatBytes(limit)}
	}

	if deviceID != "" {
		var e *Entry
		if r.opts.RejectUnknown {
			e = r.lookup(deviceID)
			if e == nil {
				return SetResult{}, &Error{Kind: KindNotFound, DeviceID: deviceID}
			}
		} else {
			e = r.getOrCreate(deviceID)
		}
		e.Write(content)
		LogContent("clipboard set", deviceID, content)
		return SetResult{Scope: ScopeDevice, DeviceID: deviceID, Written: 1}, nil
	}

	targets := r.snapshot()
	if r.afterSnapshot != nil {
		r.afterSnapshot()
	}
	for _, e := range targets {
		e.Write(content)
	}
	LogContent("clipboard broadcast", "*", content)
	return SetResult{Scope: ScopeAll, Written: len(targets)}, nil
}

// HistoryCount returns the history length for deviceID.
func (r *Registry) HistoryCount(deviceID string) (int, error) {
	e := r.lookup(deviceID)
	if e == nil {
		return 0, &Error{Kind: KindNotFound, DeviceID: deviceID}
	}
	return e.HistoryCount(), nil
}

// Snapshot returns a copy of the entry for deviceID.
func (r *Registry) Snapshot(deviceID string) (Snapshot, error) {
	e := r.lookup(deviceID)
	if e == nil {
		return Snapshot{}, &Error{Kind: KindNotFound, DeviceID: deviceID}
	}
	return e.Snapshot(), nil
}

// Devices lists registered devices in registration order.
func (r *Registry) Devices() []DeviceInfo {
	recs := r.ordered()
	out := make([]DeviceInfo, 0, len(recs))
	for _, rec := range recs {
		s := rec.entry.Snapshot()
		out = append(out, DeviceInfo{
			DeviceID:     s.DeviceID,
			HistoryCount: len(s.History),
			HasCurrent:   s.HasCurrent,
			RegisteredAt: rec.registeredAt,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	return out
}

// getOrCreate returns the entry for deviceID, registering an empty one if
// the id is unknown.
func (r *Registry) getOrCreate(deviceID string) *Entry {
	if e := r.lookup(deviceID); e != nil {
		return e
	}

	r.mu.Lock()
	if rec, ok := r.entries[deviceID]; ok {
		r.mu.Unlock()
		return rec.entry
	}
	e := r.insertLocked(deviceID)
	total := len(r.entries)
	r.mu.Unlock()

	slog.Info("device auto-registered", "device", deviceID, "total", total)
	return e
}

func (r *Registry) lookup(deviceID string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.entries[deviceID]; ok {
		return rec.entry
	}
	return nil
}

// insertLocked adds an empty entry. Must be called with r.mu held for writing.
func (r *Registry) insertLocked(deviceID string) *Entry {
	r.seq++
	e := NewEntry(deviceID)
	r.entries[deviceID] = &record{entry: e, seq: r.seq, registeredAt: time.Now()}
	return e
}

// snapshot returns the current entries in registration order.
func (r *Registry) snapshot() []*Entry {
	recs := r.ordered()
	out := make([]*Entry, len(recs))
	for i, rec := range recs {
		out[i] = rec.entry
	}
	return out
}

func (r *Registry) ordered() []*record {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.entries))
	for _, rec := range r.entries {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	slices.SortFunc(recs, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })
	return recs
}
