// Package progress implements the weighted progress tracker shared by all
// executors of a pipeline run. Registration assigns each unit a weight;
// updates carry a unit's internal progress in [0, 100]; snapshots aggregate
// the weighted sum. One mutex guards both paths so a snapshot is always
// internally consistent, including when polled from another goroutine while
// a concurrent group is executing.
package progress

import (
	"sync"
)

// UnitStatus is the per-unit detail included in a Snapshot.
type UnitStatus struct {
	// ID is the tracker id the unit was registered under
	ID string

	// Name is the unit's display name
	Name string

	// Weight is the unit's maximum contribution to overall progress
	Weight float64

	// Progress is the unit's internal progress in [0, 100]
	Progress float64

	// Done reports whether the unit has finished executing
	Done bool
}

// Snapshot is a consistent view of the tracker's state.
type Snapshot struct {
	// Overall is the aggregate progress in [0, 100]
	Overall float64

	// CurrentUnit is the display name of the unit most recently started
	CurrentUnit string

	// Running reports whether a run is in flight
	Running bool

	// Units holds per-unit detail in registration order
	Units []UnitStatus
}

type unitEntry struct {
	name     string
	weight   float64
	progress float64
	touched  bool
	done     bool
}

// Tracker aggregates weighted per-unit progress. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	order   []string
	units   map[string]*unitEntry
	current string
	running bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		units: make(map[string]*unitEntry),
	}
}

// Register adds a unit with its weight. Called once per unit before
// execution begins; re-registering an id is a no-op.
func (t *Tracker) Register(id, name string, weight float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.units[id]; ok {
		return
	}
	t.order = append(t.order, id)
	t.units[id] = &unitEntry{name: name, weight: weight}
}

// Update records a unit's internal progress. Out-of-range values are
// clamped to [0, 100], not rejected. Unknown ids are ignored.
func (t *Tracker) Update(id string, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.units[id]
	if !ok {
		return
	}
	entry.progress = clamp(progress)
	entry.touched = true
}

// Start marks a unit as the currently executing one.
func (t *Tracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.units[id]; ok {
		t.current = entry.name
	}
}

// Complete marks a unit as finished. A unit that never reported progress
// is set to 100 so that overall progress reaches exactly 100 when every
// unit finishes cleanly.
func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.units[id]
	if !ok {
		return
	}
	entry.done = true
	if !entry.touched {
		entry.progress = 100
	}
}

// SetRunning flips the run-in-flight flag.
func (t *Tracker) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	if !running {
		t.current = ""
	}
}

// Snapshot returns a consistent view of overall and per-unit progress.
// Overall is the sum of weight * progress / 100 over registered units.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		CurrentUnit: t.current,
		Running:     t.running,
		Units:       make([]UnitStatus, 0, len(t.order)),
	}
	for _, id := range t.order {
		entry := t.units[id]
		snap.Overall += entry.weight * entry.progress / 100
		snap.Units = append(snap.Units, UnitStatus{
			ID:       id,
			Name:     entry.name,
			Weight:   entry.weight,
			Progress: entry.progress,
			Done:     entry.done,
		})
	}
	return snap
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
