// Package guild manages the player's roster of units and its persistence.
package guild

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// ErrUnitNotFound is returned when a unit id is not in the roster.
var ErrUnitNotFound = errors.New("unit not found")

// ErrDuplicateUnit is returned when adding a unit whose id is already registered.
var ErrDuplicateUnit = errors.New("unit already in roster")

// Roster tracks the guild's units by id.
// Membership operations are safe for concurrent use; the units themselves are not,
// and callers serialize mutation through Service.
type Roster struct {
	mu    sync.RWMutex
	units map[string]*unit.Unit
}

// NewRoster creates an empty Roster.
func NewRoster() *Roster {
	return &Roster{units: make(map[string]*unit.Unit)}
}

// Add registers u.
//
// Precondition: u must be non-nil.
// Postcondition: Returns ErrDuplicateUnit if u.ID() is already registered.
func (r *Roster) Add(u *unit.Unit) error {
	if u == nil {
		panic("guild.Roster.Add: unit must not be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[u.ID()]; exists {
		return fmt.Errorf("adding %q: %w", u.ID(), ErrDuplicateUnit)
	}
	r.units[u.ID()] = u
	return nil
}

// Remove deletes the unit with id and returns it.
//
// Postcondition: Returns ErrUnitNotFound if id is unknown.
func (r *Roster) Remove(id string) (*unit.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("removing %q: %w", id, ErrUnitNotFound)
	}
	delete(r.units, id)
	return u, nil
}

// Get returns the unit with id.
//
// Postcondition: Returns (unit, true) if found, or (nil, false) otherwise.
func (r *Roster) Get(id string) (*unit.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// All returns every unit ordered by name, then id.
func (r *Roster) All() []*unit.Unit {
	r.mu.RLock()
	out := make([]*unit.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Len returns the number of units in the roster.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Snapshots captures every unit in All order.
func (r *Roster) Snapshots() []unit.Snapshot {
	all := r.All()
	out := make([]unit.Snapshot, len(all))
	for i, u := range all {
		out[i] = u.Snapshot()
	}
	return out
}

// Replace swaps the whole membership for units.
//
// Postcondition: Returns ErrDuplicateUnit, leaving the roster unchanged, if two units share an id.
func (r *Roster) Replace(units []*unit.Unit) error {
	next := make(map[string]*unit.Unit, len(units))
	for _, u := range units {
		if _, exists := next[u.ID()]; exists {
			return fmt.Errorf("replacing roster: %q: %w", u.ID(), ErrDuplicateUnit)
		}
		next[u.ID()] = u
	}
	r.mu.Lock()
	r.units = next
	r.mu.Unlock()
	return nil
}
