// Package battle orchestrates fights between two sides of units.
package battle

import (
	"sort"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// Side distinguishes the two teams of a battle.
type Side int

const (
	// NoSide is the winner of a battle that has not ended.
	NoSide Side = iota
	Allies
	Enemies
)

// String returns a human-readable side label.
func (s Side) String() string {
	switch s {
	case Allies:
		return "allies"
	case Enemies:
		return "enemies"
	default:
		return "none"
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Allies {
		return Enemies
	}
	return Allies
}

// Combatant is one unit's seat in a battle.
type Combatant struct {
	Unit *unit.Unit
	Side Side
	// Initiative breaks speed ties; higher acts first.
	Initiative int
}

// Battle holds the live state of one fight.
type Battle struct {
	ID string
	// Combatants is the turn order: speed descending, then initiative descending.
	Combatants []*Combatant
	// Round is the number of rounds resolved so far.
	Round int
	// Over is true once a side has no living units.
	Over   bool
	Winner Side
}

// Order returns the units in turn order.
//
// Postcondition: len(result) == len(b.Combatants).
func (b *Battle) Order() []*unit.Unit {
	out := make([]*unit.Unit, len(b.Combatants))
	for i, c := range b.Combatants {
		out[i] = c.Unit
	}
	return out
}

// Living returns the living combatants on side, in turn order.
func (b *Battle) Living(side Side) []*Combatant {
	var alive []*Combatant
	for _, c := range b.Combatants {
		if c.Side == side && c.Unit.IsAlive() {
			alive = append(alive, c)
		}
	}
	return alive
}

// HasLiving reports whether any unit on side is alive.
func (b *Battle) HasLiving(side Side) bool {
	for _, c := range b.Combatants {
		if c.Side == side && c.Unit.IsAlive() {
			return true
		}
	}
	return false
}

// checkOver sets Over and Winner when a side has been wiped.
//
// Postcondition: Returns b.Over.
func (b *Battle) checkOver() bool {
	if b.Over {
		return true
	}
	allies, enemies := b.HasLiving(Allies), b.HasLiving(Enemies)
	switch {
	case allies && enemies:
		return false
	case allies:
		b.Winner = Allies
	case enemies:
		b.Winner = Enemies
	}
	b.Over = true
	return true
}

// sortTurnOrder orders combatants by speed, then initiative, keeping insertion order on ties.
func sortTurnOrder(cs []*Combatant) {
	sort.SliceStable(cs, func(i, j int) bool {
		si, sj := cs[i].Unit.Stats().Speed, cs[j].Unit.Stats().Speed
		if si != sj {
			return si > sj
		}
		return cs[i].Initiative > cs[j].Initiative
	})
}
