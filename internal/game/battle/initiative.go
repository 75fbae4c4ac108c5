package battle

import "github.com/cory-johannsen/guildmaster/internal/game/dice"

var initiativeDie = dice.MustParse("1d20")

// RollInitiative sets each combatant's Initiative to a fresh 1d20.
//
// Precondition: src must be non-nil.
func RollInitiative(combatants []*Combatant, src dice.Source) {
	for _, c := range combatants {
		c.Initiative = initiativeDie.Roll(src).Total()
	}
}
