package unit

import "fmt"

// AbilityKind identifies a job ability. Each job owns exactly two kinds.
type AbilityKind int

const (
	// RageStrike (Warrior) raises attack while health is below half.
	RageStrike AbilityKind = iota + 1
	// Counter (Warrior) is the chance to strike back when hit.
	Counter
	// GuardianOath (Knight) reduces damage taken while protecting an ally.
	GuardianOath
	// HeavenlyBlessing (Knight) regenerates health each turn.
	HeavenlyBlessing
	// ElementalBurst (Mage) adds bonus damage to magic attacks on a successful roll.
	ElementalBurst
	// ManaDrain (Mage) restores mana on a kill.
	ManaDrain
	// HolyRadiance (Priest) amplifies healing.
	HolyRadiance
	// Miracle (Priest) is the chance to revive a fallen ally.
	Miracle
	// ShadowStep (Assassin) greatly raises evasion.
	ShadowStep
	// LethalStrike (Assassin) is the chance for a critical hit to kill outright.
	LethalStrike
	// HawkEye (Ranger) grants perfect accuracy.
	HawkEye
	// MultiShot (Ranger) is the chance to hit additional targets.
	MultiShot
	// WisdomRadiance (Sage) raises attack and magic power.
	WisdomRadiance
	// Omnipotence (Sage) is the chance to combine physical and magical attack.
	Omnipotence
)

type abilityInfo struct {
	name        string
	description string
}

var abilityInfos = map[AbilityKind]abilityInfo{
	RageStrike:       {"Rage Strike", "Attack increases while health is below 50%"},
	Counter:          {"Counter", "Chance to counterattack when hit"},
	GuardianOath:     {"Guardian's Oath", "Reduces damage taken while protecting allies"},
	HeavenlyBlessing: {"Heavenly Blessing", "Recovers health every turn"},
	ElementalBurst:   {"Elemental Burst", "Bonus damage on magic attacks"},
	ManaDrain:        {"Mana Drain", "Recovers mana on a kill"},
	HolyRadiance:     {"Holy Radiance", "Amplifies healing"},
	Miracle:          {"Miracle", "Chance to revive a fallen ally"},
	ShadowStep:       {"Shadow Step", "Greatly increases evasion"},
	LethalStrike:     {"Lethal Strike", "Chance for a critical hit to kill instantly"},
	HawkEye:          {"Hawk Eye", "Accuracy becomes 100%"},
	MultiShot:        {"Multi Shot", "Attacks additional targets"},
	WisdomRadiance:   {"Wisdom Radiance", "Raises all combat power"},
	Omnipotence:      {"Omnipotence", "Combined physical and magical attack"},
}

// String returns the display name of the ability kind.
func (k AbilityKind) String() string {
	if info, ok := abilityInfos[k]; ok {
		return info.name
	}
	return fmt.Sprintf("ability(%d)", int(k))
}

// Description returns the one-line effect description of the ability kind.
func (k AbilityKind) Description() string {
	return abilityInfos[k].description
}

// Ability is a job ability materialized for a unit's current level, mastery and awakening.
// Chance and Value are pure functions of that state; they are never edited directly.
type Ability struct {
	Kind        AbilityKind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	// Chance is the trigger probability in [0, 1].
	Chance float64 `json:"chance"`
	// Value is the effect magnitude.
	Value float64 `json:"value"`
}

// AbilityFormula derives an Ability from unit progression.
type AbilityFormula struct {
	Kind   AbilityKind `yaml:"-"`
	Chance Scaling     `yaml:"chance"`
	Value  Scaling     `yaml:"value"`
	// ValuePerMaxHealth adds maxHealth * ValuePerMaxHealth to the value.
	ValuePerMaxHealth float64 `yaml:"value_per_max_health"`
}

// At materializes the ability for the given mastery, awakening tier and max health.
//
// Postcondition: Chance is clamped to [0, 1].
func (f AbilityFormula) At(mastery float64, awakening int, maxHealth float64) Ability {
	return Ability{
		Kind:        f.Kind,
		Name:        f.Kind.String(),
		Description: f.Kind.Description(),
		Chance:      clamp(f.Chance.At(mastery, awakening), 0, 1),
		Value:       f.Value.At(mastery, awakening) + maxHealth*f.ValuePerMaxHealth,
	}
}

// regenerateAbilities rebuilds the ability list from the job formula.
func (u *Unit) regenerateAbilities() {
	f := u.formula()
	abilities := make([]Ability, 0, len(f.Abilities))
	for _, af := range f.Abilities {
		abilities = append(abilities, af.At(u.mastery, u.awakening, u.stats.MaxHealth))
	}
	u.abilities = abilities
}

// Abilities returns a copy of the unit's current abilities in job order.
func (u *Unit) Abilities() []Ability {
	out := make([]Ability, len(u.abilities))
	copy(out, u.abilities)
	return out
}

// Ability returns the ability of the given kind, if this unit's job has it.
// Absence is not an error: a job that lacks the kind simply gets no modifier.
func (u *Unit) Ability(kind AbilityKind) (Ability, bool) {
	for _, a := range u.abilities {
		if a.Kind == kind {
			return a, true
		}
	}
	return Ability{}, false
}
