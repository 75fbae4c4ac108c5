package unit

import (
	"fmt"
	"math"
)

// DefenseMitigation is the share of defense subtracted from incoming damage.
const DefenseMitigation = 0.5

// MinimumDamage is the floor of mitigated damage for a hit that was not evaded.
const MinimumDamage = 1.0

// DefaultReviveFraction is the health fraction restored by a standard revive.
const DefaultReviveFraction = 0.5

// ApplyDamage runs raw damage through evasion, defense, shield and health in that order.
//
// A dead unit ignores damage. On evasion nothing is applied and the damage event
// reports Evaded with a zero delta. Otherwise mitigated = max(1, raw - defense*0.5);
// the shield absorbs first and the remainder comes off health, floored at zero.
// The damage event always fires for a live target; the death event fires once, on
// the hit that moves health to zero.
//
// Precondition: src non-nil.
// Postcondition: Health never increases; health >= 0; returns ErrInvalidAmount for
// negative or non-finite raw with no state change and no events.
func (u *Unit) ApplyDamage(raw float64, src Source) (DamageResult, error) {
	res := DamageResult{UnitID: u.id, Raw: raw}
	if !validAmount(raw) {
		return res, fmt.Errorf("apply damage %v: %w", raw, ErrInvalidAmount)
	}
	if !u.IsAlive() {
		return res, nil
	}

	if roll(src, u.stats.Evasion) {
		res.Evaded = true
		u.emitDamage(res)
		return res, nil
	}

	remaining := math.Max(MinimumDamage, raw-u.stats.Defense*DefenseMitigation)
	res.Mitigated = remaining

	if u.shield > 0 {
		absorbed := math.Min(u.shield, remaining)
		u.shield -= absorbed
		remaining -= absorbed
		res.ShieldAbsorbed = absorbed
	}

	before := u.health
	u.health = math.Max(0, u.health-remaining)
	res.HealthDelta = before - u.health
	res.Killed = !u.IsAlive()

	u.emitDamage(res)
	if res.Killed {
		u.emitDeath()
	}
	return res, nil
}

// ApplyHeal restores health, clamped to max health. A dead unit ignores healing.
//
// Postcondition: Returns the healed amount, min(amount, maxHealth-health); the heal
// event carries the same value. ErrInvalidAmount for negative or non-finite input.
func (u *Unit) ApplyHeal(amount float64) (float64, error) {
	if !validAmount(amount) {
		return 0, fmt.Errorf("apply heal %v: %w", amount, ErrInvalidAmount)
	}
	if !u.IsAlive() {
		return 0, nil
	}
	actual := math.Min(amount, u.stats.MaxHealth-u.health)
	u.health += actual
	u.emitHeal(actual)
	return actual, nil
}

// Revive brings a dead unit back with fraction*maxHealth health. It is the only
// transition from dead to alive; a living unit is left unchanged.
//
// Postcondition: Returns true if the unit was revived. ErrInvalidFraction when
// fraction is outside (0, 1].
func (u *Unit) Revive(fraction float64) (bool, error) {
	if !(fraction > 0 && fraction <= 1) {
		return false, fmt.Errorf("revive %v: %w", fraction, ErrInvalidFraction)
	}
	if u.IsAlive() {
		return false, nil
	}
	u.health = u.stats.MaxHealth * fraction
	return true, nil
}

// AddShield raises the shield by amount, capped at max shield.
func (u *Unit) AddShield(amount float64) error {
	if !validAmount(amount) {
		return fmt.Errorf("add shield %v: %w", amount, ErrInvalidAmount)
	}
	u.shield = math.Min(u.shield+amount, u.stats.MaxShield)
	return nil
}

// RestoreMana raises mana by amount, capped at max mana.
func (u *Unit) RestoreMana(amount float64) error {
	if !validAmount(amount) {
		return fmt.Errorf("restore mana %v: %w", amount, ErrInvalidAmount)
	}
	u.mana = math.Min(u.mana+amount, u.stats.MaxMana)
	return nil
}

// GetAttackDamage rolls one outgoing attack. Rolls are consumed in a fixed order:
// critical, accuracy, then variance. A miss returns 0 after the accuracy roll.
//
// Casters use magic power, everyone else attack. The unit is never mutated.
//
// Precondition: src non-nil.
func (u *Unit) GetAttackDamage(src Source) float64 {
	base := u.stats.Attack
	if u.formula().Caster {
		base = u.stats.MagicPower
	}
	if roll(src, u.stats.CriticalRate) {
		base *= u.stats.CriticalDamage
	}
	if !roll(src, u.stats.Accuracy) {
		return 0
	}
	return base * variance(src)
}

// GetHealPower rolls one outgoing heal: magicPower*0.8 times the job heal bonus,
// scaled by a uniform factor in [0.9, 1.1).
//
// Precondition: src non-nil.
func (u *Unit) GetHealPower(src Source) float64 {
	return u.stats.MagicPower * 0.8 * u.formula().HealBonus * variance(src)
}

// IsCaster reports whether the unit attacks with magic power.
func (u *Unit) IsCaster() bool {
	return u.formula().Caster
}

// AttackPower returns attack modified by abilities: Rage Strike applies while
// health is below half, Wisdom Radiance always applies.
func (u *Unit) AttackPower() float64 {
	power := u.stats.Attack
	if a, ok := u.Ability(RageStrike); ok && u.HealthFraction() < 0.5 {
		power *= 1 + a.Value
	}
	if a, ok := u.Ability(WisdomRadiance); ok {
		power *= 1 + a.Value
	}
	return power
}

// MagicAttackPower returns magic power modified by abilities. Elemental Burst
// needs a fresh roll against its chance on every call; Wisdom Radiance always applies.
//
// Precondition: src non-nil.
func (u *Unit) MagicAttackPower(src Source) float64 {
	power := u.stats.MagicPower
	if a, ok := u.Ability(ElementalBurst); ok && roll(src, a.Chance) {
		power *= 1 + a.Value
	}
	if a, ok := u.Ability(WisdomRadiance); ok {
		power *= 1 + a.Value
	}
	return power
}

// PhysicalDefense returns defense times the job's physical defense bonus.
func (u *Unit) PhysicalDefense() float64 {
	return u.stats.Defense * u.formula().PhysicalDefenseBonus
}

// MagicalDefense returns (defense*0.7 + magicPower*0.3) times the job's magical defense bonus.
func (u *Unit) MagicalDefense() float64 {
	return (u.stats.Defense*0.7 + u.stats.MagicPower*0.3) * u.formula().MagicalDefenseBonus
}

// HealingPower returns magicPower*0.8 amplified by Holy Radiance when present and
// by the job's healing power bonus.
func (u *Unit) HealingPower() float64 {
	power := u.stats.MagicPower * 0.8 * u.formula().HealingPowerBonus
	if a, ok := u.Ability(HolyRadiance); ok {
		power *= 1 + a.Value
	}
	return power
}
