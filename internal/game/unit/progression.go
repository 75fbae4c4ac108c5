package unit

import (
	"fmt"
	"math"
)

// MaxAwakening is the highest awakening tier.
const MaxAwakening = 5

// AwakeningMinLevel is the level required to awaken.
const AwakeningMinLevel = 50

// MasteryPerLevel is the mastery gained on each level-up.
const MasteryPerLevel = 2.0

// MaxLevel is the level cap. Thresholds up to MaxLevel fit in an int.
const MaxLevel = 150

// ExperienceForLevel returns the experience needed to advance from level:
// 100 * level * 1.2^(level-1), truncated to an integer.
//
// Precondition: level >= 1.
// Postcondition: Saturates at math.MaxInt instead of overflowing.
func ExperienceForLevel(level int) int {
	v := 100 * float64(level) * math.Pow(1.2, float64(level-1))
	if v >= math.MaxInt {
		return math.MaxInt
	}
	// absorbs binary rounding such as 239.99999999999997 for level 2
	return int(v + 1e-9)
}

// GainExperience adds n experience without levelling up.
//
// Postcondition: ErrInvalidAmount when n < 0 or the total would overflow, state unchanged.
func (u *Unit) GainExperience(n int) error {
	if n < 0 {
		return fmt.Errorf("gain experience %d: %w", n, ErrInvalidAmount)
	}
	if n > math.MaxInt-u.experience {
		return fmt.Errorf("gain experience %d on top of %d: %w", n, u.experience, ErrInvalidAmount)
	}
	u.experience += n
	return nil
}

// CanLevelUp reports whether the unit is below MaxLevel and experience has
// reached the next threshold.
func (u *Unit) CanLevelUp() bool {
	return u.level < MaxLevel && u.experience >= u.experienceToNext
}

// LevelUp advances one level when CanLevelUp. The threshold is subtracted from
// experience so overflow carries forward. Mastery rises by MasteryPerLevel (capped),
// stats are re-derived from the table with pools fully restored and shield cleared,
// and abilities are regenerated.
//
// Postcondition: Returns true iff the level advanced by exactly one.
func (u *Unit) LevelUp() bool {
	if !u.CanLevelUp() {
		return false
	}
	u.experience -= u.experienceToNext
	u.level++
	u.experienceToNext = ExperienceForLevel(u.level)
	u.mastery = math.Min(MaxMastery, u.mastery+MasteryPerLevel)
	u.initializeStats()
	u.regenerateAbilities()
	return true
}

// LevelUpAll calls LevelUp until the unit can no longer advance.
//
// Postcondition: Returns the number of levels gained; Experience() < ExperienceToNextLevel()
// or Level() == MaxLevel.
func (u *Unit) LevelUpAll() int {
	gained := 0
	for u.LevelUp() {
		gained++
	}
	return gained
}

// CanAwaken reports whether the unit is level 50+ with an awakening tier below 5.
func (u *Unit) CanAwaken() bool {
	return u.level >= AwakeningMinLevel && u.awakening < MaxAwakening
}

// Awaken raises the awakening tier by one when CanAwaken. The six base attributes
// are multiplied by AwakeningStatMultiplier in place, compounding across tiers;
// tier-scaled attributes are re-evaluated, health and mana fully restored, and
// abilities regenerated.
//
// Postcondition: Returns true iff the tier advanced.
func (u *Unit) Awaken() bool {
	if !u.CanAwaken() {
		return false
	}
	u.awakening++

	s := &u.stats
	s.MaxHealth *= AwakeningStatMultiplier
	s.MaxMana *= AwakeningStatMultiplier
	s.Attack *= AwakeningStatMultiplier
	s.Defense *= AwakeningStatMultiplier
	s.MagicPower *= AwakeningStatMultiplier
	s.Speed *= AwakeningStatMultiplier
	s.MaxShield = s.MaxHealth * ShieldFraction

	scaled := u.table.BaseStats(u.job, u.rank, u.level, u.mastery, u.awakening)
	s.CriticalRate = scaled.CriticalRate
	s.CriticalDamage = scaled.CriticalDamage
	s.Accuracy = scaled.Accuracy
	s.Evasion = scaled.Evasion

	u.health = s.MaxHealth
	u.mana = s.MaxMana
	u.shield = math.Min(u.shield, s.MaxShield)
	u.regenerateAbilities()
	return true
}
