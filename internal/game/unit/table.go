package unit

import (
	"fmt"
	"math"
)

// AwakeningStatMultiplier is applied to the six base attributes once per awakening tier.
const AwakeningStatMultiplier = 1.1

// ShieldFraction is the share of max health that becomes max shield.
const ShieldFraction = 0.3

// Linear is a stat that grows linearly with level: Base + level*PerLevel.
type Linear struct {
	Base     float64 `yaml:"base"`
	PerLevel float64 `yaml:"per_level"`
}

// At evaluates the formula at level.
func (l Linear) At(level int) float64 {
	return l.Base + float64(level)*l.PerLevel
}

// Scaling is a value modulated by mastery and awakening tier:
// Base + mastery*PerMastery + awakening*PerAwakening.
type Scaling struct {
	Base         float64 `yaml:"base"`
	PerMastery   float64 `yaml:"per_mastery"`
	PerAwakening float64 `yaml:"per_awakening"`
}

// At evaluates the scaling for the given mastery and awakening tier.
func (s Scaling) At(mastery float64, awakening int) float64 {
	return s.Base + mastery*s.PerMastery + float64(awakening)*s.PerAwakening
}

// Fixed returns a Scaling that ignores mastery and awakening.
func Fixed(v float64) Scaling { return Scaling{Base: v} }

// JobFormula holds every coefficient that distinguishes one job from another.
// Adding or rebalancing a job is a change to this data, never to control flow.
type JobFormula struct {
	MaxHealth  Linear `yaml:"max_health"`
	MaxMana    Linear `yaml:"max_mana"`
	Attack     Linear `yaml:"attack"`
	Defense    Linear `yaml:"defense"`
	MagicPower Linear `yaml:"magic_power"`
	Speed      Linear `yaml:"speed"`

	CriticalRate Scaling `yaml:"critical_rate"`
	// LegendaryCritBonus is added to the critical rate of Legendary units.
	LegendaryCritBonus float64 `yaml:"legendary_crit_bonus"`
	CriticalDamage     Scaling `yaml:"critical_damage"`
	Accuracy           Scaling `yaml:"accuracy"`
	Evasion            Scaling `yaml:"evasion"`

	// Caster jobs attack with magic power instead of attack.
	Caster bool `yaml:"caster"`
	// HealBonus multiplies GetHealPower.
	HealBonus float64 `yaml:"heal_bonus"`
	// HealingPowerBonus multiplies the HealingPower query.
	HealingPowerBonus float64 `yaml:"healing_power_bonus"`
	// PhysicalDefenseBonus multiplies the PhysicalDefense query.
	PhysicalDefenseBonus float64 `yaml:"physical_defense_bonus"`
	// MagicalDefenseBonus multiplies the MagicalDefense query.
	MagicalDefenseBonus float64 `yaml:"magical_defense_bonus"`

	Abilities []AbilityFormula `yaml:"-"`
}

// Table maps jobs to formulas and ranks to stat multipliers.
// A Table is immutable once handed to units; With* methods return modified copies.
type Table struct {
	jobs  map[Job]JobFormula
	ranks map[Rank]float64
}

// Formula returns the formula for job.
//
// Postcondition: Returns (formula, true) if job is defined, or (zero, false).
func (t *Table) Formula(job Job) (JobFormula, bool) {
	f, ok := t.jobs[job]
	return f, ok
}

// RankMultiplier returns the uniform stat multiplier for rank; unknown ranks yield 1.
func (t *Table) RankMultiplier(rank Rank) float64 {
	if m, ok := t.ranks[rank]; ok {
		return m
	}
	return 1
}

// WithFormula returns a copy of t with job's formula replaced.
func (t *Table) WithFormula(job Job, f JobFormula) *Table {
	out := t.clone()
	out.jobs[job] = f
	return out
}

// WithRankMultiplier returns a copy of t with rank's multiplier replaced.
func (t *Table) WithRankMultiplier(rank Rank, m float64) *Table {
	out := t.clone()
	out.ranks[rank] = m
	return out
}

func (t *Table) clone() *Table {
	out := &Table{
		jobs:  make(map[Job]JobFormula, len(t.jobs)),
		ranks: make(map[Rank]float64, len(t.ranks)),
	}
	for j, f := range t.jobs {
		f.Abilities = append([]AbilityFormula(nil), f.Abilities...)
		out.jobs[j] = f
	}
	for r, m := range t.ranks {
		out.ranks[r] = m
	}
	return out
}

// Validate checks that every job and rank is covered and multipliers are positive.
//
// Postcondition: Returns nil or an error naming the first violation.
func (t *Table) Validate() error {
	for _, j := range Jobs {
		f, ok := t.jobs[j]
		if !ok {
			return fmt.Errorf("job table: missing formula for %s", j)
		}
		if len(f.Abilities) != 2 {
			return fmt.Errorf("job table: %s must define exactly 2 abilities, got %d", j, len(f.Abilities))
		}
	}
	for _, r := range Ranks {
		m, ok := t.ranks[r]
		if !ok {
			return fmt.Errorf("job table: missing multiplier for rank %s", r)
		}
		if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return fmt.Errorf("job table: rank %s multiplier must be positive, got %v", r, m)
		}
	}
	return nil
}

// Stats holds a unit's derived maxima and combat attributes.
type Stats struct {
	MaxHealth      float64 `json:"max_health"`
	MaxMana        float64 `json:"max_mana"`
	MaxShield      float64 `json:"max_shield"`
	Attack         float64 `json:"attack"`
	Defense        float64 `json:"defense"`
	MagicPower     float64 `json:"magic_power"`
	Speed          float64 `json:"speed"`
	CriticalRate   float64 `json:"critical_rate"`
	CriticalDamage float64 `json:"critical_damage"`
	Accuracy       float64 `json:"accuracy"`
	Evasion        float64 `json:"evasion"`
}

// BaseStats evaluates the formula table for the given identity and progression.
// Every linear attribute is (base + level*perLevel) * rankMultiplier * 1.1^awakening.
// MaxShield is ShieldFraction of MaxHealth.
//
// Precondition: job must be defined in t.
// Postcondition: Deterministic for identical inputs.
func (t *Table) BaseStats(job Job, rank Rank, level int, mastery float64, awakening int) Stats {
	f := t.jobs[job]
	mult := t.RankMultiplier(rank) * math.Pow(AwakeningStatMultiplier, float64(awakening))

	crit := f.CriticalRate.At(mastery, awakening)
	if rank == Legendary {
		crit += f.LegendaryCritBonus
	}

	s := Stats{
		MaxHealth:      f.MaxHealth.At(level) * mult,
		MaxMana:        f.MaxMana.At(level) * mult,
		Attack:         f.Attack.At(level) * mult,
		Defense:        f.Defense.At(level) * mult,
		MagicPower:     f.MagicPower.At(level) * mult,
		Speed:          f.Speed.At(level) * mult,
		CriticalRate:   clamp(crit, 0, 1),
		CriticalDamage: f.CriticalDamage.At(mastery, awakening),
		Accuracy:       clamp(f.Accuracy.At(mastery, awakening), 0, 1),
		Evasion:        clamp(f.Evasion.At(mastery, awakening), 0, 1),
	}
	s.MaxShield = s.MaxHealth * ShieldFraction
	return s
}

var defaultTable = &Table{
	ranks: map[Rank]float64{
		Common:    1.0,
		Uncommon:  1.15,
		Rare:      1.3,
		Epic:      1.5,
		Legendary: 1.8,
	},
	jobs: map[Job]JobFormula{
		Warrior: {
			MaxHealth:            Linear{100, 20},
			MaxMana:              Linear{50, 5},
			Attack:               Linear{15, 3},
			Defense:              Linear{10, 2},
			MagicPower:           Linear{5, 0.5},
			Speed:                Linear{8, 1},
			CriticalRate:         Fixed(0.15),
			LegendaryCritBonus:   0.1,
			CriticalDamage:       Scaling{Base: 1.5, PerAwakening: 0.1},
			Accuracy:             Fixed(0.9),
			Evasion:              Fixed(0.05),
			HealBonus:            1,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: RageStrike, Chance: Fixed(1), Value: Scaling{Base: 0.3, PerMastery: 0.003}},
				{Kind: Counter, Chance: Scaling{Base: 0.15, PerMastery: 0.001}, Value: Fixed(0.5)},
			},
		},
		Knight: {
			MaxHealth:            Linear{120, 25},
			MaxMana:              Linear{60, 6},
			Attack:               Linear{12, 2},
			Defense:              Linear{15, 3},
			MagicPower:           Linear{8, 1},
			Speed:                Linear{6, 0.8},
			CriticalRate:         Fixed(0.1),
			CriticalDamage:       Scaling{Base: 1.4, PerAwakening: 0.08},
			Accuracy:             Fixed(0.85),
			Evasion:              Scaling{Base: 0.03, PerMastery: 0.001},
			HealBonus:            1,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1.2,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: GuardianOath, Chance: Scaling{Base: 0.3, PerMastery: 0.002}, Value: Fixed(0.5)},
				{Kind: HeavenlyBlessing, Chance: Fixed(0.2), ValuePerMaxHealth: 0.02},
			},
		},
		Mage: {
			MaxHealth:            Linear{60, 10},
			MaxMana:              Linear{100, 15},
			Attack:               Linear{5, 0.5},
			Defense:              Linear{5, 1},
			MagicPower:           Linear{20, 4},
			Speed:                Linear{10, 1.2},
			CriticalRate:         Scaling{Base: 0.2, PerMastery: 0.002},
			CriticalDamage:       Scaling{Base: 1.8, PerAwakening: 0.12},
			Accuracy:             Fixed(0.95),
			Evasion:              Fixed(0.08),
			Caster:               true,
			HealBonus:            1,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: ElementalBurst, Chance: Scaling{Base: 0.25, PerMastery: 0.002}, Value: Fixed(0.4)},
				{Kind: ManaDrain, Chance: Fixed(0.3), Value: Fixed(0.1)},
			},
		},
		Priest: {
			MaxHealth:            Linear{70, 12},
			MaxMana:              Linear{80, 12},
			Attack:               Linear{8, 1},
			Defense:              Linear{8, 1.5},
			MagicPower:           Linear{15, 3},
			Speed:                Linear{9, 1},
			CriticalRate:         Fixed(0.05),
			CriticalDamage:       Fixed(1.3),
			Accuracy:             Fixed(0.9),
			Evasion:              Fixed(0.06),
			Caster:               true,
			HealBonus:            1.5,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1.15,
			Abilities: []AbilityFormula{
				{Kind: HolyRadiance, Chance: Fixed(1), Value: Scaling{Base: 0.5, PerMastery: 0.005}},
				{Kind: Miracle, Chance: Scaling{Base: 0.05, PerAwakening: 0.01}, Value: Fixed(0.3)},
			},
		},
		Assassin: {
			MaxHealth:            Linear{80, 15},
			MaxMana:              Linear{60, 8},
			Attack:               Linear{18, 3.5},
			Defense:              Linear{7, 1.2},
			MagicPower:           Linear{5, 0.5},
			Speed:                Linear{15, 2},
			CriticalRate:         Scaling{Base: 0.35, PerMastery: 0.003},
			CriticalDamage:       Scaling{Base: 2.0, PerAwakening: 0.15},
			Accuracy:             Fixed(0.95),
			Evasion:              Scaling{Base: 0.15, PerMastery: 0.002},
			HealBonus:            1,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: ShadowStep, Chance: Fixed(1), Value: Fixed(0.5)},
				{Kind: LethalStrike, Chance: Scaling{Base: 0.01, PerMastery: 0.0005}, Value: Fixed(1)},
			},
		},
		Ranger: {
			MaxHealth:            Linear{85, 16},
			MaxMana:              Linear{70, 9},
			Attack:               Linear{16, 3.2},
			Defense:              Linear{8, 1.5},
			MagicPower:           Linear{5, 0.5},
			Speed:                Linear{12, 1.5},
			CriticalRate:         Scaling{Base: 0.25, PerMastery: 0.0025},
			CriticalDamage:       Scaling{Base: 1.7, PerAwakening: 0.1},
			Accuracy:             Fixed(0.98),
			Evasion:              Fixed(0.1),
			HealBonus:            1,
			HealingPowerBonus:    1,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: HawkEye, Chance: Fixed(1), Value: Fixed(1)},
				{Kind: MultiShot, Chance: Scaling{Base: 0.2, PerMastery: 0.001}, Value: Fixed(2)},
			},
		},
		Sage: {
			MaxHealth:            Linear{90, 18},
			MaxMana:              Linear{120, 18},
			Attack:               Linear{12, 2},
			Defense:              Linear{10, 2},
			MagicPower:           Linear{18, 3.5},
			Speed:                Linear{11, 1.3},
			CriticalRate:         Scaling{Base: 0.15, PerMastery: 0.0015},
			CriticalDamage:       Scaling{Base: 1.6, PerAwakening: 0.1},
			Accuracy:             Fixed(0.92),
			Evasion:              Fixed(0.07),
			Caster:               true,
			HealBonus:            1.2,
			HealingPowerBonus:    1.2,
			PhysicalDefenseBonus: 1,
			MagicalDefenseBonus:  1,
			Abilities: []AbilityFormula{
				{Kind: WisdomRadiance, Chance: Fixed(1), Value: Scaling{Base: 0.1, PerMastery: 0.001}},
				{Kind: Omnipotence, Chance: Fixed(0.3), Value: Fixed(1)},
			},
		},
	},
}

// DefaultTable returns a fresh copy of the built-in job and rank table.
func DefaultTable() *Table {
	return defaultTable.clone()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
