package unit

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// MaxMastery is the ceiling of job mastery.
const MaxMastery = 100.0

// Source is the uniform random source consumed by every roll.
//
// Implementations used concurrently by several units must be safe for concurrent use.
type Source interface {
	// Float64 returns a uniformly distributed value in [0, 1).
	Float64() float64
}

// Position places a unit inside a battle formation.
type Position struct {
	Squad int `json:"squad"`
	Row   int `json:"row"`
	Col   int `json:"col"`
}

// Unit is a guild combatant.
//
// Invariants: 0 <= health <= MaxHealth, 0 <= mana <= MaxMana, 0 <= shield <= MaxShield,
// 1 <= level <= MaxLevel, 0 <= mastery <= MaxMastery, 0 <= awakening <= MaxAwakening.
//
// A Unit is owned by one logical actor at a time and is not safe for concurrent mutation.
type Unit struct {
	id               string
	name             string
	job              Job
	rank             Rank
	playerControlled bool

	level            int
	experience       int
	experienceToNext int
	mastery          float64
	awakening        int

	stats  Stats
	health float64
	mana   float64
	shield float64

	abilities []Ability
	position  Position

	table     *Table
	listeners []listenerEntry
	nextSub   int
}

// Option customizes unit construction and restoration.
type Option func(*Unit)

// WithTable evaluates stats with t instead of the default table.
func WithTable(t *Table) Option {
	return func(u *Unit) { u.table = t }
}

// WithID sets the unit ID instead of generating a UUID.
func WithID(id string) Option {
	return func(u *Unit) { u.id = id }
}

// WithPlayerControlled marks the unit as belonging to the player.
func WithPlayerControlled(v bool) Option {
	return func(u *Unit) { u.playerControlled = v }
}

// New creates a unit at the given level with freshly initialized stats and abilities.
//
// Precondition: name non-empty; 1 <= level <= MaxLevel; job and rank valid.
// Postcondition: Health and mana are full, shield is 0, experience is 0.
func New(name string, level int, job Job, rank Rank, opts ...Option) (*Unit, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if level < 1 || level > MaxLevel {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}
	if !job.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJob, int(job))
	}
	if !rank.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRank, int(rank))
	}

	u := &Unit{
		name:  name,
		job:   job,
		rank:  rank,
		level: level,
		table: defaultTable,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.id == "" {
		u.id = uuid.NewString()
	}
	if u.table == nil {
		u.table = defaultTable
	}
	if _, ok := u.table.Formula(job); !ok {
		return nil, fmt.Errorf("%w: %s has no formula in table", ErrUnknownJob, job)
	}
	u.experienceToNext = ExperienceForLevel(level)
	u.initializeStats()
	u.regenerateAbilities()
	return u, nil
}

// initializeStats recomputes every derived value from the table and refills the pools.
func (u *Unit) initializeStats() {
	u.stats = u.table.BaseStats(u.job, u.rank, u.level, u.mastery, u.awakening)
	u.health = u.stats.MaxHealth
	u.mana = u.stats.MaxMana
	u.shield = 0
}

func (u *Unit) formula() JobFormula {
	f, _ := u.table.Formula(u.job)
	return f
}

// ID returns the unique unit identifier.
func (u *Unit) ID() string { return u.id }

// Name returns the display name.
func (u *Unit) Name() string { return u.name }

// Job returns the unit's job.
func (u *Unit) Job() Job { return u.job }

// Rank returns the unit's rarity tier.
func (u *Unit) Rank() Rank { return u.rank }

// PlayerControlled reports whether the unit belongs to the player.
func (u *Unit) PlayerControlled() bool { return u.playerControlled }

// Level returns the current level.
func (u *Unit) Level() int { return u.level }

// Experience returns experience accumulated toward the next level.
func (u *Unit) Experience() int { return u.experience }

// ExperienceToNextLevel returns the threshold for the next level-up.
func (u *Unit) ExperienceToNextLevel() int { return u.experienceToNext }

// Mastery returns job mastery in [0, 100].
func (u *Unit) Mastery() float64 { return u.mastery }

// Awakening returns the awakening tier in [0, 5].
func (u *Unit) Awakening() int { return u.awakening }

// Stats returns a copy of the unit's maxima and combat attributes.
func (u *Unit) Stats() Stats { return u.stats }

// Health returns current health.
func (u *Unit) Health() float64 { return u.health }

// Mana returns current mana.
func (u *Unit) Mana() float64 { return u.mana }

// Shield returns current shield.
func (u *Unit) Shield() float64 { return u.shield }

// IsAlive reports whether current health is above zero.
func (u *Unit) IsAlive() bool { return u.health > 0 }

// HealthFraction returns current/max health, or 0 if max health is 0.
func (u *Unit) HealthFraction() float64 {
	if u.stats.MaxHealth <= 0 {
		return 0
	}
	return u.health / u.stats.MaxHealth
}

// ManaFraction returns current/max mana, or 0 if max mana is 0.
func (u *Unit) ManaFraction() float64 {
	if u.stats.MaxMana <= 0 {
		return 0
	}
	return u.mana / u.stats.MaxMana
}

// Position returns the unit's formation slot.
func (u *Unit) Position() Position { return u.position }

// SetPosition places the unit in a formation slot.
func (u *Unit) SetPosition(squad, row, col int) {
	u.position = Position{Squad: squad, Row: row, Col: col}
}

// String renders a short status line, e.g. "Aria (warrior lv3) 120/120".
func (u *Unit) String() string {
	return fmt.Sprintf("%s (%s lv%d) %.0f/%.0f", u.name, u.job, u.level, u.health, u.stats.MaxHealth)
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func roll(src Source, chance float64) bool {
	if src == nil {
		panic("unit: roll precondition violated: src must be non-nil")
	}
	return src.Float64() < chance
}

// variance returns a uniform multiplier in [0.9, 1.1).
func variance(src Source) float64 {
	if src == nil {
		panic("unit: variance precondition violated: src must be non-nil")
	}
	return 0.9 + 0.2*src.Float64()
}
