package unit

import (
	"fmt"
	"math"
	"strings"
)

// Snapshot is the persisted form of a unit: identity, progression, pools and
// formation slot. Derived stats and abilities are never persisted; Restore
// recomputes them from the table.
type Snapshot struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Job              Job      `json:"job"`
	Rank             Rank     `json:"rank"`
	PlayerControlled bool     `json:"player_controlled"`
	Level            int      `json:"level"`
	Experience       int      `json:"experience"`
	Mastery          float64  `json:"mastery"`
	Awakening        int      `json:"awakening"`
	Health           float64  `json:"health"`
	Mana             float64  `json:"mana"`
	Shield           float64  `json:"shield"`
	Position         Position `json:"position"`
}

// Snapshot captures the unit's persistable state.
func (u *Unit) Snapshot() Snapshot {
	return Snapshot{
		ID:               u.id,
		Name:             u.name,
		Job:              u.job,
		Rank:             u.rank,
		PlayerControlled: u.playerControlled,
		Level:            u.level,
		Experience:       u.experience,
		Mastery:          u.mastery,
		Awakening:        u.awakening,
		Health:           u.health,
		Mana:             u.mana,
		Shield:           u.shield,
		Position:         u.position,
	}
}

// Restore rebuilds a unit from a snapshot. Stats and abilities are derived from
// the table; persisted pools are then clamped into [0, max]. Listeners are not restored.
//
// Precondition: s.ID and s.Name non-empty; 1 <= s.Level <= MaxLevel; s.Experience >= 0; s.Job and s.Rank valid.
// Postcondition: Returns a unit whose Snapshot() equals s after clamping, or an error.
func Restore(s Snapshot, opts ...Option) (*Unit, error) {
	if strings.TrimSpace(s.ID) == "" {
		return nil, fmt.Errorf("restore: unit id must not be empty")
	}
	if s.Experience < 0 {
		return nil, fmt.Errorf("restore %s: experience %d: %w", s.ID, s.Experience, ErrInvalidAmount)
	}
	opts = append([]Option{WithID(s.ID), WithPlayerControlled(s.PlayerControlled)}, opts...)
	u, err := New(s.Name, s.Level, s.Job, s.Rank, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.ID, err)
	}

	u.experience = s.Experience
	u.mastery = clamp(s.Mastery, 0, MaxMastery)
	u.awakening = int(clamp(float64(s.Awakening), 0, MaxAwakening))
	u.initializeStats()
	u.regenerateAbilities()

	u.health = clampPool(s.Health, u.stats.MaxHealth)
	u.mana = clampPool(s.Mana, u.stats.MaxMana)
	u.shield = clampPool(s.Shield, u.stats.MaxShield)
	u.position = s.Position
	return u, nil
}

func clampPool(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, limit)
}
