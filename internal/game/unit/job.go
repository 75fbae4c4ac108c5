// Package unit implements the guild combatant: job and rank identity, resource
// pools, derived combat attributes, job abilities, and level/awakening progression.
//
// A Unit is a plain value-and-behavior object. It owns no goroutines, performs no
// I/O, and takes randomness only through the Source passed to each rolling call.
package unit

import (
	"fmt"
	"strings"
)

// Job is one of the seven combat archetypes.
type Job int

const (
	Warrior Job = iota + 1
	Knight
	Mage
	Priest
	Assassin
	Ranger
	Sage
)

// Jobs lists every playable job in declaration order.
var Jobs = []Job{Warrior, Knight, Mage, Priest, Assassin, Ranger, Sage}

var jobNames = map[Job]string{
	Warrior:  "warrior",
	Knight:   "knight",
	Mage:     "mage",
	Priest:   "priest",
	Assassin: "assassin",
	Ranger:   "ranger",
	Sage:     "sage",
}

var jobIcons = map[Job]string{
	Warrior:  "⚔️",
	Knight:   "🛡️",
	Mage:     "🧙",
	Priest:   "✨",
	Assassin: "🗡️",
	Ranger:   "🏹",
	Sage:     "📖",
}

// String returns the lowercase job identifier, e.g. "warrior".
func (j Job) String() string {
	if n, ok := jobNames[j]; ok {
		return n
	}
	return fmt.Sprintf("job(%d)", int(j))
}

// Valid reports whether j is one of the seven declared jobs.
func (j Job) Valid() bool {
	_, ok := jobNames[j]
	return ok
}

// Icon returns the display glyph for the job, or "❓" for an unknown job.
func (j Job) Icon() string {
	if icon, ok := jobIcons[j]; ok {
		return icon
	}
	return "❓"
}

// ParseJob resolves a job identifier case-insensitively.
//
// Postcondition: Returns the Job or an error wrapping ErrUnknownJob.
func ParseJob(s string) (Job, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for j, n := range jobNames {
		if n == key {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJob, s)
}

// MarshalText implements encoding.TextMarshaler.
func (j Job) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJob, int(j))
	}
	return []byte(j.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *Job) UnmarshalText(b []byte) error {
	parsed, err := ParseJob(string(b))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// Rank is the rarity tier of a unit. It is fixed at construction.
type Rank int

const (
	Common Rank = iota
	Uncommon
	Rare
	Epic
	Legendary
)

// Ranks lists every rank from lowest to highest.
var Ranks = []Rank{Common, Uncommon, Rare, Epic, Legendary}

var rankNames = map[Rank]string{
	Common:    "common",
	Uncommon:  "uncommon",
	Rare:      "rare",
	Epic:      "epic",
	Legendary: "legendary",
}

var rankColors = map[Rank]string{
	Common:    "#FFFFFF",
	Uncommon:  "#00FF00",
	Rare:      "#0080FF",
	Epic:      "#B400FF",
	Legendary: "#FF8000",
}

// String returns the lowercase rank identifier, e.g. "legendary".
func (r Rank) String() string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return fmt.Sprintf("rank(%d)", int(r))
}

// Valid reports whether r is one of the five declared ranks.
func (r Rank) Valid() bool {
	_, ok := rankNames[r]
	return ok
}

// Color returns the hex display colour for the rank; unknown ranks render white.
func (r Rank) Color() string {
	if c, ok := rankColors[r]; ok {
		return c
	}
	return "#FFFFFF"
}

// ParseRank resolves a rank identifier case-insensitively.
//
// Postcondition: Returns the Rank or an error wrapping ErrUnknownRank.
func ParseRank(s string) (Rank, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for r, n := range rankNames {
		if n == key {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRank, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRank, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(b []byte) error {
	parsed, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
