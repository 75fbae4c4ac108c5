package guild

import "github.com/cory-johannsen/guildmaster/internal/game/unit"

// UnitView is a read-only rendering of a unit for callers outside the service lock.
type UnitView struct {
	unit.Snapshot
	Icon                  string         `json:"icon"`
	Color                 string         `json:"color"`
	Alive                 bool           `json:"alive"`
	ExperienceToNextLevel int            `json:"experience_to_next_level"`
	CanAwaken             bool           `json:"can_awaken"`
	Stats                 unit.Stats     `json:"stats"`
	Abilities             []unit.Ability `json:"abilities"`
}

func viewOf(u *unit.Unit) UnitView {
	return UnitView{
		Snapshot:              u.Snapshot(),
		Icon:                  u.Job().Icon(),
		Color:                 u.Rank().Color(),
		Alive:                 u.IsAlive(),
		ExperienceToNextLevel: u.ExperienceToNextLevel(),
		CanAwaken:             u.CanAwaken(),
		Stats:                 u.Stats(),
		Abilities:             u.Abilities(),
	}
}
