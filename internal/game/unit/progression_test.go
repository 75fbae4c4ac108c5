package unit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

func TestExperienceForLevel(t *testing.T) {
	assert.Equal(t, 100, unit.ExperienceForLevel(1))
	assert.Equal(t, 240, unit.ExperienceForLevel(2))
	assert.Equal(t, 432, unit.ExperienceForLevel(3))
}

func TestExperienceForLevel_Property_StrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.IntRange(1, 60).Draw(rt, "level")
		assert.Less(rt, unit.ExperienceForLevel(level), unit.ExperienceForLevel(level+1))
	})
}

func TestGainExperience_DoesNotLevel(t *testing.T) {
	u := mustNew(t, "Aria", 1, unit.Warrior, unit.Common)
	require.NoError(t, u.GainExperience(1000))
	assert.Equal(t, 1, u.Level())
	assert.Equal(t, 1000, u.Experience())
	assert.True(t, u.CanLevelUp())

	assert.ErrorIs(t, u.GainExperience(-1), unit.ErrInvalidAmount)
	assert.Equal(t, 1000, u.Experience())
}

func TestLevelUp_CarriesOverflowAndRestores(t *testing.T) {
	u := mustNew(t, "Aria", 1, unit.Warrior, unit.Common)
	assert.False(t, u.LevelUp())

	_, err := u.ApplyDamage(50, noEvade)
	require.NoError(t, err)
	require.NoError(t, u.AddShield(10))
	require.NoError(t, u.GainExperience(130))

	require.True(t, u.LevelUp())
	assert.Equal(t, 2, u.Level())
	assert.Equal(t, 30, u.Experience())
	assert.Equal(t, 240, u.ExperienceToNextLevel())
	assert.Equal(t, 2.0, u.Mastery())

	s := u.Stats()
	assert.Equal(t, 140.0, s.MaxHealth)
	assert.Equal(t, 21.0, s.Attack)
	assert.Equal(t, s.MaxHealth, u.Health())
	assert.Equal(t, s.MaxMana, u.Mana())
	assert.Zero(t, u.Shield())

	rage, ok := u.Ability(unit.RageStrike)
	require.True(t, ok)
	assert.InDelta(t, 0.306, rage.Value, 1e-9)
}

func TestLevelUpAll_LegendaryMage(t *testing.T) {
	u := mustNew(t, "Vex", 1, unit.Mage, unit.Legendary)
	require.NoError(t, u.GainExperience(500))

	assert.Equal(t, 2, u.LevelUpAll())
	assert.Equal(t, 3, u.Level())
	assert.Equal(t, 160, u.Experience())
	assert.False(t, u.CanLevelUp())
	assert.InDelta(t, (60+30)*1.8, u.Stats().MaxHealth, 1e-9)
}

func TestLevelUpAll_Property_ExperienceBelowThreshold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		u, err := unit.New("P", rapid.IntRange(1, 30).Draw(rt, "level"), rapid.SampledFrom(unit.Jobs).Draw(rt, "job"), unit.Common)
		require.NoError(rt, err)
		startLevel := u.Level()
		require.NoError(rt, u.GainExperience(rapid.IntRange(0, 200000).Draw(rt, "exp")))

		gained := u.LevelUpAll()
		assert.Equal(rt, startLevel+gained, u.Level())
		assert.Less(rt, u.Experience(), u.ExperienceToNextLevel())
		assert.GreaterOrEqual(rt, u.Experience(), 0)
		assert.LessOrEqual(rt, u.Mastery(), unit.MaxMastery)
	})
}

func TestExperienceForLevel_FitsUpToMaxLevel(t *testing.T) {
	prev := 0
	for level := 1; level <= unit.MaxLevel; level++ {
		next := unit.ExperienceForLevel(level)
		require.Greater(t, next, prev, "level %d", level)
		prev = next
	}
	assert.Equal(t, math.MaxInt, unit.ExperienceForLevel(1000))
}

func TestLevelUpAll_StopsAtMaxLevel(t *testing.T) {
	u := mustNew(t, "Cap", unit.MaxLevel-1, unit.Knight, unit.Common)
	require.NoError(t, u.GainExperience(math.MaxInt))

	assert.Equal(t, 1, u.LevelUpAll())
	assert.Equal(t, unit.MaxLevel, u.Level())
	assert.False(t, u.CanLevelUp())
	assert.False(t, u.LevelUp())
	assert.Positive(t, u.ExperienceToNextLevel())
}

func TestGainExperience_RejectsOverflow(t *testing.T) {
	u := mustNew(t, "Huge", 1, unit.Warrior, unit.Common)
	require.NoError(t, u.GainExperience(math.MaxInt))
	assert.Equal(t, unit.MaxLevel-1, u.LevelUpAll())
	assert.Equal(t, unit.MaxLevel, u.Level())
	before := u.Experience()
	require.Positive(t, before)

	assert.ErrorIs(t, u.GainExperience(math.MaxInt), unit.ErrInvalidAmount)
	assert.Equal(t, before, u.Experience())

	restored, err := unit.Restore(u.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, u.Snapshot(), restored.Snapshot())
}

func TestRestore_RejectsLevelAboveCap(t *testing.T) {
	s := mustNew(t, "Aria", 1, unit.Warrior, unit.Common).Snapshot()
	s.Level = unit.MaxLevel + 1
	_, err := unit.Restore(s)
	assert.ErrorIs(t, err, unit.ErrInvalidLevel)
}

func TestLevelUp_MasteryCapped(t *testing.T) {
	s := mustNew(t, "Aria", 10, unit.Assassin, unit.Common).Snapshot()
	s.Mastery = 99
	s.Experience = unit.ExperienceForLevel(10)
	u, err := unit.Restore(s)
	require.NoError(t, err)

	require.True(t, u.LevelUp())
	assert.Equal(t, unit.MaxMastery, u.Mastery())
	assert.InDelta(t, 0.15+0.002*100, u.Stats().Evasion, 1e-9)
}

func TestAbilities_ScaleWithState(t *testing.T) {
	knight := mustNew(t, "K", 1, unit.Knight, unit.Common)
	blessing, ok := knight.Ability(unit.HeavenlyBlessing)
	require.True(t, ok)
	assert.InDelta(t, 145*0.02, blessing.Value, 1e-9)
	assert.Equal(t, "Heavenly Blessing", blessing.Name)
	assert.NotEmpty(t, blessing.Description)

	_, ok = knight.Ability(unit.HolyRadiance)
	assert.False(t, ok, "knights have no Holy Radiance")

	abilities := knight.Abilities()
	require.Len(t, abilities, 2)
	assert.Equal(t, unit.GuardianOath, abilities[0].Kind)
	abilities[0].Value = 1000
	oath, _ := knight.Ability(unit.GuardianOath)
	assert.Equal(t, 0.5, oath.Value)
}

func TestAwaken_RequiresLevel(t *testing.T) {
	u := mustNew(t, "Aria", 49, unit.Warrior, unit.Common)
	assert.False(t, u.CanAwaken())
	assert.False(t, u.Awaken())
	assert.Zero(t, u.Awakening())
}

func TestAwaken_CompoundsAndCaps(t *testing.T) {
	u := mustNew(t, "Aria", 50, unit.Warrior, unit.Common)
	base := u.Stats()

	require.True(t, u.Awaken())
	require.True(t, u.Awaken())
	s := u.Stats()
	assert.InDelta(t, base.MaxHealth*1.21, s.MaxHealth, 1e-6)
	assert.InDelta(t, base.Attack*1.21, s.Attack, 1e-6)
	assert.InDelta(t, base.Speed*1.21, s.Speed, 1e-6)
	assert.InDelta(t, s.MaxHealth*0.3, s.MaxShield, 1e-6)
	assert.InDelta(t, 1.7, s.CriticalDamage, 1e-9)

	for i := 0; i < 3; i++ {
		require.True(t, u.Awaken())
	}
	assert.Equal(t, unit.MaxAwakening, u.Awakening())
	assert.False(t, u.CanAwaken())
	assert.False(t, u.Awaken())
	assert.Equal(t, unit.MaxAwakening, u.Awakening())
}

func TestAwaken_RestoresPoolsAndKeepsShield(t *testing.T) {
	u := mustNew(t, "Aria", 50, unit.Priest, unit.Common)
	_, err := u.ApplyDamage(300, noEvade)
	require.NoError(t, err)
	require.NoError(t, u.AddShield(20))

	require.True(t, u.Awaken())
	assert.Equal(t, u.Stats().MaxHealth, u.Health())
	assert.Equal(t, u.Stats().MaxMana, u.Mana())
	assert.Equal(t, 20.0, u.Shield())

	miracle, ok := u.Ability(unit.Miracle)
	require.True(t, ok)
	assert.InDelta(t, 0.06, miracle.Chance, 1e-9)
}

func TestAwaken_SurvivesLevelUp(t *testing.T) {
	u := mustNew(t, "Aria", 50, unit.Sage, unit.Epic)
	require.True(t, u.Awaken())
	require.NoError(t, u.GainExperience(u.ExperienceToNextLevel()))
	require.True(t, u.LevelUp())

	want := unit.DefaultTable().BaseStats(unit.Sage, unit.Epic, 51, 2, 1)
	assert.InDelta(t, want.MaxHealth, u.Stats().MaxHealth, 1e-9)
	assert.InDelta(t, want.MagicPower, u.Stats().MagicPower, 1e-9)

	plain := unit.DefaultTable().BaseStats(unit.Sage, unit.Epic, 51, 2, 0)
	assert.InDelta(t, plain.MaxHealth*1.1, u.Stats().MaxHealth, 1e-6)
}

func TestAwaken_RestoreMatchesLiveUnit(t *testing.T) {
	u := mustNew(t, "Aria", 55, unit.Ranger, unit.Rare)
	require.True(t, u.Awaken())
	require.True(t, u.Awaken())

	restored, err := unit.Restore(u.Snapshot())
	require.NoError(t, err)
	assert.InDelta(t, u.Stats().MaxHealth, restored.Stats().MaxHealth, 1e-6)
	assert.InDelta(t, u.Stats().Attack, restored.Stats().Attack, 1e-6)
	assert.Equal(t, u.Awakening(), restored.Awakening())
}
