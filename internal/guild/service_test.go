package guild_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type attachCounter struct{ n int }

func (a *attachCounter) Attach(*unit.Unit) { a.n++ }

func newService(t *testing.T, store guild.Store, opts ...guild.Option) *guild.Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts = append([]guild.Option{guild.WithClock(func() time.Time { return fixedNow })}, opts...)
	return guild.NewService(guild.NewRoster(), store, battle.NewEngine(logger), dice.NewSeededSource(7), logger, opts...)
}

func TestService_RecruitAndView(t *testing.T) {
	obs := &attachCounter{}
	svc := newService(t, guild.NewMemoryStore(), guild.WithObserver(obs))

	v, err := svc.Recruit(guild.RecruitRequest{Name: "Aria", Job: unit.Knight, Rank: unit.Rare, PlayerControlled: true})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, unit.Knight, v.Job)
	assert.True(t, v.PlayerControlled)
	assert.Equal(t, "🛡️", v.Icon)
	assert.Equal(t, "#0080FF", v.Color)
	assert.True(t, v.Alive)
	assert.Len(t, v.Abilities, 2)
	assert.Equal(t, 1, obs.n)

	got, err := svc.View(v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)
	assert.Len(t, svc.Views(), 1)

	_, err = svc.View("missing")
	assert.ErrorIs(t, err, guild.ErrUnitNotFound)

	_, err = svc.Recruit(guild.RecruitRequest{Name: "", Job: unit.Mage})
	assert.ErrorIs(t, err, unit.ErrInvalidName)
	_, err = svc.Recruit(guild.RecruitRequest{Name: "Nobody"})
	assert.ErrorIs(t, err, unit.ErrUnknownJob)
}

func TestService_GrantExperienceLevelsUp(t *testing.T) {
	svc := newService(t, guild.NewMemoryStore())
	v, err := svc.Recruit(guild.RecruitRequest{Name: "Vex", Job: unit.Mage, Rank: unit.Legendary})
	require.NoError(t, err)

	v, gained, err := svc.GrantExperience(v.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 2, gained)
	assert.Equal(t, 3, v.Level)
	assert.Equal(t, 160, v.Experience)

	_, _, err = svc.GrantExperience(v.ID, -5)
	assert.ErrorIs(t, err, unit.ErrInvalidAmount)
	_, _, err = svc.GrantExperience("missing", 5)
	assert.ErrorIs(t, err, guild.ErrUnitNotFound)
}

func TestService_Awaken(t *testing.T) {
	svc := newService(t, guild.NewMemoryStore())
	low, err := svc.Recruit(guild.RecruitRequest{Name: "Low", Job: unit.Warrior})
	require.NoError(t, err)
	high, err := svc.Recruit(guild.RecruitRequest{Name: "High", Level: 50, Job: unit.Warrior})
	require.NoError(t, err)

	_, ok, err := svc.Awaken(low.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := svc.Awaken(high.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v.Awakening)
	assert.InDelta(t, high.Stats.MaxHealth*1.1, v.Stats.MaxHealth, 1e-6)
}

func TestService_SaveLoadRoundTrip(t *testing.T) {
	store := guild.NewMemoryStore()
	svc := newService(t, store)
	a, err := svc.Recruit(guild.RecruitRequest{Name: "Aria", Level: 5, Job: unit.Priest, Rank: unit.Epic})
	require.NoError(t, err)
	_, err = svc.Recruit(guild.RecruitRequest{Name: "Bren", Level: 2, Job: unit.Ranger})
	require.NoError(t, err)
	_, _, err = svc.GrantExperience(a.ID, 50)
	require.NoError(t, err)

	require.NoError(t, svc.Save(context.Background()))
	save, err := store.LoadRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guild.SaveVersion, save.Version)
	assert.Equal(t, fixedNow, save.SavedAt)
	require.Len(t, save.Units, 2)

	obs := &attachCounter{}
	fresh := newService(t, store, guild.WithObserver(obs))
	n, err := fresh.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, obs.n)
	assert.Equal(t, svc.Views(), fresh.Views())
}

func TestService_LoadWithoutSave(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	svc := guild.NewService(guild.NewRoster(), guild.NewMemoryStore(), battle.NewEngine(logger), dice.NewSeededSource(1), logger)

	n, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, logs.FilterMessage("no saved roster; starting fresh").Len())
}

func TestService_LoadRejectsIncompatibleVersion(t *testing.T) {
	store := guild.NewMemoryStore()
	require.NoError(t, store.SaveRoster(context.Background(), guild.SaveFile{Version: "2.0.0"}))
	svc := newService(t, store)
	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, guild.ErrUnsupportedVersion)
}

type failingStore struct{ guild.MemoryStore }

func (*failingStore) SaveRoster(context.Context, guild.SaveFile) error { return errors.New("disk full") }

func TestService_SaveWrapsStoreError(t *testing.T) {
	svc := newService(t, &failingStore{})
	err := svc.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestService_BattleAgainstGeneratedEnemies(t *testing.T) {
	svc := newService(t, guild.NewMemoryStore())
	hero, err := svc.Recruit(guild.RecruitRequest{Name: "Hero", Level: 30, Job: unit.Assassin, Rank: unit.Legendary})
	require.NoError(t, err)

	report, err := svc.Battle(guild.BattleRequest{
		AllyIDs: []string{hero.ID},
		Enemies: []guild.EnemySpec{{Name: "Slime", Job: unit.Mage}},
	})
	require.NoError(t, err)
	assert.Equal(t, "allies", report.Winner)
	assert.NotEmpty(t, report.Events)
	require.Len(t, report.Allies, 1)
	assert.True(t, report.Allies[0].Alive)

	_, err = svc.Battle(guild.BattleRequest{AllyIDs: []string{"ghost"}, Enemies: []guild.EnemySpec{{Name: "x", Job: unit.Mage}}})
	assert.ErrorIs(t, err, guild.ErrUnitNotFound)
	_, err = svc.Battle(guild.BattleRequest{AllyIDs: []string{hero.ID}})
	assert.ErrorIs(t, err, battle.ErrEmptySide)
}

func TestService_DismissAndRevive(t *testing.T) {
	svc := newService(t, guild.NewMemoryStore())
	v, err := svc.Recruit(guild.RecruitRequest{Name: "Aria", Job: unit.Warrior})
	require.NoError(t, err)

	_, revived, err := svc.Revive(v.ID, 0.5)
	require.NoError(t, err)
	assert.False(t, revived)
	_, _, err = svc.Revive(v.ID, 2)
	assert.ErrorIs(t, err, unit.ErrInvalidFraction)

	require.NoError(t, svc.Dismiss(v.ID))
	assert.ErrorIs(t, svc.Dismiss(v.ID), guild.ErrUnitNotFound)
}

type countingSaver struct{ n atomic.Int32 }

func (c *countingSaver) Save(context.Context) error {
	c.n.Add(1)
	return nil
}

func TestAutoSaver_SavesOnIntervalAndStop(t *testing.T) {
	saver := &countingSaver{}
	a := guild.NewAutoSaver(saver, 10*time.Millisecond, zaptest.NewLogger(t))

	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()
	require.Eventually(t, func() bool { return saver.n.Load() >= 2 }, time.Second, 5*time.Millisecond)

	a.Stop()
	require.NoError(t, <-errCh)
	after := saver.n.Load()
	assert.GreaterOrEqual(t, after, int32(3))
	a.Stop()
	assert.Equal(t, after, saver.n.Load())
}

func TestAutoSaver_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := newService(t, &failingStore{})
	a := guild.NewAutoSaver(svc, time.Hour, zap.New(core))

	done := make(chan struct{})
	go func() { _ = a.Start(); close(done) }()
	a.Stop()
	<-done
	assert.Equal(t, 1, logs.FilterMessage("autosave failed").Len())
}

func TestNewAutoSaver_Preconditions(t *testing.T) {
	assert.Panics(t, func() { guild.NewAutoSaver(&countingSaver{}, 0, zap.NewNop()) })
	assert.Panics(t, func() { guild.NewAutoSaver(nil, time.Second, zap.NewNop()) })
}

type pingStore struct {
	guild.MemoryStore
	err error
}

func (p *pingStore) Ping(context.Context) error { return p.err }

func TestService_Ping(t *testing.T) {
	assert.NoError(t, newService(t, guild.NewMemoryStore()).Ping(context.Background()))

	down := errors.New("down")
	assert.ErrorIs(t, newService(t, &pingStore{err: down}).Ping(context.Background()), down)
	assert.NoError(t, newService(t, &pingStore{}).Ping(context.Background()))
}
