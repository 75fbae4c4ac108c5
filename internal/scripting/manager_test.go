package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/scripting"
)

// registry is a UnitLookup backed by a map.
type registry map[string]*unit.Unit

func (r registry) lookup(id string) (*unit.Unit, bool) {
	u, ok := r[id]
	return u, ok
}

func newTestManager(t testing.TB, units ...*unit.Unit) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	reg := registry{}
	for _, u := range units {
		reg[u.ID()] = u
	}
	mgr := scripting.NewManager(0, reg.lookup, dice.NewSeededSource(11), zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	n, err := mgr.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ret, err := mgr.CallHook("test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_UndefinedHook_ReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := mgr.CallHook("nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_NonFunctionGlobal_ReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Load(writeTempLua(t, "g.lua", `not_a_fn = 5`))
	require.NoError(t, err)
	ret, err := mgr.CallHook("not_a_fn")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeError_LogsAndReturnsError(t *testing.T) {
	mgr, logs := newTestManager(t)
	_, err := mgr.Load(writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`))
	require.NoError(t, err)

	ret, err := mgr.CallHook("bad_hook")
	require.Error(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_CallHook_RunawayHookHitsLimit(t *testing.T) {
	core, _ := observer.New(zap.WarnLevel)
	mgr := scripting.NewManager(50, registry{}.lookup, dice.NewSeededSource(1), zap.New(core))
	defer mgr.Close()
	_, err := mgr.Load(writeTempLua(t, "spin.lua", `function spin() while true do end end`))
	require.NoError(t, err)

	_, err = mgr.CallHook("spin")
	assert.ErrorIs(t, err, scripting.ErrInstructionLimit)
}

func TestManager_Load_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	n, err := mgr.Load(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManager_Load_MissingDir_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestManager_Load_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Load(writeTempLua(t, "bad.lua", `this is not valid lua @@@@`))
	assert.Error(t, err)
}

func TestManager_Load_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0644))
	n, err := mgr.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ret, err := mgr.CallHook("get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestNewManager_Preconditions(t *testing.T) {
	logger := zap.NewNop()
	src := dice.NewSeededSource(1)
	assert.Panics(t, func() { scripting.NewManager(0, nil, src, logger) })
	assert.Panics(t, func() { scripting.NewManager(0, registry{}.lookup, nil, logger) })
	assert.Panics(t, func() { scripting.NewManager(0, registry{}.lookup, src, nil) })
}

func TestManager_Close_MakesCallsNoOps(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(0, registry{}.lookup, dice.NewSeededSource(1), zap.New(core))
	_, err := mgr.Load(writeTempLua(t, "init.lua", `function get_x() return 1 end`))
	require.NoError(t, err)
	mgr.Close()
	mgr.Close()

	ret, err := mgr.CallHook("get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	_, err = mgr.Load(t.TempDir())
	assert.Error(t, err)
}

func TestProperty_CallHookConcurrent_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Load(writeTempLua(t, "hooks.lua", `
		function concurrent_hook(a, b)
			return a + b
		end
	`))
	require.NoError(t, err)

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				ret, err := mgr.CallHook("concurrent_hook", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}

func TestProperty_CallHookUnknownNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		hook := "hook_" + rapid.StringMatching(`[a-z_]{1,12}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("unexpected result for %q: %v %v", hook, ret, err)
		}
	})
}
