package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// Hook names fired for attached units.
const (
	HookDamage = "on_damage"
	HookHeal   = "on_heal"
	HookDeath  = "on_death"
)

// UnitLookup resolves a unit id for the guild.* Lua module.
type UnitLookup func(id string) (*unit.Unit, bool)

// Manager owns one sandboxed LState and dispatches unit events to Lua hooks.
//
// Calls into the VM are serialized. Events raised by a hook's own actions
// (a heal issued from on_damage, say) are not dispatched again.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	limit  int
	lookup UnitLookup
	src    dice.Source
	logger *zap.Logger

	inHook atomic.Bool
	closed bool
}

// NewManager creates a Manager with the guild, log and dice modules registered.
//
// Precondition: lookup, src and logger must be non-nil. limit <= 0 selects DefaultInstructionLimit.
// Postcondition: Returns a Manager with an empty VM.
func NewManager(limit int, lookup UnitLookup, src dice.Source, logger *zap.Logger) *Manager {
	if lookup == nil || src == nil || logger == nil {
		panic("scripting.NewManager: lookup, src and logger must not be nil")
	}
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	m := &Manager{
		state:  NewSandboxedState(),
		limit:  limit,
		lookup: lookup,
		src:    src,
		logger: logger,
	}
	m.registerModules(m.state)
	return m
}

// Load executes every *.lua file in dir in lexicographic order, each with its
// own instruction budget.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the number of files loaded, or the first load error.
func (m *Manager) Load(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("scripting: manager closed")
	}
	for i, path := range files {
		if err := RunLimited(m.state, m.limit, func() error { return m.state.DoFile(path) }); err != nil {
			return i, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	m.logger.Info("scripts loaded", zap.String("dir", dir), zap.Int("files", len(files)))
	return len(files), nil
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if the hook
// is not defined. Lua runtime errors are logged at Warn level and returned.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return lua.LNil, nil
	}

	fn := m.state.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	m.inHook.Store(true)
	defer m.inHook.Store(false)

	err := RunLimited(m.state, m.limit, func() error {
		return m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil, fmt.Errorf("scripting: hook %s: %w", hook, err)
	}
	ret := m.state.Get(-1)
	m.state.Pop(1)
	return ret, nil
}

// Attach subscribes the manager to u's damage, heal and death events.
// It satisfies guild.Observer.
//
// Precondition: u must be non-nil.
func (m *Manager) Attach(u *unit.Unit) {
	if u == nil {
		panic("scripting.Manager.Attach: unit must not be nil")
	}
	u.Subscribe(unit.ListenerFuncs{
		Damage: func(u *unit.Unit, r unit.DamageResult) {
			if r.Evaded {
				return
			}
			m.dispatch(HookDamage, lua.LString(u.ID()), lua.LNumber(r.HealthDelta))
		},
		Heal: func(u *unit.Unit, amount float64) {
			m.dispatch(HookHeal, lua.LString(u.ID()), lua.LNumber(amount))
		},
		Death: func(u *unit.Unit) {
			m.dispatch(HookDeath, lua.LString(u.ID()))
		},
	})
}

func (m *Manager) dispatch(hook string, args ...lua.LValue) {
	if m.inHook.Load() {
		m.logger.Debug("scripting: nested hook suppressed", zap.String("hook", hook))
		return
	}
	_, _ = m.CallHook(hook, args...)
}

// Close releases the VM. Later calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.state.Close()
}
