package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// registerModules installs the guild, log and dice tables into L.
func (m *Manager) registerModules(L *lua.LState) {
	L.SetGlobal("guild", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"hp":         m.luaHP,
		"heal":       m.luaHeal,
		"revive":     m.luaRevive,
		"add_shield": m.luaAddShield,
	}))
	L.SetGlobal("log", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": m.luaLog(zap.DebugLevel),
		"info":  m.luaLog(zap.InfoLevel),
		"warn":  m.luaLog(zap.WarnLevel),
		"error": m.luaLog(zap.ErrorLevel),
	}))
	L.SetGlobal("dice", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"roll": m.luaRoll,
	}))
}

// unitArg resolves argument 1. On failure it pushes (nil, message) and returns ok=false.
func (m *Manager) unitArg(L *lua.LState) (*unit.Unit, bool) {
	id := L.CheckString(1)
	u, ok := m.lookup(id)
	if !ok {
		L.Push(lua.LNil)
		L.Push(lua.LString("unit not found: " + id))
		return nil, false
	}
	return u, true
}

// guild.hp(id) -> health, max_health
func (m *Manager) luaHP(L *lua.LState) int {
	u, ok := m.unitArg(L)
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(u.Health()))
	L.Push(lua.LNumber(u.Stats().MaxHealth))
	return 2
}

// guild.heal(id, amount) -> healed
func (m *Manager) luaHeal(L *lua.LState) int {
	u, ok := m.unitArg(L)
	if !ok {
		return 2
	}
	healed, err := u.ApplyHeal(float64(L.CheckNumber(2)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(healed))
	return 1
}

// guild.revive(id, fraction) -> revived
func (m *Manager) luaRevive(L *lua.LState) int {
	u, ok := m.unitArg(L)
	if !ok {
		return 2
	}
	revived, err := u.Revive(float64(L.CheckNumber(2)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LBool(revived))
	return 1
}

// guild.add_shield(id, amount) -> shield
func (m *Manager) luaAddShield(L *lua.LState) int {
	u, ok := m.unitArg(L)
	if !ok {
		return 2
	}
	if err := u.AddShield(float64(L.CheckNumber(2))); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(u.Shield()))
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := m.logger.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// dice.roll(expr) -> total, detail
func (m *Manager) luaRoll(L *lua.LState) int {
	expr, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	res := expr.Roll(m.src)
	L.Push(lua.LNumber(res.Total()))
	L.Push(lua.LString(res.String()))
	return 2
}
