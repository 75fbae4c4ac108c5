// Package scripting runs Lua hook scripts against guild units in a sandboxed
// GopherLua VM. Unit access is injected through a lookup function.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget for one script execution when
// none is configured.
const DefaultInstructionLimit = 100_000

// ErrInstructionLimit is returned when a script exhausts its opcode budget.
var ErrInstructionLimit = errors.New("lua instruction limit exceeded")

// countingContext is a context.Context that cancels itself after Done() has
// been called limit times. GopherLua's mainLoopWithContext calls Done() once
// per opcode, making this an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
	exhausted atomic.Bool
}

// Done returns the underlying cancellation channel. Each call decrements the
// remaining counter; when it reaches zero the cancel function fires,
// terminating the Lua VM on the next opcode boundary.
func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.exhausted.Store(true)
		c.cancel()
	}
	return c.Context.Done()
}

func newCountingContext(limit int) (*countingContext, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}, cancel
}

// NewSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, loadstring, collectgarbage, require
//
// Postcondition: Returns a non-nil LState. The caller owns it and must call L.Close().
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// RunLimited runs fn with a fresh budget of limit opcodes on L.
//
// Precondition: fn must only execute Lua on L.
// Postcondition: L has no context attached on return. A budget overrun is
// reported as ErrInstructionLimit.
func RunLimited(L *lua.LState, limit int, fn func() error) error {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := newCountingContext(limit)
	L.SetContext(ctx)
	defer func() {
		L.RemoveContext()
		cancel()
	}()

	err := fn()
	if err != nil && ctx.exhausted.Load() {
		return fmt.Errorf("%w (limit %d): %v", ErrInstructionLimit, limit, err)
	}
	return err
}
