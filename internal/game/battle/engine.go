package battle

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// ErrBattleActive is returned when starting a battle under an id that is already in use.
var ErrBattleActive = errors.New("battle already active")

// ErrEmptySide is returned when either side has no living units.
var ErrEmptySide = errors.New("battle side has no living units")

// Engine manages all active battles keyed by id.
// All methods are safe for concurrent use; a single Battle is not.
type Engine struct {
	mu      sync.RWMutex
	battles map[string]*Battle
	logger  *zap.Logger
}

// NewEngine creates an empty Engine.
//
// Precondition: logger must be non-nil.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		panic("battle.NewEngine: logger must not be nil")
	}
	return &Engine{battles: make(map[string]*Battle), logger: logger}
}

// Start registers a new battle. Initiative is rolled with src and combatants are
// sorted into turn order.
//
// Precondition: id non-empty; src non-nil.
// Postcondition: Returns the battle, or ErrBattleActive / ErrEmptySide.
func (e *Engine) Start(id string, allies, enemies []*unit.Unit, src dice.Source) (*Battle, error) {
	if id == "" {
		return nil, fmt.Errorf("battle id must not be empty")
	}
	if !anyAlive(allies) || !anyAlive(enemies) {
		return nil, fmt.Errorf("starting battle %q: %w", id, ErrEmptySide)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.battles[id]; exists {
		return nil, fmt.Errorf("starting battle %q: %w", id, ErrBattleActive)
	}

	cs := make([]*Combatant, 0, len(allies)+len(enemies))
	for _, u := range allies {
		if u != nil {
			cs = append(cs, &Combatant{Unit: u, Side: Allies})
		}
	}
	for _, u := range enemies {
		if u != nil {
			cs = append(cs, &Combatant{Unit: u, Side: Enemies})
		}
	}
	RollInitiative(cs, src)
	sortTurnOrder(cs)

	b := &Battle{ID: id, Combatants: cs}
	e.battles[id] = b
	e.logger.Info("battle started",
		zap.String("battle_id", id),
		zap.Int("allies", len(allies)),
		zap.Int("enemies", len(enemies)),
	)
	return b, nil
}

// Get returns the active battle with id.
//
// Postcondition: Returns (battle, true) if found, or (nil, false) otherwise.
func (e *Engine) Get(id string) (*Battle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.battles[id]
	return b, ok
}

// End removes the battle record for id. Ending an unknown id is a no-op.
func (e *Engine) End(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.battles, id)
}

// Active returns the number of registered battles.
func (e *Engine) Active() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.battles)
}

// Run resolves rounds until the battle is over or maxRounds have been played, then
// ends it. A battle cut short by maxRounds finishes with Winner NoSide.
//
// Precondition: maxRounds > 0; src non-nil.
// Postcondition: The battle is no longer registered; all round events are returned in order.
func (e *Engine) Run(id string, src dice.Source, maxRounds int) (*Battle, []RoundEvent, error) {
	if maxRounds <= 0 {
		return nil, nil, fmt.Errorf("running battle %q: max rounds must be positive, got %d", id, maxRounds)
	}
	b, ok := e.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("running battle %q: not found", id)
	}
	defer e.End(id)

	var events []RoundEvent
	for !b.Over && b.Round < maxRounds {
		events = append(events, ResolveRound(b, src, e.logger)...)
	}
	e.logger.Info("battle finished",
		zap.String("battle_id", id),
		zap.Int("rounds", b.Round),
		zap.Stringer("winner", b.Winner),
	)
	return b, events, nil
}

func anyAlive(us []*unit.Unit) bool {
	for _, u := range us {
		if u != nil && u.IsAlive() {
			return true
		}
	}
	return false
}
