package guild

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// Observer is attached to every unit the service creates or restores.
type Observer interface {
	Attach(u *unit.Unit)
}

// Service owns the roster and serializes every unit mutation.
type Service struct {
	mu        sync.Mutex
	roster    *Roster
	store     Store
	engine    *battle.Engine
	src       dice.Source
	table     *unit.Table
	observers []Observer
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTable sets the stat table used for recruits and restores.
func WithTable(t *unit.Table) Option { return func(s *Service) { s.table = t } }

// WithObserver attaches o to every unit the service manages.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithClock overrides the save timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a Service.
//
// Precondition: roster, store, engine, src and logger must be non-nil.
func NewService(roster *Roster, store Store, engine *battle.Engine, src dice.Source, logger *zap.Logger, opts ...Option) *Service {
	if roster == nil || store == nil || engine == nil || src == nil || logger == nil {
		panic("guild.NewService: roster, store, engine, src and logger must not be nil")
	}
	s := &Service{
		roster: roster,
		store:  store,
		engine: engine,
		src:    src,
		table:  unit.DefaultTable(),
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping checks the store's backend. Stores that are not Pingers are always healthy.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Roster returns the managed roster.
func (s *Service) Roster() *Roster { return s.roster }

// RecruitRequest describes a new unit.
type RecruitRequest struct {
	Name             string    `json:"name"`
	Level            int       `json:"level"`
	Job              unit.Job  `json:"job"`
	Rank             unit.Rank `json:"rank"`
	PlayerControlled bool      `json:"player_controlled"`
}

// Recruit creates a unit and adds it to the roster.
//
// Postcondition: Returns the new unit's view, or the validation error from unit.New.
func (s *Service) Recruit(req RecruitRequest) (UnitView, error) {
	if req.Level == 0 {
		req.Level = 1
	}
	u, err := unit.New(req.Name, req.Level, req.Job, req.Rank,
		unit.WithTable(s.table), unit.WithPlayerControlled(req.PlayerControlled))
	if err != nil {
		return UnitView{}, fmt.Errorf("recruiting %q: %w", req.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attach(u)
	if err := s.roster.Add(u); err != nil {
		return UnitView{}, err
	}
	s.logger.Info("unit recruited",
		zap.String("unit_id", u.ID()),
		zap.String("name", u.Name()),
		zap.Stringer("job", u.Job()),
		zap.Stringer("rank", u.Rank()),
		zap.Int("level", u.Level()),
	)
	return viewOf(u), nil
}

// Dismiss removes a unit from the roster.
func (s *Service) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.roster.Remove(id)
	if err != nil {
		return err
	}
	s.logger.Info("unit dismissed", zap.String("unit_id", u.ID()))
	return nil
}

// View returns the current view of unit id.
func (s *Service) View(id string) (UnitView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.roster.Get(id)
	if !ok {
		return UnitView{}, fmt.Errorf("viewing %q: %w", id, ErrUnitNotFound)
	}
	return viewOf(u), nil
}

// Views returns every unit's view in roster order.
func (s *Service) Views() []UnitView {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.roster.All()
	out := make([]UnitView, len(all))
	for i, u := range all {
		out[i] = viewOf(u)
	}
	return out
}

// GrantExperience adds n experience to unit id and applies every level-up it earns.
//
// Postcondition: Returns the updated view and the number of levels gained.
func (s *Service) GrantExperience(id string, n int) (UnitView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.roster.Get(id)
	if !ok {
		return UnitView{}, 0, fmt.Errorf("granting experience to %q: %w", id, ErrUnitNotFound)
	}
	if err := u.GainExperience(n); err != nil {
		return UnitView{}, 0, err
	}
	gained := u.LevelUpAll()
	if gained > 0 {
		s.logger.Info("unit levelled up",
			zap.String("unit_id", id),
			zap.Int("levels", gained),
			zap.Int("level", u.Level()),
		)
	}
	return viewOf(u), gained, nil
}

// Awaken attempts to awaken unit id. An ineligible unit is not an error.
//
// Postcondition: Returns the view and whether the tier advanced.
func (s *Service) Awaken(id string) (UnitView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.roster.Get(id)
	if !ok {
		return UnitView{}, false, fmt.Errorf("awakening %q: %w", id, ErrUnitNotFound)
	}
	awakened := u.Awaken()
	if awakened {
		s.logger.Info("unit awakened",
			zap.String("unit_id", id),
			zap.Int("awakening", u.Awakening()),
		)
	}
	return viewOf(u), awakened, nil
}

// Revive brings a fallen unit back with fraction of its max health.
func (s *Service) Revive(id string, fraction float64) (UnitView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.roster.Get(id)
	if !ok {
		return UnitView{}, false, fmt.Errorf("reviving %q: %w", id, ErrUnitNotFound)
	}
	revived, err := u.Revive(fraction)
	if err != nil {
		return UnitView{}, false, err
	}
	return viewOf(u), revived, nil
}

// EnemySpec describes a generated opponent.
type EnemySpec struct {
	Name  string    `json:"name"`
	Level int       `json:"level"`
	Job   unit.Job  `json:"job"`
	Rank  unit.Rank `json:"rank"`
}

// BattleRequest pits roster units against generated enemies.
type BattleRequest struct {
	AllyIDs   []string    `json:"ally_ids"`
	Enemies   []EnemySpec `json:"enemies"`
	MaxRounds int         `json:"max_rounds"`
}

// BattleReport is the outcome of a resolved battle.
type BattleReport struct {
	ID     string              `json:"id"`
	Rounds int                 `json:"rounds"`
	Winner string              `json:"winner"`
	Events []battle.RoundEvent `json:"events"`
	Allies []UnitView          `json:"allies"`
}

// DefaultMaxRounds caps a battle when the request does not.
const DefaultMaxRounds = 100

// Battle resolves a full battle between roster units and generated enemies.
// Damage to roster units persists.
//
// Postcondition: Returns ErrUnitNotFound for an unknown ally id, or the battle report.
func (s *Service) Battle(req BattleRequest) (BattleReport, error) {
	if req.MaxRounds <= 0 {
		req.MaxRounds = DefaultMaxRounds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	allies := make([]*unit.Unit, 0, len(req.AllyIDs))
	for _, id := range req.AllyIDs {
		u, ok := s.roster.Get(id)
		if !ok {
			return BattleReport{}, fmt.Errorf("battle ally %q: %w", id, ErrUnitNotFound)
		}
		allies = append(allies, u)
	}
	enemies := make([]*unit.Unit, 0, len(req.Enemies))
	for _, e := range req.Enemies {
		if e.Level == 0 {
			e.Level = 1
		}
		u, err := unit.New(e.Name, e.Level, e.Job, e.Rank, unit.WithTable(s.table))
		if err != nil {
			return BattleReport{}, fmt.Errorf("battle enemy %q: %w", e.Name, err)
		}
		s.attach(u)
		enemies = append(enemies, u)
	}

	id := uuid.NewString()
	if _, err := s.engine.Start(id, allies, enemies, s.src); err != nil {
		return BattleReport{}, err
	}
	b, events, err := s.engine.Run(id, s.src, req.MaxRounds)
	if err != nil {
		return BattleReport{}, err
	}

	report := BattleReport{ID: id, Rounds: b.Round, Winner: b.Winner.String(), Events: events}
	for _, u := range allies {
		report.Allies = append(report.Allies, viewOf(u))
	}
	return report, nil
}

// Save writes the whole roster to the store.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	save := SaveFile{
		Version: SaveVersion,
		SavedAt: s.now().UTC(),
		Units:   s.roster.Snapshots(),
	}
	s.mu.Unlock()

	if err := s.store.SaveRoster(ctx, save); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}
	s.logger.Info("roster saved", zap.Int("units", len(save.Units)))
	return nil
}

// Load replaces the roster with the latest save. Having no save is not an error.
//
// Postcondition: Returns the number of units loaded. On error the roster is unchanged.
func (s *Service) Load(ctx context.Context) (int, error) {
	save, err := s.store.LoadRoster(ctx)
	if errors.Is(err, ErrNoSave) {
		s.logger.Info("no saved roster; starting fresh")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading roster: %w", err)
	}
	if !save.Compatible() {
		return 0, fmt.Errorf("loading roster: version %q: %w", save.Version, ErrUnsupportedVersion)
	}

	units := make([]*unit.Unit, 0, len(save.Units))
	for _, snap := range save.Units {
		u, err := unit.Restore(snap, unit.WithTable(s.table))
		if err != nil {
			return 0, fmt.Errorf("loading roster: %w", err)
		}
		units = append(units, u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.roster.Replace(units); err != nil {
		return 0, fmt.Errorf("loading roster: %w", err)
	}
	for _, u := range units {
		s.attach(u)
	}
	s.logger.Info("roster loaded",
		zap.Int("units", len(units)),
		zap.Time("saved_at", save.SavedAt),
	)
	return len(units), nil
}

func (s *Service) attach(u *unit.Unit) {
	for _, o := range s.observers {
		o.Attach(u)
	}
}
