package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
)

// ErrUnitNotFound is returned when a unit lookup yields no results.
var ErrUnitNotFound = errors.New("unit not found")

var unitColumns = []string{
	"id", "name", "job", "rank", "player_controlled",
	"level", "experience", "mastery", "awakening",
	"health", "mana", "shield",
	"squad", "row_index", "col_index", "updated_at",
}

const selectUnits = `
	SELECT id, name, job, rank, player_controlled,
	       level, experience, mastery, awakening,
	       health, mana, shield,
	       squad, row_index, col_index
	FROM guild_units`

// UnitRepository stores roster saves in the guild_units table. It implements guild.Store.
type UnitRepository struct {
	db *pgxpool.Pool
}

// NewUnitRepository creates a UnitRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewUnitRepository(db *pgxpool.Pool) *UnitRepository {
	if db == nil {
		panic("postgres.NewUnitRepository: db must not be nil")
	}
	return &UnitRepository{db: db}
}

// Ping reports whether the database is reachable.
func (r *UnitRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// SaveRoster replaces every stored unit and the save metadata in one transaction.
//
// Postcondition: On error the previous save is intact. Duplicate unit ids
// yield guild.ErrDuplicateUnit.
func (r *UnitRepository) SaveRoster(ctx context.Context, save guild.SaveFile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM guild_units`); err != nil {
		return fmt.Errorf("clearing units: %w", err)
	}

	rows := make([][]any, len(save.Units))
	for i, s := range save.Units {
		rows[i] = []any{
			s.ID, s.Name, s.Job.String(), s.Rank.String(), s.PlayerControlled,
			s.Level, s.Experience, s.Mastery, s.Awakening,
			s.Health, s.Mana, s.Shield,
			s.Position.Squad, s.Position.Row, s.Position.Col, save.SavedAt,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"guild_units"}, unitColumns, pgx.CopyFromRows(rows)); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("copying units: %w", guild.ErrDuplicateUnit)
		}
		return fmt.Errorf("copying units: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO guild_save_meta (id, version, saved_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, saved_at = EXCLUDED.saved_at`,
		save.Version, save.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("writing save metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

// LoadRoster returns the latest save with units ordered by name then id.
//
// Postcondition: Returns guild.ErrNoSave if nothing has been saved.
func (r *UnitRepository) LoadRoster(ctx context.Context) (guild.SaveFile, error) {
	var save guild.SaveFile
	err := r.db.QueryRow(ctx, `SELECT version, saved_at FROM guild_save_meta WHERE id = 1`).
		Scan(&save.Version, &save.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return guild.SaveFile{}, guild.ErrNoSave
	}
	if err != nil {
		return guild.SaveFile{}, fmt.Errorf("reading save metadata: %w", err)
	}
	save.SavedAt = save.SavedAt.UTC()

	rows, err := r.db.Query(ctx, selectUnits+` ORDER BY name ASC, id ASC`)
	if err != nil {
		return guild.SaveFile{}, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanUnit(rows)
		if err != nil {
			return guild.SaveFile{}, err
		}
		save.Units = append(save.Units, s)
	}
	if err := rows.Err(); err != nil {
		return guild.SaveFile{}, fmt.Errorf("iterating units: %w", err)
	}
	return save, nil
}

// GetUnit returns the stored snapshot for id.
//
// Postcondition: Returns ErrUnitNotFound if no unit has that id.
func (r *UnitRepository) GetUnit(ctx context.Context, id string) (unit.Snapshot, error) {
	s, err := scanUnit(r.db.QueryRow(ctx, selectUnits+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return unit.Snapshot{}, ErrUnitNotFound
	}
	return s, err
}

func scanUnit(row pgx.Row) (unit.Snapshot, error) {
	var (
		s         unit.Snapshot
		job, rank string
	)
	err := row.Scan(
		&s.ID, &s.Name, &job, &rank, &s.PlayerControlled,
		&s.Level, &s.Experience, &s.Mastery, &s.Awakening,
		&s.Health, &s.Mana, &s.Shield,
		&s.Position.Squad, &s.Position.Row, &s.Position.Col,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return unit.Snapshot{}, err
		}
		return unit.Snapshot{}, fmt.Errorf("scanning unit: %w", err)
	}
	if s.Job, err = unit.ParseJob(job); err != nil {
		return unit.Snapshot{}, fmt.Errorf("unit %s: %w", s.ID, err)
	}
	if s.Rank, err = unit.ParseRank(rank); err != nil {
		return unit.Snapshot{}, fmt.Errorf("unit %s: %w", s.ID, err)
	}
	return s, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

var (
	_ guild.Store  = (*UnitRepository)(nil)
	_ guild.Pinger = (*UnitRepository)(nil)
)
