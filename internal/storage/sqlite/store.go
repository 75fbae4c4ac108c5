// Package sqlite provides a single-file roster save store backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
	"github.com/cory-johannsen/guildmaster/migrations"
)

// Store persists roster saves in a SQLite file. It implements guild.Store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the save file at path and applies embedded migrations.
//
// Precondition: path non-empty; logger non-nil.
// Postcondition: Returns a ready Store or a non-nil error.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: storage path is required")
	}
	if logger == nil {
		panic("sqlite.Open: logger must not be nil")
	}
	clean := filepath.Clean(path)
	dsn := clean + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	applied, err := applyMigrations(ctx, db, migrations.FS, migrations.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("sqlite store opened", zap.String("path", clean), zap.Int("migrations_applied", applied))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the save file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRoster replaces the stored roster and metadata in one transaction.
//
// Postcondition: On error the previous save is intact. Duplicate unit ids
// yield guild.ErrDuplicateUnit.
func (s *Store) SaveRoster(ctx context.Context, save guild.SaveFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guild_units`); err != nil {
		return fmt.Errorf("clearing units: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guild_units (
			id, name, job, rank, player_controlled,
			level, experience, mastery, awakening,
			health, mana, shield,
			squad, row_index, col_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing unit insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range save.Units {
		_, err := stmt.ExecContext(ctx,
			u.ID, u.Name, u.Job.String(), u.Rank.String(), u.PlayerControlled,
			u.Level, u.Experience, u.Mastery, u.Awakening,
			u.Health, u.Mana, u.Shield,
			u.Position.Squad, u.Position.Row, u.Position.Col,
		)
		if err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("inserting unit %s: %w", u.ID, guild.ErrDuplicateUnit)
			}
			return fmt.Errorf("inserting unit %s: %w", u.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO guild_save_meta (id, version, saved_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at`,
		save.Version, save.SavedAt.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("writing save metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	s.logger.Debug("sqlite roster saved", zap.Int("units", len(save.Units)))
	return nil
}

// LoadRoster returns the latest save with units ordered by name then id.
//
// Postcondition: Returns guild.ErrNoSave if nothing has been saved.
func (s *Store) LoadRoster(ctx context.Context) (guild.SaveFile, error) {
	var (
		save    guild.SaveFile
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, saved_at FROM guild_save_meta WHERE id = 1`).
		Scan(&save.Version, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return guild.SaveFile{}, guild.ErrNoSave
	}
	if err != nil {
		return guild.SaveFile{}, fmt.Errorf("reading save metadata: %w", err)
	}
	save.SavedAt = time.Unix(0, savedAt).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, job, rank, player_controlled,
		       level, experience, mastery, awakening,
		       health, mana, shield,
		       squad, row_index, col_index
		FROM guild_units ORDER BY name ASC, id ASC`)
	if err != nil {
		return guild.SaveFile{}, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u         unit.Snapshot
			job, rank string
		)
		if err := rows.Scan(
			&u.ID, &u.Name, &job, &rank, &u.PlayerControlled,
			&u.Level, &u.Experience, &u.Mastery, &u.Awakening,
			&u.Health, &u.Mana, &u.Shield,
			&u.Position.Squad, &u.Position.Row, &u.Position.Col,
		); err != nil {
			return guild.SaveFile{}, fmt.Errorf("scanning unit: %w", err)
		}
		if u.Job, err = unit.ParseJob(job); err != nil {
			return guild.SaveFile{}, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		if u.Rank, err = unit.ParseRank(rank); err != nil {
			return guild.SaveFile{}, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		save.Units = append(save.Units, u)
	}
	if err := rows.Err(); err != nil {
		return guild.SaveFile{}, fmt.Errorf("iterating units: %w", err)
	}
	return save, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ guild.Store  = (*Store)(nil)
	_ guild.Pinger = (*Store)(nil)
)
