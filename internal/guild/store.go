package guild

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// SaveVersion is written with every save.
const SaveVersion = "1.0.0"

// ErrNoSave is returned by LoadRoster when nothing has been saved yet.
var ErrNoSave = errors.New("no saved roster")

// ErrUnsupportedVersion is returned when a save was written by an incompatible version.
var ErrUnsupportedVersion = errors.New("unsupported save version")

// SaveFile is one complete roster save.
type SaveFile struct {
	Version string          `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Units   []unit.Snapshot `json:"units"`
}

// Compatible reports whether the save shares SaveVersion's major version.
func (s SaveFile) Compatible() bool {
	major, _, _ := strings.Cut(SaveVersion, ".")
	return strings.HasPrefix(s.Version, major+".")
}

// Store persists roster saves. SaveRoster replaces the previous save atomically:
// a failed save leaves the previous one loadable.
type Store interface {
	SaveRoster(ctx context.Context, save SaveFile) error
	// LoadRoster returns the latest save, or ErrNoSave.
	LoadRoster(ctx context.Context) (SaveFile, error)
}

// Pinger is implemented by stores that can report their backend's health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore keeps the latest save in memory.
type MemoryStore struct {
	mu   sync.Mutex
	save *SaveFile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// SaveRoster stores a copy of save.
func (m *MemoryStore) SaveRoster(_ context.Context, save SaveFile) error {
	save.Units = append([]unit.Snapshot(nil), save.Units...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.save = &save
	return nil
}

// LoadRoster returns a copy of the latest save.
func (m *MemoryStore) LoadRoster(_ context.Context) (SaveFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.save == nil {
		return SaveFile{}, ErrNoSave
	}
	out := *m.save
	out.Units = append([]unit.Snapshot(nil), m.save.Units...)
	return out, nil
}
