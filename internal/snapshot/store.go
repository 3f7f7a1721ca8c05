package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanchriswhite/DeskSnap/internal/logger"
)

// DefaultStoreFile is the file name the store uses inside the user config dir.
const DefaultStoreFile = "vdesk.json"

// State is the persisted content of a Registry.
type State struct {
	Snapshots []*Snapshot
	Live      uuid.UUID
}

// storeDocument is the on-disk layout: snapshots keyed by id plus the live id.
type storeDocument struct {
	Configs    map[string]*Snapshot `json:"configs"`
	LiveConfig uuid.UUID            `json:"live_config"`
}

// Store persists a Registry to one JSON file per user.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStorePath returns <UserConfigDir>/vdesk.json (%APPDATA%\vdesk.json on Windows).
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, DefaultStoreFile), nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the registry atomically: a temp file in the same directory is
// renamed over the previous store.
func (s *Store) Save(reg *Registry) error {
	log := logger.WithComponent("snapshot-store")
	st := reg.Export()

	doc := storeDocument{
		Configs:    make(map[string]*Snapshot, len(st.Snapshots)),
		LiveConfig: st.Live,
	}
	for _, snap := range st.Snapshots {
		doc.Configs[snap.ID().String()] = snap
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vdesk-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshots: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshots: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshots: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	log.Info().
		Str("path", s.path).
		Int("snapshots", len(st.Snapshots)).
		Msg("Snapshots saved")
	return nil
}

// Load reads the store. A missing file is an empty state, not an error.
// Snapshots come back ordered by capture time.
func (s *Store) Load() (State, error) {
	log := logger.WithComponent("snapshot-store")

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", s.path).Msg("Store file not found, starting empty")
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	st := State{Live: doc.LiveConfig}
	for key, snap := range doc.Configs {
		if snap == nil {
			continue
		}
		if key != snap.ID().String() {
			log.Warn().
				Str("key", key).
				Str("id", snap.ID().String()).
				Msg("Store key does not match snapshot id, using id")
		}
		st.Snapshots = append(st.Snapshots, snap)
	}

	sort.Slice(st.Snapshots, func(i, j int) bool {
		a, b := st.Snapshots[i], st.Snapshots[j]
		if !a.CapturedAt().Equal(b.CapturedAt()) {
			return a.CapturedAt().Before(b.CapturedAt())
		}
		return a.ID().String() < b.ID().String()
	})

	log.Debug().
		Str("path", s.path).
		Int("snapshots", len(st.Snapshots)).
		Msg("Snapshots loaded")
	return st, nil
}
