package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/replay"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

var (
	// ErrConfigNotFound is returned for a well-formed id with no snapshot.
	ErrConfigNotFound = errors.New("snapshot not found")

	// ErrInvalidIdentifier is returned for an id that is not a UUID.
	ErrInvalidIdentifier = errors.New("invalid snapshot identifier")
)

// AcquireFunc opens a desktop session; desktop.Acquire in production.
type AcquireFunc func() (*desktop.Session, error)

// Enumerator lists the current qualifying windows.
type Enumerator interface {
	Enumerate(s *desktop.Session) []snapshot.WindowRecord
}

// Replayer replays one snapshot.
type Replayer interface {
	ReplayObserved(ctx context.Context, s *desktop.Session, snap *snapshot.Snapshot, obs replay.Observer) ([]replay.Outcome, error)
}

// Service is the application surface shared by the CLI and the HTTP API.
// Each operation acquires its own desktop session and releases it on return.
// Replays run one at a time; a second replay waits for the first.
type Service struct {
	acquire  AcquireFunc
	windows  Enumerator
	engine   Replayer
	registry *snapshot.Registry
	store    *snapshot.Store

	replaying chan struct{}
}

// New creates a service. store may be nil, in which case Save and Load fail.
func New(acquire AcquireFunc, windows Enumerator, engine Replayer, registry *snapshot.Registry, store *snapshot.Store) *Service {
	if registry == nil {
		registry = snapshot.NewRegistry()
	}
	return &Service{
		acquire:  acquire,
		windows:  windows,
		engine:   engine,
		registry: registry,
		store:    store,

		replaying: make(chan struct{}, 1),
	}
}

// ParseID validates a snapshot identifier.
func ParseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return parsed, nil
}

func (s *Service) session() (*desktop.Session, func(), error) {
	sess, err := s.acquire()
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := sess.Release(); err != nil {
			logger.WithComponent("service").Warn().Err(err).Msg("Failed to release desktop session")
		}
	}
	return sess, release, nil
}

// Capture enumerates the current windows, builds a snapshot and registers it
// as the live snapshot.
func (s *Service) Capture(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, release, err := s.session()
	if err != nil {
		return nil, err
	}
	defer release()

	snap := snapshot.Build(s.windows.Enumerate(sess))
	s.registry.Put(snap)

	logger.WithComponent("service").Info().
		Str("id", snap.ID().String()).
		Int("windows", snap.Len()).
		Msg("Snapshot captured")
	return snap, nil
}

// Windows returns the current windows without storing them.
func (s *Service) Windows(ctx context.Context) ([]snapshot.WindowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, release, err := s.session()
	if err != nil {
		return nil, err
	}
	defer release()

	return s.windows.Enumerate(sess), nil
}

// Replay replays the snapshot with the given id. obs may be nil. If another
// replay is running, Replay waits for it to finish or for ctx to end.
func (s *Service) Replay(ctx context.Context, id string, obs replay.Observer) ([]replay.Outcome, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	select {
	case s.replaying <- struct{}{}:
	default:
		logger.WithComponent("service").Info().
			Str("id", snap.ID().String()).
			Msg("Waiting for running replay to finish")
		select {
		case s.replaying <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer func() { <-s.replaying }()

	sess, release, err := s.session()
	if err != nil {
		return nil, err
	}
	defer release()

	return s.engine.ReplayObserved(ctx, sess, snap, obs)
}

// Get returns the snapshot with the given id.
func (s *Service) Get(id string) (*snapshot.Snapshot, error) {
	parsed, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	snap, ok := s.registry.Get(parsed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, parsed)
	}
	return snap, nil
}

// List returns every registered snapshot in registration order.
func (s *Service) List() []*snapshot.Snapshot {
	return s.registry.List()
}

// Live returns the most recently captured snapshot, if any.
func (s *Service) Live() (*snapshot.Snapshot, bool) {
	id := s.registry.Live()
	if id == uuid.Nil {
		return nil, false
	}
	return s.registry.Get(id)
}

// Save checks that id names a registered snapshot and persists the registry.
func (s *Service) Save(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if s.store == nil {
		return errors.New("no snapshot store configured")
	}
	return s.store.Save(s.registry)
}

// SaveAll persists the registry.
func (s *Service) SaveAll() error {
	if s.store == nil {
		return errors.New("no snapshot store configured")
	}
	return s.store.Save(s.registry)
}

// Load merges the stored snapshots into the registry and returns how many
// were added.
func (s *Service) Load() (int, error) {
	if s.store == nil {
		return 0, errors.New("no snapshot store configured")
	}
	st, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	added := s.registry.Merge(st)

	logger.WithComponent("service").Debug().
		Str("path", s.store.Path()).
		Int("added", added).
		Int("total", s.registry.Len()).
		Msg("Store loaded")
	return added, nil
}
