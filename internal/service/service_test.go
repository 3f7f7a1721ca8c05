package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/replay"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

type fakeManager struct {
	closed int
	moved  []desktop.HWND
}

func (m *fakeManager) WindowDesktop(hwnd desktop.HWND) (desktop.Desktop, error) {
	return desktop.Desktop{}, nil
}

func (m *fakeManager) MoveWindow(hwnd desktop.HWND, index uint32) error {
	m.moved = append(m.moved, hwnd)
	return nil
}

func (m *fakeManager) Close() error {
	m.closed++
	return nil
}

type fakeEnumerator struct {
	windows []snapshot.WindowRecord
	calls   int
}

func (f *fakeEnumerator) Enumerate(s *desktop.Session) []snapshot.WindowRecord {
	f.calls++
	return f.windows
}

type fakeLauncher struct {
	pids map[string]uint32
}

func (l *fakeLauncher) Launch(ctx context.Context, path string) (uint32, error) {
	if pid, ok := l.pids[path]; ok {
		return pid, nil
	}
	return 0, errors.New("not found")
}

type fixture struct {
	svc      *Service
	mgr      *fakeManager
	enum     *fakeEnumerator
	acquires int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mgr: &fakeManager{},
		enum: &fakeEnumerator{windows: []snapshot.WindowRecord{
			{Title: "Editor", ExecutablePath: `C:\apps\editor.exe`, ProcessID: 10, DesktopIndex: 1, Handle: 0x1},
			{Title: "Settings", ProcessID: 11, Handle: 0x2},
		}},
	}
	acquire := func() (*desktop.Session, error) {
		f.acquires++
		return desktop.NewSession(f.mgr), nil
	}
	engine := replay.NewEngine(
		&fakeLauncher{pids: map[string]uint32{`C:\apps\editor.exe`: 10}},
		f.enum,
		replay.WithSettleDelay(time.Millisecond),
	)
	store := snapshot.NewStore(filepath.Join(t.TempDir(), snapshot.DefaultStoreFile))
	f.svc = New(acquire, f.enum, engine, snapshot.NewRegistry(), store)
	return f
}

func TestCapture(t *testing.T) {
	f := newFixture(t)

	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 1, f.mgr.closed, "session released after capture")

	got, err := f.svc.Get(snap.ID().String())
	require.NoError(t, err)
	assert.Same(t, snap, got)

	live, ok := f.svc.Live()
	require.True(t, ok)
	assert.Equal(t, snap.ID(), live.ID())
}

func TestCapture_SessionFailureEnumeratesNothing(t *testing.T) {
	f := newFixture(t)
	f.svc.acquire = func() (*desktop.Session, error) {
		return nil, &desktop.SessionError{Op: "initialise COM", Err: errors.New("CoInitializeEx failed")}
	}

	snap, err := f.svc.Capture(context.Background())

	assert.Nil(t, snap)
	assert.ErrorIs(t, err, desktop.ErrSubsystemUnavailable)
	assert.Zero(t, f.enum.calls)
	assert.Empty(t, f.svc.List())
}

func TestReplay(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	var states []replay.State
	outcomes, err := f.svc.Replay(context.Background(), snap.ID().String(), func(p replay.Progress) {
		states = append(states, p.State)
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, replay.StatusSucceeded, outcomes[0].Status)
	assert.Equal(t, replay.StatusSkipped, outcomes[1].Status)
	assert.Equal(t, []desktop.HWND{0x1}, f.mgr.moved)
	assert.NotEmpty(t, states)
	assert.Equal(t, 2, f.mgr.closed)
}

// countingReplayer records how many replays overlap.
type countingReplayer struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (r *countingReplayer) ReplayObserved(ctx context.Context, s *desktop.Session, snap *snapshot.Snapshot, obs replay.Observer) ([]replay.Outcome, error) {
	n := r.inFlight.Add(1)
	for {
		m := r.maxInFlight.Load()
		if n <= m || r.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	r.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	r.inFlight.Add(-1)
	return nil, nil
}

func TestReplay_RunsOneAtATime(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	r := &countingReplayer{}
	f.svc.engine = r

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Replay(context.Background(), snap.ID().String(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), r.calls.Load())
	assert.Equal(t, int32(1), r.maxInFlight.Load())
}

func TestReplay_WaitingReplayHonoursContext(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)
	acquires := f.acquires

	// Another replay holds the slot.
	f.svc.replaying <- struct{}{}
	defer func() { <-f.svc.replaying }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcomes, err := f.svc.Replay(ctx, snap.ID().String(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, outcomes)
	assert.Equal(t, acquires, f.acquires, "no session while waiting")
}

func TestReplay_IdentifierErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Replay(context.Background(), "not-a-uuid", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = f.svc.Replay(context.Background(), uuid.NewString(), nil)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	assert.Zero(t, f.acquires, "no session for a bad identifier")
}

func TestReplay_SessionFailure(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	f.svc.acquire = func() (*desktop.Session, error) {
		return nil, &desktop.SessionError{Op: "acquire", Err: desktop.ErrUnsupportedPlatform}
	}

	outcomes, err := f.svc.Replay(context.Background(), snap.ID().String(), nil)
	assert.True(t, desktop.IsSessionError(err))
	assert.Empty(t, outcomes)
}

func TestWindows(t *testing.T) {
	f := newFixture(t)

	windows, err := f.svc.Windows(context.Background())
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Empty(t, f.svc.List(), "live windows are not stored")
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = f.svc.Windows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.acquires)
}

func TestSaveLoad(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Save("bogus"), ErrInvalidIdentifier)
	assert.ErrorIs(t, f.svc.Save(uuid.NewString()), ErrConfigNotFound)
	require.NoError(t, f.svc.Save(snap.ID().String()))

	// A fresh process sharing the store.
	other := New(f.svc.acquire, f.enum, nil, nil, f.svc.store)
	added, err := other.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	loaded, err := other.Get(snap.ID().String())
	require.NoError(t, err)
	assert.Equal(t, snap.Window(0).Persisted(), loaded.Window(0))

	live, ok := other.Live()
	require.True(t, ok)
	assert.Equal(t, snap.ID(), live.ID())

	added, err = other.Load()
	require.NoError(t, err)
	assert.Zero(t, added, "loading twice adds nothing")
}

func TestNoStore(t *testing.T) {
	svc := New(nil, nil, nil, nil, nil)

	_, err := svc.Load()
	assert.Error(t, err)
	assert.Error(t, svc.SaveAll())
}
