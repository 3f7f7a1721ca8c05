package desktop

import (
	"fmt"
	"sync"

	"github.com/go-ole/go-ole"

	"github.com/bryanchriswhite/DeskSnap/internal/logger"
)

// HWND is a native top-level window handle. It is only meaningful inside the
// session that observed it and must be re-resolved after any wait.
type HWND uintptr

// Desktop identifies a virtual desktop: Index is its position in the shell's
// desktop list, ID is the session-local GUID.
type Desktop struct {
	Index uint32
	ID    ole.GUID
}

// Manager is the connection to the OS virtual-desktop subsystem that a
// Session borrows. Implementations need not be safe for concurrent use; the
// Session serializes relocation of the same window.
type Manager interface {
	// WindowDesktop returns the desktop hwnd currently occupies.
	WindowDesktop(hwnd HWND) (Desktop, error)

	// MoveWindow moves hwnd onto the desktop at index.
	MoveWindow(hwnd HWND, index uint32) error

	// Close releases the subsystem connection.
	Close() error
}

// Session is the desktop session handle. It is created by Acquire (or
// NewSession), shared by reference across enumeration and replay calls, and
// ended with Release.
type Session struct {
	mgr Manager

	mu       sync.RWMutex
	released bool

	movingMu sync.Mutex
	moving   map[HWND]struct{}
}

// NewSession wraps an already connected Manager.
func NewSession(mgr Manager) *Session {
	return &Session{
		mgr:    mgr,
		moving: make(map[HWND]struct{}),
	}
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	return s.Err() == nil
}

// Err returns nil for a usable session and a *SessionError otherwise.
func (s *Session) Err() error {
	if s == nil || s.mgr == nil {
		return &SessionError{Op: "session", Err: fmt.Errorf("no subsystem connection")}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return &SessionError{Op: "session", Err: ErrSessionReleased}
	}
	return nil
}

// WindowDesktop resolves the virtual desktop hwnd is on.
func (s *Session) WindowDesktop(hwnd HWND) (Desktop, error) {
	if err := s.Err(); err != nil {
		return Desktop{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return Desktop{}, &SessionError{Op: "window desktop", Err: ErrSessionReleased}
	}
	return s.mgr.WindowDesktop(hwnd)
}

// MoveWindow relocates hwnd to the desktop at index. Two relocations of the
// same window never overlap; the second fails with ErrRelocationInProgress.
func (s *Session) MoveWindow(hwnd HWND, index uint32) error {
	if err := s.Err(); err != nil {
		return err
	}

	s.movingMu.Lock()
	if _, busy := s.moving[hwnd]; busy {
		s.movingMu.Unlock()
		return ErrRelocationInProgress
	}
	s.moving[hwnd] = struct{}{}
	s.movingMu.Unlock()

	defer func() {
		s.movingMu.Lock()
		delete(s.moving, hwnd)
		s.movingMu.Unlock()
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return &SessionError{Op: "move window", Err: ErrSessionReleased}
	}

	logger.WithComponent("desktop").Debug().
		Uint64("hwnd", uint64(hwnd)).
		Uint32("desktop_index", index).
		Msg("Moving window")

	return s.mgr.MoveWindow(hwnd, index)
}

// Release closes the subsystem connection. It waits for in-flight calls and is
// safe to call more than once.
func (s *Session) Release() error {
	if s == nil || s.mgr == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	return s.mgr.Close()
}
