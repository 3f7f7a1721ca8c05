package desktop

import (
	"errors"
	"fmt"
)

// ErrSubsystemUnavailable is matched by every SessionError.
var ErrSubsystemUnavailable = errors.New("virtual desktop subsystem unavailable")

var (
	// ErrSessionReleased is wrapped when a released session is used.
	ErrSessionReleased = errors.New("session released")

	// ErrUnknownDesktop is returned when a desktop GUID or index is not in the
	// shell's desktop list.
	ErrUnknownDesktop = errors.New("unknown virtual desktop")

	// ErrRelocationInProgress is returned when a window is already being moved.
	ErrRelocationInProgress = errors.New("window relocation already in progress")

	// ErrUnsupportedPlatform is wrapped by Acquire on platforms without a
	// virtual desktop subsystem.
	ErrUnsupportedPlatform = errors.New("virtual desktops are not supported on this platform")
)

// SessionError reports that the desktop session could not be established or
// is no longer usable. It aborts whatever operation needed the session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	if e == nil {
		return ErrSubsystemUnavailable.Error()
	}
	msg := ErrSubsystemUnavailable.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SessionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every SessionError match ErrSubsystemUnavailable.
func (e *SessionError) Is(target error) bool {
	return target == ErrSubsystemUnavailable
}

// IsSessionError reports whether err aborts a whole operation.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}
