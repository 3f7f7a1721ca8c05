//go:build windows

package desktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestShellLayouts(t *testing.T) {
	seen := make(map[string]bool)
	for _, l := range shellLayouts {
		t.Run(l.builds, func(t *testing.T) {
			require.NotNil(t, l.manager)
			require.NotNil(t, l.desktop)
			assert.False(t, seen[l.manager.String()], "manager IID listed twice")
			seen[l.manager.String()] = true

			// GetDesktops follows GetCount, MoveViewToDesktop,
			// CanViewMoveDesktops and GetCurrentDesktop.
			assert.Greater(t, l.getDesktops, slotMoveViewToDesktop+2)
			assert.Less(t, l.getDesktops, 16)
		})
	}
}

func TestOwnWindow(t *testing.T) {
	assert.False(t, ownWindow(0), "no window")

	desktopWindow := HWND(windows.GetDesktopWindow())
	assert.False(t, ownWindow(desktopWindow), "the desktop window belongs to the shell")
}

func TestAcquire_RejectsUnknownIndex(t *testing.T) {
	s, err := Acquire()
	if err != nil {
		t.Skipf("virtual desktop subsystem unavailable: %v", err)
	}
	defer s.Release()

	// An index past the end is rejected before any COM call.
	err = s.MoveWindow(HWND(windows.GetDesktopWindow()), 1<<20)
	assert.ErrorIs(t, err, ErrUnknownDesktop)
}
