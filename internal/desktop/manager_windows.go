//go:build windows

package desktop

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows/registry"

	"github.com/bryanchriswhite/DeskSnap/internal/logger"
)

const (
	virtualDesktopsKey   = `Software\Microsoft\Windows\CurrentVersion\Explorer\VirtualDesktops`
	virtualDesktopsValue = "VirtualDesktopIDs"
)

// comManager talks to the shell through COM. Desktop indexes come from the
// shell's persisted desktop list in the registry, read once per session.
//
// Windows of other processes are moved through the shell's internal view
// interfaces; the documented MoveWindowToDesktop refuses them with
// E_ACCESSDENIED. It is still used for this process's own windows and when
// the running shell build has no known internal layout.
type comManager struct {
	apt   *apartment
	vdm   *iVirtualDesktopManager
	shell *shellMover
	ids   *idCache
}

// Acquire initialises COM on a dedicated thread and activates the shell's
// virtual desktop manager.
func Acquire() (*Session, error) {
	log := logger.WithComponent("desktop")

	apt, err := startApartment()
	if err != nil {
		log.Error().Err(err).Msg("COM initialisation failed")
		return nil, &SessionError{Op: "initialise COM", Err: err}
	}

	var vdm *iVirtualDesktopManager
	err = apt.do(func() error {
		unk, err := ole.CreateInstance(clsidVirtualDesktopManager, iidVirtualDesktopManager)
		if err != nil {
			return err
		}
		vdm = (*iVirtualDesktopManager)(unsafe.Pointer(unk))
		return nil
	})
	if err != nil {
		apt.stop()
		log.Error().Err(err).Msg("CoCreateInstance(VirtualDesktopManager) failed")
		return nil, &SessionError{Op: "activate virtual desktop manager", Err: err}
	}

	var shell *shellMover
	err = apt.do(func() error {
		var err error
		shell, err = openShellMover()
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Shell view interfaces unavailable, only this process's windows can be moved")
	} else {
		log.Debug().Str("builds", shell.layout.builds).Msg("Shell view interfaces found")
	}

	log.Debug().Msg("Desktop session acquired")
	return NewSession(&comManager{
		apt:   apt,
		vdm:   vdm,
		shell: shell,
		ids:   newIDCache(readDesktopIDs),
	}), nil
}

func (m *comManager) WindowDesktop(hwnd HWND) (Desktop, error) {
	var id ole.GUID
	err := m.apt.do(func() error {
		return m.vdm.getWindowDesktopID(hwnd, &id)
	})
	if err != nil {
		return Desktop{}, fmt.Errorf("GetWindowDesktopId: %w", err)
	}

	index, err := m.ids.index(id)
	if err != nil {
		return Desktop{ID: id}, err
	}
	return Desktop{Index: index, ID: id}, nil
}

func (m *comManager) MoveWindow(hwnd HWND, index uint32) error {
	target, noop, err := m.ids.target(index)
	if err != nil || noop {
		return err
	}

	if m.shell != nil && !ownWindow(hwnd) {
		return m.apt.do(func() error {
			return m.shell.moveWindow(hwnd, index)
		})
	}

	err = m.apt.do(func() error {
		return m.vdm.moveWindowToDesktop(hwnd, &target)
	})
	if err != nil {
		return fmt.Errorf("MoveWindowToDesktop: %w", err)
	}
	return nil
}

func (m *comManager) Close() error {
	err := m.apt.do(func() error {
		if m.shell != nil {
			m.shell.release()
		}
		m.vdm.Release()
		return nil
	})
	m.apt.stop()
	if errors.Is(err, errApartmentStopped) {
		return nil
	}
	return err
}

func readDesktopIDs() ([]ole.GUID, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, virtualDesktopsKey, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", virtualDesktopsKey, err)
	}
	defer k.Close()

	raw, _, err := k.GetBinaryValue(virtualDesktopsValue)
	if errors.Is(err, registry.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", virtualDesktopsValue, err)
	}
	return ParseDesktopIDs(raw)
}
