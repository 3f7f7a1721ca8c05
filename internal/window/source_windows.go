//go:build windows

package window

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	dwmapi                    = windows.NewLazySystemDLL("dwmapi.dll")
	procGetWindowLongW        = user32.NewProc("GetWindowLongW")
	procGetWindowRect         = user32.NewProc("GetWindowRect")
	procDwmGetWindowAttribute = dwmapi.NewProc("DwmGetWindowAttribute")

	// One callback for the process lifetime; Windows caps how many can exist.
	enumWindowsProc = windows.NewCallback(collectWindow)
)

const (
	gwlStyle      = -16
	gwlExStyle    = -20
	dwmwaCloaked  = 14
	maxTextLength = 512
	maxImagePath  = 32768
)

func collectWindow(hwnd windows.HWND, lparam uintptr) uintptr {
	handles := (*[]windows.HWND)(unsafe.Pointer(lparam))
	*handles = append(*handles, hwnd)
	return 1
}

type win32Source struct{}

// NewSource returns the Win32 window source.
func NewSource() Source {
	return win32Source{}
}

func (win32Source) Name() string {
	return "win32"
}

func (s win32Source) Windows() ([]Native, error) {
	var handles []windows.HWND
	err := windows.EnumWindows(enumWindowsProc, unsafe.Pointer(&handles))

	natives := make([]Native, 0, len(handles))
	for _, hwnd := range handles {
		natives = append(natives, probe(hwnd))
	}
	if err != nil {
		return natives, fmt.Errorf("EnumWindows: %w", err)
	}
	return natives, nil
}

func (win32Source) ExecutablePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, maxImagePath)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("query image name of %d: %w", pid, err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

// probe reads the attributes of hwnd. A window destroyed mid-walk simply
// reads as empty and is rejected by Classify.
func probe(hwnd windows.HWND) Native {
	w := Native{
		Handle:  desktop.HWND(hwnd),
		Visible: windows.IsWindowVisible(hwnd),
	}

	buf := make([]uint16, maxTextLength)
	if n, err := windows.GetWindowText(hwnd, &buf[0], int32(len(buf))); err == nil && n > 0 {
		w.Title = windows.UTF16ToString(buf[:n])
	}
	if n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf))); err == nil && n > 0 {
		w.Class = windows.UTF16ToString(buf[:n])
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err == nil {
		w.PID = pid
	}

	style, _, _ := procGetWindowLongW.Call(uintptr(hwnd), signExtend(gwlStyle))
	exStyle, _, _ := procGetWindowLongW.Call(uintptr(hwnd), signExtend(gwlExStyle))
	w.Style = uint32(style)
	w.ExStyle = uint32(exStyle)

	var rect windows.Rect
	if ok, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&rect))); ok != 0 {
		w.Rect = Rect{Left: rect.Left, Top: rect.Top, Right: rect.Right, Bottom: rect.Bottom}
	}

	if procDwmGetWindowAttribute.Find() == nil {
		var cloaked uint32
		hr, _, _ := procDwmGetWindowAttribute.Call(
			uintptr(hwnd),
			dwmwaCloaked,
			uintptr(unsafe.Pointer(&cloaked)),
			unsafe.Sizeof(cloaked),
		)
		w.Cloaked = int32(hr) >= 0 && cloaked != 0
	}

	return w
}

// signExtend widens negative GWL_* indices for the syscall argument slot.
func signExtend(v int32) uintptr {
	return uintptr(v)
}
