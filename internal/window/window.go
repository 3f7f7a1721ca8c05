package window

import (
	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
)

// Window style bits read from GWL_STYLE / GWL_EXSTYLE.
const (
	WSOverlappedWindow uint32 = 0x00CF0000 // WS_CAPTION | WS_SYSMENU | WS_THICKFRAME | WS_MINIMIZEBOX | WS_MAXIMIZEBOX
	WSPopup            uint32 = 0x80000000
	WSExToolWindow     uint32 = 0x00000080
)

// CloakPolicyInclude records that cloaked windows (suspended UWP frames,
// windows on other desktops hidden by DWM) are kept by Classify. The cloak
// state is still captured on Native for diagnostics.
const CloakPolicyInclude = true

// Rect is a window rectangle in screen coordinates.
type Rect struct {
	Left   int32 `json:"left"`
	Top    int32 `json:"top"`
	Right  int32 `json:"right"`
	Bottom int32 `json:"bottom"`
}

// Width returns Right - Left.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns Bottom - Top.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Native holds the raw attributes of one top-level window as the OS reports
// them. Handle is only valid until the window is destroyed.
type Native struct {
	Handle  desktop.HWND
	Title   string
	Class   string
	PID     uint32
	Rect    Rect
	Style   uint32
	ExStyle uint32
	Visible bool
	Cloaked bool
}

// Source defines the interface to the platform window manager.
type Source interface {
	// Windows walks every top-level window in OS enumeration order and
	// returns its attributes. On error, the windows read so far are
	// returned alongside it.
	Windows() ([]Native, error)

	// ExecutablePath returns the absolute image path of the process pid.
	ExecutablePath(pid uint32) (string, error)

	// Name returns the source name (e.g., "win32")
	Name() string
}

// Classify reports whether w is a user-facing application window: it has a
// title, is visible, carries an overlapped-window or popup style, is not a
// tool window and has a non-empty rectangle.
func Classify(w Native) bool {
	if w.Title == "" || !w.Visible {
		return false
	}
	if w.Style&WSOverlappedWindow == 0 && w.Style&WSPopup == 0 {
		return false
	}
	if w.ExStyle&WSExToolWindow != 0 {
		return false
	}
	if w.Rect.Width() <= 0 || w.Rect.Height() <= 0 {
		return false
	}
	if w.Cloaked && !CloakPolicyInclude {
		return false
	}
	return true
}
