//go:build windows

package desktop

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	clsidImmersiveShell              = ole.NewGUID("{C2F03A33-21F5-47FA-B4BB-156362A2F239}")
	sidVirtualDesktopManagerInternal = ole.NewGUID("{C5E0CDCA-7B6E-41B2-9FC4-D93975CC467B}")
	iidServiceProvider               = ole.NewGUID("{6D5140C1-7436-11CE-8034-00AA006009FA}")
	iidApplicationViewCollection     = ole.NewGUID("{1841C6D7-4F9D-42C0-AF41-8747538F10E5}")
)

var errNoShellLayout = errors.New("no known IVirtualDesktopManagerInternal layout")

// Vtable slots shared by every supported shell build.
const (
	slotQueryService      = 3 // IServiceProvider
	slotGetViewForHwnd    = 6 // IApplicationViewCollection
	slotMoveViewToDesktop = 4 // IVirtualDesktopManagerInternal
	slotArrayGetCount     = 3 // IObjectArray
	slotArrayGetAt        = 4 // IObjectArray
)

// shellLayout is one published revision of the shell's undocumented
// IVirtualDesktopManagerInternal. The interface IID changes whenever the
// layout does, so the revision is found by asking the shell for each IID.
type shellLayout struct {
	builds      string
	manager     *ole.GUID
	desktop     *ole.GUID // IVirtualDesktop
	getDesktops int       // vtable slot of GetDesktops
	monitorArg  bool      // GetDesktops takes a leading HMONITOR
}

var shellLayouts = []shellLayout{
	{
		builds:      "26100+ (Windows 11 24H2)",
		manager:     ole.NewGUID("{53F5CA0B-158F-4124-900C-057158060B27}"),
		desktop:     ole.NewGUID("{3F07F4BE-B107-441A-AF0F-39D82529072C}"),
		getDesktops: 7,
	},
	{
		builds:      "22621.2215-22631 (Windows 11 22H2 update, 23H2)",
		manager:     ole.NewGUID("{A3175F2D-239C-4BD2-8AA0-EEBA8B0B138E}"),
		desktop:     ole.NewGUID("{3F07F4BE-B107-441A-AF0F-39D82529072C}"),
		getDesktops: 7,
	},
	{
		builds:      "22000-22621 (Windows 11 21H2, 22H2)",
		manager:     ole.NewGUID("{B2F925B9-5A0F-4D2E-9F4D-2B1507593C10}"),
		desktop:     ole.NewGUID("{536D3495-B208-4CC9-AE26-DE8111275BF8}"),
		getDesktops: 8,
		monitorArg:  true,
	},
	{
		builds:      "20348 (Windows Server 2022)",
		manager:     ole.NewGUID("{094AFE11-44F2-4BA0-976F-29A97E263EE0}"),
		desktop:     ole.NewGUID("{62FDF88B-11CA-4AFB-8BD8-2296DFAE49E2}"),
		getDesktops: 7,
		monitorArg:  true,
	},
	{
		builds:      "17763-19045 (Windows 10)",
		manager:     ole.NewGUID("{F31574D6-B682-4CDC-BD56-1827860ABEC6}"),
		desktop:     ole.NewGUID("{FF72FFDD-BE7E-43FC-9C03-AD81681E88E4}"),
		getDesktops: 7,
	},
}

// shellMover moves windows of any process by moving their application view,
// which is how the shell itself relocates windows. Must be used on the
// apartment thread that created it.
type shellMover struct {
	layout   shellLayout
	views    *ole.IUnknown // IApplicationViewCollection
	internal *ole.IUnknown // IVirtualDesktopManagerInternal
}

func openShellMover() (*shellMover, error) {
	sp, err := ole.CreateInstance(clsidImmersiveShell, iidServiceProvider)
	if err != nil {
		return nil, fmt.Errorf("activate ImmersiveShell: %w", err)
	}
	defer sp.Release()

	views, err := queryService(sp, iidApplicationViewCollection, iidApplicationViewCollection)
	if err != nil {
		return nil, fmt.Errorf("query IApplicationViewCollection: %w", err)
	}

	for _, layout := range shellLayouts {
		internal, err := queryService(sp, sidVirtualDesktopManagerInternal, layout.manager)
		if err == nil {
			return &shellMover{layout: layout, views: views, internal: internal}, nil
		}
	}
	views.Release()
	return nil, errNoShellLayout
}

func (m *shellMover) moveWindow(hwnd HWND, index uint32) error {
	view, err := m.viewForWindow(hwnd)
	if err != nil {
		return fmt.Errorf("GetViewForHwnd: %w", err)
	}
	defer view.Release()

	desktops, err := m.desktops()
	if err != nil {
		return fmt.Errorf("GetDesktops: %w", err)
	}
	defer desktops.Release()

	count, err := arrayCount(desktops)
	if err != nil {
		return fmt.Errorf("IObjectArray.GetCount: %w", err)
	}
	if index >= count {
		return fmt.Errorf("desktop index %d: %w (%d desktops)", index, ErrUnknownDesktop, count)
	}

	target, err := arrayAt(desktops, index, m.layout.desktop)
	if err != nil {
		return fmt.Errorf("IObjectArray.GetAt(%d): %w", index, err)
	}
	defer target.Release()

	hr, _, _ := syscall.SyscallN(
		vtblEntry(m.internal, slotMoveViewToDesktop),
		uintptr(unsafe.Pointer(m.internal)),
		uintptr(unsafe.Pointer(view)),
		uintptr(unsafe.Pointer(target)),
	)
	if err := hresult(hr); err != nil {
		return fmt.Errorf("MoveViewToDesktop: %w", err)
	}
	return nil
}

func (m *shellMover) viewForWindow(hwnd HWND) (*ole.IUnknown, error) {
	var view *ole.IUnknown
	hr, _, _ := syscall.SyscallN(
		vtblEntry(m.views, slotGetViewForHwnd),
		uintptr(unsafe.Pointer(m.views)),
		uintptr(hwnd),
		uintptr(unsafe.Pointer(&view)),
	)
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return view, nil
}

func (m *shellMover) desktops() (*ole.IUnknown, error) {
	var arr *ole.IUnknown
	var hr uintptr
	fn := vtblEntry(m.internal, m.layout.getDesktops)
	if m.layout.monitorArg {
		hr, _, _ = syscall.SyscallN(fn, uintptr(unsafe.Pointer(m.internal)), 0, uintptr(unsafe.Pointer(&arr)))
	} else {
		hr, _, _ = syscall.SyscallN(fn, uintptr(unsafe.Pointer(m.internal)), uintptr(unsafe.Pointer(&arr)))
	}
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return arr, nil
}

func (m *shellMover) release() {
	m.internal.Release()
	m.views.Release()
}

func queryService(sp *ole.IUnknown, service, iid *ole.GUID) (*ole.IUnknown, error) {
	var out *ole.IUnknown
	hr, _, _ := syscall.SyscallN(
		vtblEntry(sp, slotQueryService),
		uintptr(unsafe.Pointer(sp)),
		uintptr(unsafe.Pointer(service)),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return out, nil
}

func arrayCount(arr *ole.IUnknown) (uint32, error) {
	var n uint32
	hr, _, _ := syscall.SyscallN(
		vtblEntry(arr, slotArrayGetCount),
		uintptr(unsafe.Pointer(arr)),
		uintptr(unsafe.Pointer(&n)),
	)
	return n, hresult(hr)
}

func arrayAt(arr *ole.IUnknown, index uint32, iid *ole.GUID) (*ole.IUnknown, error) {
	var out *ole.IUnknown
	hr, _, _ := syscall.SyscallN(
		vtblEntry(arr, slotArrayGetAt),
		uintptr(unsafe.Pointer(arr)),
		uintptr(index),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return out, nil
}

func vtblEntry(obj *ole.IUnknown, slot int) uintptr {
	return (*[16]uintptr)(unsafe.Pointer(obj.RawVTable))[slot]
}

// ownWindow reports whether hwnd belongs to this process, the one case the
// documented MoveWindowToDesktop is allowed to handle.
func ownWindow(hwnd HWND) bool {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return false
	}
	return pid == windows.GetCurrentProcessId()
}
