//go:build windows

package desktop

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

var (
	clsidVirtualDesktopManager = ole.NewGUID("{AA509086-5CA9-4C25-8F95-589D3C07B48A}")
	iidVirtualDesktopManager   = ole.NewGUID("{A5CD92FF-29BE-454C-8D04-D82879FB3F1B}")
)

// iVirtualDesktopManager is the documented shell interface (shobjidl_core.h).
type iVirtualDesktopManager struct {
	ole.IUnknown
}

type iVirtualDesktopManagerVtbl struct {
	ole.IUnknownVtbl
	IsWindowOnCurrentVirtualDesktop uintptr
	GetWindowDesktopId              uintptr
	MoveWindowToDesktop             uintptr
}

func (v *iVirtualDesktopManager) vtbl() *iVirtualDesktopManagerVtbl {
	return (*iVirtualDesktopManagerVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iVirtualDesktopManager) getWindowDesktopID(hwnd HWND, id *ole.GUID) error {
	hr, _, _ := syscall.SyscallN(
		v.vtbl().GetWindowDesktopId,
		uintptr(unsafe.Pointer(v)),
		uintptr(hwnd),
		uintptr(unsafe.Pointer(id)),
	)
	return hresult(hr)
}

func (v *iVirtualDesktopManager) moveWindowToDesktop(hwnd HWND, id *ole.GUID) error {
	hr, _, _ := syscall.SyscallN(
		v.vtbl().MoveWindowToDesktop,
		uintptr(unsafe.Pointer(v)),
		uintptr(hwnd),
		uintptr(unsafe.Pointer(id)),
	)
	return hresult(hr)
}

func hresult(hr uintptr) error {
	if int32(hr) < 0 {
		return ole.NewError(uintptr(uint32(hr)))
	}
	return nil
}
