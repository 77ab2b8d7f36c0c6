//go:build windows

package winctl

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	gwlStyle = -16 // GWL_STYLE

	mfByPosition = 0x00000400
	gwOwner      = 4

	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoZOrder     = 0x0004
	swpNoActivate   = 0x0010
	swpFrameChanged = 0x0020
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procGetWindowLongW   = user32.NewProc("GetWindowLongW")
	procSetWindowLongW   = user32.NewProc("SetWindowLongW")
	procGetSystemMenu    = user32.NewProc("GetSystemMenu")
	procGetMenuItemCount = user32.NewProc("GetMenuItemCount")
	procRemoveMenu       = user32.NewProc("RemoveMenu")
	procDrawMenuBar      = user32.NewProc("DrawMenuBar")
	procSetWindowPos     = user32.NewProc("SetWindowPos")
	procGetWindow        = user32.NewProc("GetWindow")
)

// User32 drives the real window manager.
type User32 struct{}

// New loads user32 and validates the exports the controller needs, so a
// stripped-down system fails at startup instead of on first use.
func New() (Controller, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	required := []*windows.LazyProc{
		procGetWindowLongW, procSetWindowLongW, procGetSystemMenu,
		procGetMenuItemCount, procRemoveMenu, procDrawMenuBar,
		procSetWindowPos, procGetWindow,
	}
	var missing []string
	for _, p := range required {
		if err := p.Find(); err != nil {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("user32.dll is missing required exports: %s", strings.Join(missing, ", "))
	}
	return User32{}, nil
}

func (User32) Style(hwnd uintptr) (uint32, error) {
	r1, _, err := procGetWindowLongW.Call(hwnd, int32ToUintptr(gwlStyle))
	if r1 == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return 0, fmt.Errorf("GetWindowLongW: %w", err)
	}
	return uint32(r1), nil
}

func (User32) SetStyle(hwnd uintptr, style uint32) error {
	r1, _, err := procSetWindowLongW.Call(hwnd, int32ToUintptr(gwlStyle), uintptr(style))
	if r1 == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return fmt.Errorf("SetWindowLongW: %w", err)
	}
	return nil
}

func (User32) Redraw(hwnd uintptr) error {
	_, _, _ = procDrawMenuBar.Call(hwnd)
	r1, _, err := procSetWindowPos.Call(hwnd, 0, 0, 0, 0, 0,
		swpNoSize|swpNoMove|swpNoZOrder|swpNoActivate|swpFrameChanged)
	if r1 == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// RemoveSystemMenuItems empties the window's system menu.
func (User32) RemoveSystemMenuItems(hwnd uintptr) error {
	menu, _, _ := procGetSystemMenu.Call(hwnd, 0)
	if menu == 0 {
		return nil
	}
	n, _, _ := procGetMenuItemCount.Call(menu)
	count := int32(n)
	for i := count - 1; i >= 0; i-- {
		_, _, _ = procRemoveMenu.Call(menu, uintptr(i), mfByPosition)
	}
	_, _, _ = procDrawMenuBar.Call(hwnd)
	return nil
}

func int32ToUintptr(v int32) uintptr { return uintptr(v) }

var (
	enumOnce sync.Once
	enumCB   uintptr

	enumMu  sync.Mutex
	enumOut map[uint32]uintptr
)

// MainWindows maps pid -> main window handle: the first visible, unowned
// top-level window of each process.
func MainWindows() (map[uint32]uintptr, error) {
	enumOnce.Do(func() {
		enumCB = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
			if !windows.IsWindowVisible(hwnd) {
				return 1
			}
			owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner)
			if owner != 0 {
				return 1
			}
			var pid uint32
			if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
				return 1
			}
			if _, ok := enumOut[pid]; !ok {
				enumOut[pid] = uintptr(hwnd)
			}
			return 1
		})
	})

	enumMu.Lock()
	defer enumMu.Unlock()
	enumOut = map[uint32]uintptr{}
	if err := windows.EnumWindows(enumCB, unsafe.Pointer(nil)); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := enumOut
	enumOut = nil
	return out, nil
}
