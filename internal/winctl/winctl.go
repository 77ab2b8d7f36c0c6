// Package winctl applies windowed-mode styling to the game client's main
// window.
//
// The launcher does not own the target window. It only clears the system
// menu style and asks the OS to redraw; the owning process stays
// authoritative over everything else.
package winctl

import "fmt"

// WSSysMenu is the Win32 WS_SYSMENU window style bit.
const WSSysMenu uint32 = 0x00080000

// Controller reads and writes a window's style flags.
type Controller interface {
	Style(hwnd uintptr) (uint32, error)
	SetStyle(hwnd uintptr, style uint32) error
	Redraw(hwnd uintptr) error
}

// MenuRemover is implemented by controllers that can also empty the
// window's system menu before the style bit is cleared.
type MenuRemover interface {
	RemoveSystemMenuItems(hwnd uintptr) error
}

// StripSystemMenu removes the system menu from hwnd and forces a redraw.
func StripSystemMenu(c Controller, hwnd uintptr) error {
	if hwnd == 0 {
		return fmt.Errorf("window handle is zero")
	}
	if mr, ok := c.(MenuRemover); ok {
		if err := mr.RemoveSystemMenuItems(hwnd); err != nil {
			return fmt.Errorf("remove system menu items: %w", err)
		}
	}
	style, err := c.Style(hwnd)
	if err != nil {
		return fmt.Errorf("get window style: %w", err)
	}
	if style&WSSysMenu != 0 {
		if err := c.SetStyle(hwnd, style&^WSSysMenu); err != nil {
			return fmt.Errorf("set window style: %w", err)
		}
	}
	if err := c.Redraw(hwnd); err != nil {
		return fmt.Errorf("redraw window: %w", err)
	}
	return nil
}
