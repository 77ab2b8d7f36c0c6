//go:build !windows

package winctl

// Noop accepts every call. Window styling only exists on Windows.
type Noop struct{}

func New() (Controller, error) { return Noop{}, nil }

func (Noop) Style(uintptr) (uint32, error) { return 0, nil }
func (Noop) SetStyle(uintptr, uint32) error { return nil }
func (Noop) Redraw(uintptr) error { return nil }

// MainWindows has no meaning without a window manager contract; callers fall
// back to treating the pid as the handle.
func MainWindows() (map[uint32]uintptr, error) { return nil, nil }
