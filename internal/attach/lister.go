package attach

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"open-launcher/internal/winctl"
)

// Process is one entry of the OS process table. Window is the main window
// handle, or 0 when the process has none.
type Process struct {
	PID    int32
	Name   string
	Window uintptr
}

// ProcessLister enumerates running processes.
type ProcessLister interface {
	List(ctx context.Context) ([]Process, error)
}

// SystemLister reads the process table with gopsutil and resolves main
// windows through winctl. Where the OS has no main-window notion the pid
// stands in for the handle.
type SystemLister struct{}

func (SystemLister) List(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	windows, err := winctl.MainWindows()
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Exited between enumeration and lookup, or access denied.
			continue
		}
		entry := Process{PID: p.Pid, Name: name}
		if windows != nil {
			entry.Window = windows[uint32(p.Pid)]
		} else {
			entry.Window = uintptr(p.Pid)
		}
		out = append(out, entry)
	}
	return out, nil
}
