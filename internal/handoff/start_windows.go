//go:build windows

package handoff

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

// SystemStarter uses ShellExecute so the "runas" verb can raise a UAC
// prompt.
type SystemStarter struct{}

func (SystemStarter) Start(ctx context.Context, path string, args []string, elevate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	verb := "open"
	if elevate {
		verb = "runas"
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = `"` + a + `"`
	}
	verbPtr, err := windows.UTF16PtrFromString(verb)
	if err != nil {
		return err
	}
	filePtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	argPtr, err := windows.UTF16PtrFromString(strings.Join(quoted, " "))
	if err != nil {
		return err
	}
	if err := windows.ShellExecute(0, verbPtr, filePtr, argPtr, nil, windows.SW_SHOWNORMAL); err != nil {
		return fmt.Errorf("ShellExecute %s: %w", verb, err)
	}
	return nil
}

// RequiresElevation is true from Vista (NT 6.0) on.
func RequiresElevation() bool {
	return windows.RtlGetVersion().MajorVersion >= 6
}
