//go:build !windows

package handoff

import (
	"context"
	"fmt"
	"os/exec"
)

// SystemStarter starts the updater as a detached child. Elevation is left to
// the updater itself.
type SystemStarter struct{}

func (SystemStarter) Start(ctx context.Context, path string, args []string, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}
	return cmd.Process.Release()
}

func RequiresElevation() bool { return false }
