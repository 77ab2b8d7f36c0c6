// Package handoff starts the external updater and hands it the launcher's
// own path so it can replace and relaunch the launcher.
package handoff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"open-launcher/internal/launcherr"
)

// Starter launches a detached process. elevate requests administrator
// rights where the OS supports it.
type Starter interface {
	Start(ctx context.Context, path string, args []string, elevate bool) error
}

// Report describes a started updater.
type Report struct {
	UpdaterPath string
	Checksum    string
	Elevated    bool
}

type Handoff struct {
	Starter Starter
	// ExpectedSHA256, when set, turns the checksum from a report into a gate.
	ExpectedSHA256 string
	// RequiresElevation defaults to the host OS policy.
	RequiresElevation func() bool
}

func New(expectedSHA256 string) *Handoff {
	return &Handoff{
		Starter:           SystemStarter{},
		ExpectedSHA256:    strings.ToLower(strings.TrimSpace(expectedSHA256)),
		RequiresElevation: RequiresElevation,
	}
}

// LaunchUpdater starts updaterPath with appPath as its sole argument. It
// does not wait for the updater; on success the caller is expected to exit.
func (h *Handoff) LaunchUpdater(ctx context.Context, updaterPath, appPath string) (Report, error) {
	rep := Report{UpdaterPath: updaterPath}
	if updaterPath == "" {
		return rep, launcherr.New(launcherr.CodeUpdaterLaunch, "updater path is not configured")
	}
	st, err := os.Stat(updaterPath)
	if err != nil {
		return rep, launcherr.Wrap(launcherr.CodeUpdaterLaunch, "updater not found", err)
	}
	if st.IsDir() {
		return rep, launcherr.New(launcherr.CodeUpdaterLaunch, updaterPath+" is a directory")
	}

	sum, err := FileSHA256(updaterPath)
	if err != nil {
		return rep, launcherr.Wrap(launcherr.CodeUpdaterLaunch, "read updater", err)
	}
	rep.Checksum = sum
	if h.ExpectedSHA256 != "" && h.ExpectedSHA256 != sum {
		return rep, launcherr.New(launcherr.CodeUpdaterLaunch,
			fmt.Sprintf("updater checksum mismatch: got %s", sum))
	}
	slog.Info("updater checksum", "path", updaterPath, "sha256", sum, "enforced", h.ExpectedSHA256 != "")

	if h.RequiresElevation != nil {
		rep.Elevated = h.RequiresElevation()
	}
	starter := h.Starter
	if starter == nil {
		starter = SystemStarter{}
	}
	if err := starter.Start(ctx, updaterPath, []string{appPath}, rep.Elevated); err != nil {
		return rep, launcherr.Wrap(launcherr.CodeUpdaterLaunch, "start updater", err)
	}
	slog.Info("updater started", "path", updaterPath, "elevated", rep.Elevated)
	return rep, nil
}

func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DefaultUpdaterPath is the updater beside the per-user config directory.
func DefaultUpdaterPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("detect user config dir: %w", err)
	}
	name := "Updater"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), nil
}

// Executable returns the running launcher's absolute path.
func Executable() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", err
	}
	if r, err := filepath.EvalSymlinks(p); err == nil {
		p = r
	}
	if p == "" {
		return "", errors.New("empty executable path")
	}
	return p, nil
}
