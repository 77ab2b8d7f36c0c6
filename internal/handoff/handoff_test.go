package handoff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"open-launcher/internal/launcherr"
)

type fakeStarter struct {
	path    string
	args    []string
	elevate bool
	calls   int
	err     error
}

func (f *fakeStarter) Start(_ context.Context, path string, args []string, elevate bool) error {
	f.calls++
	f.path, f.args, f.elevate = path, args, elevate
	return f.err
}

func writeUpdater(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Updater.exe")
	if err := os.WriteFile(path, []byte("updater-binary"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	sum, err := FileSHA256(path)
	if err != nil {
		t.Fatalf("FileSHA256: %v", err)
	}
	return path, sum
}

func TestLaunchUpdater_PassesAppPathAndElevates(t *testing.T) {
	path, sum := writeUpdater(t)
	fs := &fakeStarter{}
	h := &Handoff{Starter: fs, RequiresElevation: func() bool { return true }}

	rep, err := h.LaunchUpdater(context.Background(), path, `C:\Games\Launcher.exe`)
	if err != nil {
		t.Fatalf("LaunchUpdater: %v", err)
	}
	if fs.calls != 1 || fs.path != path || !fs.elevate {
		t.Fatalf("starter=%+v", fs)
	}
	if len(fs.args) != 1 || fs.args[0] != `C:\Games\Launcher.exe` {
		t.Fatalf("args=%q", fs.args)
	}
	if rep.Checksum != sum || !rep.Elevated {
		t.Fatalf("report=%+v", rep)
	}
}

func TestLaunchUpdater_ChecksumAdvisoryByDefault(t *testing.T) {
	path, _ := writeUpdater(t)
	fs := &fakeStarter{}
	h := &Handoff{Starter: fs}
	if _, err := h.LaunchUpdater(context.Background(), path, "app"); err != nil {
		t.Fatalf("LaunchUpdater: %v", err)
	}
	if fs.elevate {
		t.Fatalf("elevated without policy")
	}
}

func TestLaunchUpdater_ChecksumEnforcedWhenConfigured(t *testing.T) {
	path, sum := writeUpdater(t)
	fs := &fakeStarter{}

	h := &Handoff{Starter: fs, ExpectedSHA256: "00" + sum[2:]}
	if _, err := h.LaunchUpdater(context.Background(), path, "app"); !errors.Is(err, launcherr.ErrUpdaterLaunch) {
		t.Fatalf("expected UpdaterLaunchError, got %v", err)
	}
	if fs.calls != 0 {
		t.Fatalf("started despite mismatch")
	}

	h.ExpectedSHA256 = sum
	if _, err := h.LaunchUpdater(context.Background(), path, "app"); err != nil {
		t.Fatalf("matching checksum: %v", err)
	}
}

func TestLaunchUpdater_MissingOrUnstartable(t *testing.T) {
	h := &Handoff{Starter: &fakeStarter{}}
	_, err := h.LaunchUpdater(context.Background(), filepath.Join(t.TempDir(), "nope.exe"), "app")
	if launcherr.CodeOf(err) != launcherr.CodeUpdaterLaunch {
		t.Fatalf("missing updater: %v", err)
	}
	if _, err := h.LaunchUpdater(context.Background(), "", "app"); launcherr.CodeOf(err) != launcherr.CodeUpdaterLaunch {
		t.Fatalf("empty path: %v", err)
	}

	path, _ := writeUpdater(t)
	h.Starter = &fakeStarter{err: errors.New("access denied")}
	if _, err := h.LaunchUpdater(context.Background(), path, "app"); launcherr.CodeOf(err) != launcherr.CodeUpdaterLaunch {
		t.Fatalf("start failure: %v", err)
	}
}
