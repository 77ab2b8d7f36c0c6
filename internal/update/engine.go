// Package update decides what to do with a verified manifest: nothing,
// refresh the launcher config and restart, or hand off to the updater.
package update

import (
	"fmt"
	"sync"

	"open-launcher/internal/config"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/manifest"
	"open-launcher/internal/version"
)

type Decision int

const (
	NoAction Decision = iota
	ConfigRefreshed
	ClientUpdateRequired
)

func (d Decision) String() string {
	switch d {
	case NoAction:
		return "no_action"
	case ConfigRefreshed:
		return "config_refreshed"
	case ClientUpdateRequired:
		return "client_update_required"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Result is the outcome of one decision cycle.
type Result struct {
	Decision Decision
	// UpdatesAvailable is advisory: some file revision is newer than the
	// local marker.
	UpdatesAvailable bool
	RemoteVersion    string
	MaxRevision      int64
	ConfigChecksum   string
}

// ConfigApplier persists server-pushed configuration. Apply must be atomic.
type ConfigApplier interface {
	ApplyConfig(body []byte) error
}

// FileApplier replaces the launcher config file.
type FileApplier struct {
	Path string
}

func (a FileApplier) ApplyConfig(body []byte) error {
	return config.ReplaceFile(a.Path, body)
}

// Engine is safe for concurrent use.
type Engine struct {
	applier ConfigApplier

	mu          sync.Mutex
	lastApplied string
}

func NewEngine(applier ConfigApplier) *Engine {
	return &Engine{applier: applier}
}

// Decide runs config, version and staleness comparison, in that order.
// A config payload is written at most once per checksum.
func (e *Engine) Decide(m *manifest.Manifest, localVersion string, lastUpdateMarker int64, localConfigChecksum string) (Result, error) {
	if m == nil {
		return Result{}, launcherr.New(launcherr.CodeParse, "no verified manifest")
	}
	res := Result{
		RemoteVersion:    m.Version(),
		MaxRevision:      m.MaxRevision(),
		UpdatesAvailable: UpdatesAvailable(m, lastUpdateMarker),
	}

	if payload, ok := m.Config(); ok && payload.Checksum != localConfigChecksum {
		res.ConfigChecksum = payload.Checksum
		if err := e.applyOnce(payload); err != nil {
			return Result{}, err
		}
		res.Decision = ConfigRefreshed
		return res, nil
	}

	newer, err := version.Newer(m.Version(), localVersion)
	if err != nil {
		return Result{}, launcherr.Wrap(launcherr.CodeParse, "compare versions", err)
	}
	if newer {
		res.Decision = ClientUpdateRequired
	}
	return res, nil
}

func (e *Engine) applyOnce(p manifest.ConfigPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastApplied == p.Checksum {
		return nil
	}
	if e.applier == nil {
		return launcherr.New(launcherr.CodeConfigRefreshRequired, "no config applier")
	}
	if err := e.applier.ApplyConfig([]byte(p.Body)); err != nil {
		return launcherr.Wrap(launcherr.CodeConfigRefreshRequired, "apply config", err)
	}
	e.lastApplied = p.Checksum
	return nil
}

// UpdatesAvailable reports whether any file revision exceeds marker.
func UpdatesAvailable(m *manifest.Manifest, marker int64) bool {
	for _, rev := range m.Files() {
		if rev > marker {
			return true
		}
	}
	return false
}
