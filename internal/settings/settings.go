// Package settings stores per-install launcher settings.
//
// Two backends exist, mirroring the registry-or-file choice of the desktop
// launcher: a YAML file beside the install and a per-user SQLite database.
// Values are flat strings keyed by (identity, field); the core only reads the
// fields declared here and preserves everything else.
package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"open-launcher/internal/launcherr"
)

const (
	FieldWindowed      = "Windowed"
	FieldWindowedDelay = "WindowedDelay"
	FieldLastUpdated   = "LastUpdated"
	FieldServers       = "Servers"
)

// Settings is the decoded view of an identity's values.
type Settings struct {
	Windowed      bool
	WindowedDelay time.Duration
	LastUpdated   int64
	Servers       string

	// Extra holds fields the core does not interpret.
	Extra map[string]string
}

// Default is substituted when loading fails.
func Default() Settings {
	return Settings{Extra: map[string]string{}}
}

// Store is the settings collaborator used by the launcher core.
type Store interface {
	Load(ctx context.Context, identity string) (Settings, error)
	// SetValue writes field for keyName. Non-persistent values live only for
	// the lifetime of the store.
	SetValue(ctx context.Context, keyName, field, value string, persistent bool) error
	// AppendValue appends suffix to the persisted value of field and returns
	// the stored result. The read and write happen under the store's lock.
	AppendValue(ctx context.Context, keyName, field, suffix string) (string, error)
	Close() error
}

// Open returns the store for backend ("file" or "db"). An empty path picks
// the backend default rooted at installDir or the user config dir.
func Open(backend, path, installDir string) (Store, error) {
	switch backend {
	case "file", "":
		if path == "" {
			path = filepath.Join(installDir, "launcher-settings.yaml")
		}
		return NewFileStore(path), nil
	case "db":
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("detect user config dir: %w", err)
			}
			path = filepath.Join(dir, "open-launcher", "settings.db")
		}
		return OpenDBStore(path)
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}

func decode(values map[string]string) (Settings, error) {
	s := Default()
	for k, v := range values {
		v = strings.TrimSpace(v)
		switch k {
		case FieldWindowed:
			b, err := parseBool(v)
			if err != nil {
				return Settings{}, launcherr.Wrap(launcherr.CodeSettingsLoad, "decode "+k, err)
			}
			s.Windowed = b
		case FieldWindowedDelay:
			if v == "" {
				continue
			}
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil || ms < 0 {
				return Settings{}, launcherr.New(launcherr.CodeSettingsLoad, fmt.Sprintf("decode %s: invalid delay %q", k, v))
			}
			s.WindowedDelay = time.Duration(ms) * time.Millisecond
		case FieldLastUpdated:
			if v == "" {
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Settings{}, launcherr.Wrap(launcherr.CodeSettingsLoad, "decode "+k, err)
			}
			s.LastUpdated = n
		case FieldServers:
			s.Servers = v
		default:
			s.Extra[k] = v
		}
	}
	return s, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}

// overlay holds non-persistent values layered over the backend.
type overlay struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func (o *overlay) set(identity, field, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = map[string]map[string]string{}
	}
	m := o.values[identity]
	if m == nil {
		m = map[string]string{}
		o.values[identity] = m
	}
	m[field] = value
}

func (o *overlay) apply(identity string, dst map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k, v := range o.values[identity] {
		dst[k] = v
	}
}

func (o *overlay) clear(identity, field string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.values[identity], field)
}

// LastUpdated reads the persisted last-update marker; a missing value is 0.
func LastUpdated(ctx context.Context, st Store, identity string) (int64, error) {
	s, err := st.Load(ctx, identity)
	if err != nil {
		return 0, err
	}
	return s.LastUpdated, nil
}

// SetLastUpdated persists the last-update marker.
func SetLastUpdated(ctx context.Context, st Store, identity string, marker int64) error {
	return st.SetValue(ctx, identity, FieldLastUpdated, strconv.FormatInt(marker, 10), true)
}
