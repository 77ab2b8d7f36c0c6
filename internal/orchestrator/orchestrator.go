// Package orchestrator is the launcher core. It owns the LauncherConfig and
// the liveness slot, runs the update cycle, spawns the client and tracks its
// attachments. Everything the interactive front end needs arrives on the
// Events channel; the front end never reads worker state directly.
package orchestrator

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"open-launcher/internal/attach"
	"open-launcher/internal/config"
	"open-launcher/internal/handoff"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/liveness"
	"open-launcher/internal/manifest"
	"open-launcher/internal/settings"
	"open-launcher/internal/telemetry"
	"open-launcher/internal/update"
	"open-launcher/internal/winctl"
)

// Version is the running launcher build. Overridden at link time with
// -ldflags "-X open-launcher/internal/orchestrator.Version=...".
var Version = "5.0.0"

const eventQueueSize = 256

type ManifestFetcher interface {
	Fetch(ctx context.Context, url string, key ed25519.PublicKey) (*manifest.Manifest, error)
}

type Updater interface {
	LaunchUpdater(ctx context.Context, updaterPath, appPath string) (handoff.Report, error)
}

type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ProxyState reports whether a traffic proxy is bound to the client session.
type ProxyState interface {
	Active() bool
}

// Deps are the collaborators the core drives. Nil optional fields fall back
// to production implementations.
type Deps struct {
	Settings  settings.Store
	Fetcher   ManifestFetcher
	Engine    *update.Engine
	Updater   Updater
	Lister    attach.ProcessLister
	Window    winctl.Controller
	Spawner   Spawner
	Resolver  Resolver
	Proxy     ProxyState
	Telemetry *telemetry.Logger

	// AppPath is handed to the updater; defaults to the running executable.
	AppPath string
	// Probe overrides the liveness probe, for tests.
	Probe liveness.ProbeFunc
}

type Orchestrator struct {
	deps Deps

	// mu guards cfg and, through the monitor, the liveness slot.
	mu       sync.Mutex
	cfg      *config.Config
	settings settings.Settings
	last     *manifest.Manifest

	// cycleMu serializes update cycles so one manifest drives one handoff.
	cycleMu sync.Mutex

	monitor  *liveness.Monitor
	registry *attach.Registry

	attachMu    sync.Mutex
	attachments []*attach.Attachment
	watchers    sync.WaitGroup

	events      chan Event
	closed      chan struct{}
	closeOnce   sync.Once
	terminating atomic.Bool
}

// New takes ownership of cfg.
func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		return nil, launcherr.New(launcherr.CodeInvalidConfig, "config is nil")
	}
	if deps.Settings == nil {
		return nil, launcherr.New(launcherr.CodeInvalidConfig, "settings store is required")
	}
	if deps.Fetcher == nil {
		deps.Fetcher = manifest.NewFetcher(0)
	}
	if deps.Engine == nil {
		deps.Engine = update.NewEngine(update.FileApplier{Path: cfg.File})
	}
	if deps.Updater == nil {
		deps.Updater = handoff.New(cfg.UpdaterSHA256)
	}
	if deps.Lister == nil {
		deps.Lister = attach.SystemLister{}
	}
	if deps.Window == nil {
		w, err := winctl.New()
		if err != nil {
			return nil, fmt.Errorf("window controller: %w", err)
		}
		deps.Window = w
	}
	if deps.Spawner == nil {
		deps.Spawner = ExecSpawner{}
	}
	if deps.Resolver == nil {
		deps.Resolver = net.DefaultResolver
	}

	o := &Orchestrator{
		deps:     deps,
		cfg:      cfg,
		settings: settings.Default(),
		registry: attach.NewRegistry(),
		events:   make(chan Event, eventQueueSize),
		closed:   make(chan struct{}),
	}
	o.monitor = liveness.NewMonitor(cfg.ProbeTimeout, cfg.ProbeFloor, &o.mu, o.onLiveness)
	if deps.Probe != nil {
		o.monitor.Probe = deps.Probe
	}
	return o, nil
}

// Events is drained by the control loop.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Start runs Init, then kicks off a background update check when one is
// configured.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.Init(ctx); err != nil {
		return err
	}
	if o.updatesEnabled() {
		go o.backgroundCheck(ctx)
	}
	return nil
}

// Init loads settings and probes the first server concurrently. Callers
// that run Play right away use it instead of Start so the manifest is only
// fetched once.
func (o *Orchestrator) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.LoadSettings(gctx)
		return nil
	})
	g.Go(func() error {
		o.mu.Lock()
		names := o.cfg.Servers.Names()
		o.mu.Unlock()
		if len(names) == 0 {
			return launcherr.New(launcherr.CodeInvalidConfig, "no servers configured")
		}
		return o.SelectServer(names[0])
	})
	return g.Wait()
}

func (o *Orchestrator) backgroundCheck(ctx context.Context) {
	_, err := o.CheckForUpdates(ctx)
	switch {
	case err == nil, errors.Is(err, ErrTerminating):
	case launcherr.Advisory(err):
		slog.Debug("background update check ended", "err", err)
	default:
		slog.Warn("background update check failed", "err", err)
	}
}

// LoadSettings reads the per-install settings, merging persisted servers
// behind the configured ones. On failure defaults are kept and the user is
// told. Start calls it; it is exported for commands that only list.
func (o *Orchestrator) LoadSettings(ctx context.Context) {
	s, err := o.deps.Settings.Load(ctx, o.keyName())
	if err != nil {
		slog.Warn("settings load failed, using defaults", "err", err)
		o.notice(Warning, "Could not load launcher settings; defaults are in use.", err)
		s = settings.Default()
	}

	extra, perr := config.ParseServerList(s.Servers)
	if perr != nil {
		slog.Warn("ignoring malformed persisted servers", "err", perr)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings = s
	for _, srv := range extra {
		if _, ok := o.cfg.Servers.Lookup(srv.Name); ok {
			continue
		}
		if err := o.cfg.Servers.Add(srv); err != nil {
			slog.Warn("skipping persisted server", "name", srv.Name, "err", err)
		}
	}
}

func (o *Orchestrator) keyName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.KeyName
}

func (o *Orchestrator) updatesEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.VersionInfoURL != ""
}

// Servers returns the configured servers in display order.
func (o *Orchestrator) Servers() []config.Server {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.Servers.All()
}

// Settings returns the settings loaded at startup.
func (o *Orchestrator) Settings() settings.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// SelectServer makes name current and probes it in the background.
func (o *Orchestrator) SelectServer(name string) error {
	o.mu.Lock()
	srv, ok := o.cfg.Servers.Lookup(name)
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown server %q", name)
	}
	if o.monitor.Select(name, srv) == "" {
		return errors.New("launcher is closed")
	}
	slog.Info("probe issued", "server", name, "addr", srv.Addr())
	o.deps.Telemetry.Log(telemetry.Record{Type: "probe", Server: name, Host: srv.Host, Port: srv.Port, State: liveness.Probing.String()})
	return nil
}

// Selected returns the current server and its liveness.
func (o *Orchestrator) Selected() (string, liveness.Status) {
	return o.monitor.Current()
}

// WaitProbes blocks until in-flight probes finish.
func (o *Orchestrator) WaitProbes() { o.monitor.Wait() }

// onLiveness runs with o.mu held.
func (o *Orchestrator) onLiveness(u liveness.Update) {
	if u.Status != liveness.Probing {
		attrs := []any{"server", u.Server, "status", u.Status.String()}
		if u.Err != nil {
			attrs = append(attrs, "err", u.Err)
		}
		slog.Info("probe result", attrs...)
		rec := telemetry.Record{Type: "probe", Server: u.Server, State: u.Status.String()}
		if u.Err != nil {
			rec.Err = u.Err.Error()
		}
		o.deps.Telemetry.Log(rec)
	}
	o.post(Event{Kind: EventStatus, Server: u.Server, Status: u.Status, Err: u.Err})
}

// AddServer appends a server, optionally persisting it to settings, then
// selects and probes it.
func (o *Orchestrator) AddServer(ctx context.Context, name, host string, port int, persist bool) error {
	srv := config.Server{Name: name, Host: host, Port: port}

	o.mu.Lock()
	if err := o.cfg.Servers.Add(srv); err != nil {
		o.mu.Unlock()
		return launcherr.Wrap(launcherr.CodeInvalidConfig, "add server", err)
	}
	keyName := o.cfg.KeyName
	o.mu.Unlock()

	if persist {
		// Append to what is stored, not to the startup snapshot, which may be
		// defaults after a failed load.
		stored, err := o.deps.Settings.AppendValue(ctx, keyName, settings.FieldServers, config.FormatServerEntry(srv))
		if err != nil {
			slog.Warn("persist server failed", "server", name, "err", err)
			o.notice(Warning, "The server was added for this session but could not be saved.", err)
		} else {
			o.mu.Lock()
			o.settings.Servers = stored
			o.mu.Unlock()
		}
	}
	slog.Info("server added", "server", name, "addr", srv.Addr(), "persist", persist)
	return o.SelectServer(name)
}

func (o *Orchestrator) terminate(reason string) {
	o.terminating.Store(true)
	o.deliver(Event{Kind: EventTerminate, Message: reason})
}

// Close stops probes and attachments. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.closed)
		o.monitor.Close()
		o.attachMu.Lock()
		list := o.attachments
		o.attachments = nil
		o.attachMu.Unlock()
		for _, a := range list {
			a.Stop()
		}
	})
}
