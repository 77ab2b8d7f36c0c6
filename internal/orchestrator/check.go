package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"open-launcher/internal/config"
	"open-launcher/internal/handoff"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/settings"
	"open-launcher/internal/telemetry"
	"open-launcher/internal/update"
)

// ErrTerminating is returned when the cycle handed the process off (updater
// started or config refreshed) and the control loop has been told to exit.
var ErrTerminating = errors.New("launcher is terminating")

// CheckForUpdates runs one background update cycle. Failures are advisory:
// they are logged and returned, never shown to the user.
func (o *Orchestrator) CheckForUpdates(ctx context.Context) (update.Result, error) {
	return o.cycle(ctx, false)
}

// CheckNow is the explicit, user-requested update check. Its outcome is
// always reported, including "up to date" and failures.
func (o *Orchestrator) CheckNow(ctx context.Context) (update.Result, error) {
	return o.cycle(ctx, true)
}

func (o *Orchestrator) cycle(ctx context.Context, foreground bool) (update.Result, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()
	if o.terminating.Load() {
		return update.Result{}, ErrTerminating
	}

	o.mu.Lock()
	url := o.cfg.VersionInfoURL
	key := o.cfg.PublicKey
	keyName := o.cfg.KeyName
	cfgFile := o.cfg.File
	o.mu.Unlock()

	if url == "" {
		if foreground {
			o.notice(Info, "This server does not publish updates.", nil)
		}
		return update.Result{}, nil
	}

	m, err := o.deps.Fetcher.Fetch(ctx, url, key)
	if err != nil {
		slog.Warn("manifest unavailable, skipping update check", "code", launcherr.CodeOf(err), "err", err)
		o.deps.Telemetry.Log(telemetry.Record{Type: "manifest", Err: err.Error()})
		if foreground {
			o.notice(Warning, "Update information is not available right now.", err)
		}
		return update.Result{}, err
	}
	slog.Info("manifest verified", "version", m.Version(), "files", len(m.Files()))
	o.deps.Telemetry.Log(telemetry.Record{Type: "manifest", Decision: m.Version()})

	marker, err := settings.LastUpdated(ctx, o.deps.Settings, keyName)
	if err != nil {
		slog.Warn("last update marker unreadable, assuming 0", "err", err)
		marker = 0
	}
	localSum, err := config.Checksum(cfgFile)
	if err != nil {
		slog.Warn("local config checksum failed", "path", cfgFile, "err", err)
	}

	res, err := o.deps.Engine.Decide(m, Version, marker, localSum)
	if err != nil {
		slog.Warn("update decision failed", "err", err)
		if foreground || launcherr.CodeOf(err) == launcherr.CodeConfigRefreshRequired {
			o.notice(Error, "The launcher configuration could not be updated.", err)
		}
		return update.Result{}, err
	}

	o.mu.Lock()
	o.last = m
	o.mu.Unlock()

	slog.Info("update decision", "decision", res.Decision.String(), "remote", res.RemoteVersion, "local", Version,
		"updates_available", res.UpdatesAvailable)
	o.deps.Telemetry.Log(telemetry.Record{Type: "decision", Decision: res.Decision.String(), Message: res.RemoteVersion})

	switch res.Decision {
	case update.ConfigRefreshed:
		// The new config is already persisted; only now may the session end.
		o.notice(Info, "The launcher configuration was updated. Please start the launcher again.", nil)
		o.terminate("config refreshed")
		return res, ErrTerminating

	case update.ClientUpdateRequired:
		if err := o.handOff(ctx, keyName, res); err != nil {
			return res, err
		}
		return res, ErrTerminating

	default:
		if res.UpdatesAvailable {
			o.post(Event{Kind: EventUpdatesAvailable, Message: res.RemoteVersion})
		}
		if foreground {
			o.notice(Info, "The launcher is up to date.", nil)
		}
		return res, nil
	}
}

func (o *Orchestrator) handOff(ctx context.Context, keyName string, res update.Result) error {
	o.mu.Lock()
	updaterPath := o.cfg.UpdaterPath
	o.mu.Unlock()

	var err error
	if updaterPath == "" {
		if updaterPath, err = handoff.DefaultUpdaterPath(); err != nil {
			err = launcherr.Wrap(launcherr.CodeUpdaterLaunch, "locate updater", err)
		}
	}
	appPath := o.deps.AppPath
	if err == nil && appPath == "" {
		if appPath, err = handoff.Executable(); err != nil {
			err = launcherr.Wrap(launcherr.CodeUpdaterLaunch, "locate launcher executable", err)
		}
	}

	var rep handoff.Report
	if err == nil {
		rep, err = o.deps.Updater.LaunchUpdater(ctx, updaterPath, appPath)
	}
	if err != nil {
		slog.Error("updater launch failed", "path", updaterPath, "err", err)
		o.deps.Telemetry.Log(telemetry.Record{Type: "handoff", Err: err.Error()})
		o.notice(Error, "A launcher update is available but the updater could not be started.", err)
		return err
	}
	o.deps.Telemetry.Log(telemetry.Record{Type: "handoff", Checksum: rep.Checksum, Message: rep.UpdaterPath})

	if err := settings.SetLastUpdated(ctx, o.deps.Settings, keyName, res.MaxRevision); err != nil {
		slog.Warn("record last update marker failed", "err", err)
	}
	o.terminate("updater started")
	return nil
}

// MarkUpdated records the newest manifest revision as installed.
func (o *Orchestrator) MarkUpdated(ctx context.Context) error {
	o.mu.Lock()
	m := o.last
	keyName := o.cfg.KeyName
	o.mu.Unlock()
	if m == nil {
		return errors.New("no verified manifest in this session")
	}
	return settings.SetLastUpdated(ctx, o.deps.Settings, keyName, m.MaxRevision())
}
