package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"open-launcher/internal/config"
	"open-launcher/internal/orchestrator"
	"open-launcher/internal/settings"
	"open-launcher/internal/telemetry"
)

// app is one loaded launcher session.
type app struct {
	cfg   *config.Config
	store settings.Store
	tel   *telemetry.Logger
	orch  *orchestrator.Orchestrator
}

func openApp(opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.File == "" {
		// Env-only runs still need somewhere to write pushed config.
		cfg.File = filepath.Join(cfg.InstallDir, "launcher.yaml")
	}

	store, err := settings.Open(cfg.SettingsBackend, cfg.SettingsPath, cfg.InstallDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	var tel *telemetry.Logger
	if cfg.TelemetryPath != "" {
		tel, err = telemetry.New(cfg.TelemetryPath, opts.runID)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open telemetry: %w", err)
		}
		slog.Info("ndjson telemetry enabled", "path", cfg.TelemetryPath)
	}

	orch, err := orchestrator.New(&cfg, orchestrator.Deps{Settings: store, Telemetry: tel})
	if err != nil {
		_ = tel.Close()
		_ = store.Close()
		return nil, err
	}
	slog.Info("launcher loaded",
		"version", orchestrator.Version,
		"config", cfg.File,
		"servers", cfg.Servers.Len(),
		"updates", cfg.VersionInfoURL != "",
		"settings", cfg.SettingsBackend,
	)
	return &app{cfg: &cfg, store: store, tel: tel, orch: orch}, nil
}

func (a *app) Close() {
	a.orch.Close()
	_ = a.store.Close()
	_ = a.tel.Close()
}

// start runs the orchestrator startup and optionally selects name. With
// checkUpdates false no background update check is started.
func (a *app) start(ctx context.Context, name string, checkUpdates bool) error {
	start := a.orch.Init
	if checkUpdates {
		start = a.orch.Start
	}
	if err := start(ctx); err != nil {
		return err
	}
	if name != "" {
		return a.orch.SelectServer(name)
	}
	return nil
}
