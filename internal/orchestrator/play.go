package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"open-launcher/internal/attach"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/telemetry"
	"open-launcher/internal/update"
)

// Play runs the update cycle, resolves the selected server, spawns the
// client and starts attaching to it. The returned attachment runs in the
// background; its outcome also arrives as events.
func (o *Orchestrator) Play(ctx context.Context) (*attach.Attachment, error) {
	if o.terminating.Load() {
		return nil, ErrTerminating
	}
	if o.updatesEnabled() {
		res, err := o.CheckForUpdates(ctx)
		switch {
		case errors.Is(err, ErrTerminating):
			return nil, err
		case res.Decision == update.ClientUpdateRequired:
			// The updater could not start; the current build stays playable.
			slog.Warn("continuing with current client after failed handoff", "err", err)
		}
	}

	name, _ := o.monitor.Current()
	o.mu.Lock()
	srv, ok := o.cfg.Servers.Lookup(name)
	client := o.cfg.Client
	installDir := o.cfg.InstallDir
	maxAttempts := o.cfg.AttachMaxAttempts
	interval := o.cfg.AttachInterval
	windowed := o.settings.Windowed
	windowedDelay := o.settings.WindowedDelay
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no server selected")
	}

	addrs, err := o.deps.Resolver.LookupHost(ctx, srv.Host)
	if err == nil && len(addrs) == 0 {
		err = fmt.Errorf("no addresses for %s", srv.Host)
	}
	if err != nil {
		err = launcherr.Wrap(launcherr.CodeNetwork, "resolve "+srv.Host, err)
		slog.Warn("server resolution failed", "server", name, "host", srv.Host, "err", err)
		o.monitor.MarkOffline(err)
		o.notice(Error, "There was an error connecting to the server.", err)
		return nil, err
	}

	binary := client.Binary
	if !filepath.IsAbs(binary) {
		binary = filepath.Join(installDir, binary)
	}
	pid, err := o.deps.Spawner.Spawn(ctx, binary, clientArgs(client.Args, name, srv.Host, srv.Port), installDir)
	if err != nil {
		slog.Error("client spawn failed", "binary", binary, "err", err)
		o.notice(Error, "The game client could not be started.", err)
		return nil, err
	}
	attrs := []any{"server", name, "addr", srv.Addr(), "pid", pid, "windowed", windowed}
	if o.deps.Proxy != nil {
		attrs = append(attrs, "proxy_active", o.deps.Proxy.Active())
	}
	slog.Info("client spawned", attrs...)
	o.deps.Telemetry.Log(telemetry.Record{Type: "spawn", Server: name, Host: srv.Host, Port: srv.Port, PID: pid})

	var a *attach.Attachment
	a = attach.New(attach.Options{
		ProcessName:   client.ProcessName,
		MaxAttempts:   maxAttempts,
		Interval:      interval,
		Windowed:      windowed,
		WindowedDelay: windowedDelay,
	}, o.deps.Lister, o.deps.Window, o.registry, func(s attach.State) {
		o.deps.Telemetry.Log(telemetry.Record{Type: "attach", Server: name, State: s.String(), Attempts: a.Attempts()})
		o.post(Event{Kind: EventAttach, Server: name, Attach: s})
	})

	o.attachMu.Lock()
	select {
	case <-o.closed:
		o.attachMu.Unlock()
		return nil, errors.New("launcher is closed")
	default:
	}
	o.attachments = append(o.attachments, a)
	o.attachMu.Unlock()

	a.Start()
	o.watchers.Add(1)
	go o.watch(a)
	return a, nil
}

func (o *Orchestrator) watch(a *attach.Attachment) {
	defer o.watchers.Done()
	<-a.Done()
	_, err := a.Result()
	if a.State() == attach.Attached {
		return
	}
	o.forget(a)
	if launcherr.CodeOf(err) == launcherr.CodeProcessAttachmentFailed {
		o.notice(Warning, "The game window could not be configured. The game is still running.", err)
	}
}

func (o *Orchestrator) forget(a *attach.Attachment) {
	o.attachMu.Lock()
	defer o.attachMu.Unlock()
	for i, x := range o.attachments {
		if x == a {
			o.attachments = append(o.attachments[:i], o.attachments[i+1:]...)
			return
		}
	}
}

// WaitAttachments blocks until every attachment started by Play has finished
// and its outcome has been queued as events.
func (o *Orchestrator) WaitAttachments() { o.watchers.Wait() }

// Attachments returns the number of live attachments.
func (o *Orchestrator) Attachments() int {
	o.attachMu.Lock()
	defer o.attachMu.Unlock()
	return len(o.attachments)
}
