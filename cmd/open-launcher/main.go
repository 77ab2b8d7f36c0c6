// Command open-launcher selects a game server, keeps the client current
// through the signed manifest, launches the client and attaches to its
// window.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"open-launcher/internal/cli"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/telemetry"
)

func fatal(msg string, err error, attrs ...any) {
	args := make([]any, 0, 2+len(attrs))
	args = append(args, "err", err)
	args = append(args, attrs...)
	slog.Error(msg, args...)
	os.Exit(1)
}

func logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(os.Getenv("OL_LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func main() {
	// Set up logging first so early failures are captured consistently.
	runID := telemetry.MakeRunID()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	})).With("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shutdown watch: once a shutdown signal is received, allow a bounded window
	// for probes and attachments to wind down before forcing termination.
	go func() {
		<-ctx.Done()
		t := time.NewTimer(10 * time.Second)
		defer t.Stop()
		<-t.C
		slog.Error("shutdown timed out after 10s, forcing exit")
		os.Exit(2)
	}()

	err := cli.NewRootCmd(runID).ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case launcherr.CodeOf(err) == launcherr.CodeInvalidConfig:
		fatal("launcher config invalid", err)
	default:
		fatal("launcher failed", err, "code", launcherr.CodeOf(err))
	}
}
