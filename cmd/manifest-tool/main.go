// Command manifest-tool publishes launcher manifests: it generates signing
// keys, signs manifest documents and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"open-launcher/internal/manifestsrv"
	"open-launcher/internal/publish"
	"open-launcher/internal/telemetry"
)

func fatal(msg string, err error, attrs ...any) {
	args := make([]any, 0, 2+len(attrs))
	args = append(args, "err", err)
	args = append(args, attrs...)
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("run_id", telemetry.MakeRunID()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "manifest-tool",
		Short:         "Sign and publish launcher manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(keygenCmd(), signCmd(), serveCmd())
	if err := root.ExecuteContext(ctx); err != nil {
		fatal("manifest-tool failed", err)
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a manifest signing key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return publish.Keygen(cmd.OutOrStdout(), nil)
		},
	}
}

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign [DOCUMENT]",
		Short: "Sign a manifest document and print the token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := publish.ParseEnv()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				e.Document = args[0]
			}
			c, err := build(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Token)
			return nil
		},
	}
}

func build(e publish.Env) (manifestsrv.Content, error) {
	key, err := e.SigningKey()
	if err != nil {
		return manifestsrv.Content{}, err
	}
	d, err := publish.LoadDocument(e.Document)
	if err != nil {
		return manifestsrv.Content{}, err
	}
	return d.Build(key, time.Now())
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the signed manifest and news; SIGHUP re-signs the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := publish.ParseEnv()
			if err != nil {
				return err
			}
			first, err := build(e)
			if err != nil {
				return err
			}
			var current atomic.Pointer[manifestsrv.Content]
			current.Store(&first)

			g, ctx := errgroup.WithContext(cmd.Context())
			srv, err := manifestsrv.Start(ctx, e.Addr, func() (manifestsrv.Content, error) {
				return *current.Load(), nil
			})
			if err != nil {
				return err
			}
			slog.Info("serving manifest", "addr", srv.Addr(), "document", e.Document)

			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, syscall.SIGHUP)
				defer signal.Stop(hup)
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hup:
						c, err := build(e)
						if err != nil {
							slog.Warn("re-sign failed, keeping previous manifest", "err", err)
							continue
						}
						current.Store(&c)
						slog.Info("manifest re-signed", "document", e.Document)
					}
				}
			})
			return g.Wait()
		},
	}
}
