package cli

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"open-launcher/internal/config"
	"open-launcher/internal/liveness"
	"open-launcher/internal/orchestrator"
)

// printEvents writes notices and state changes as they arrive. The returned
// stop func prints whatever is still queued, then stops the printer; it is
// safe to call more than once.
func printEvents(out io.Writer, events <-chan orchestrator.Event) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-events:
				printEvent(out, ev)
			case <-quit:
				for {
					select {
					case ev := <-events:
						printEvent(out, ev)
					default:
						return
					}
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

func printEvent(out io.Writer, ev orchestrator.Event) {
	switch ev.Kind {
	case orchestrator.EventNotice:
		fmt.Fprintf(out, "[%s] %s\n", ev.Severity, ev.Message)
	case orchestrator.EventStatus:
		if ev.Status != liveness.Probing {
			fmt.Fprintf(out, "%s: %s\n", ev.Server, ev.Status)
		}
	case orchestrator.EventAttach:
		fmt.Fprintf(out, "client: %s\n", ev.Attach)
	case orchestrator.EventUpdatesAvailable:
		fmt.Fprintf(out, "updates available (%s)\n", ev.Message)
	}
}

func newPlayCmd(opts *options) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Launch the game client without the interactive front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			stop := printEvents(cmd.OutOrStdout(), a.orch.Events())
			defer stop()

			// Play runs the update cycle itself; no background check.
			if err := a.start(ctx, server, false); err != nil {
				return err
			}
			att, err := a.orch.Play(ctx)
			if errors.Is(err, orchestrator.ErrTerminating) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case <-att.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			a.orch.WaitAttachments()
			_, err = att.Result()
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server name (defaults to the first configured server)")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check for launcher and configuration updates now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stop := printEvents(cmd.OutOrStdout(), a.orch.Events())
			defer stop()

			res, err := a.orch.CheckNow(cmd.Context())
			stop()
			if errors.Is(err, orchestrator.ErrTerminating) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decision: %s (remote %s, local %s)\n", res.Decision, res.RemoteVersion, orchestrator.Version)
			return nil
		},
	}
}

func newProbeCmd(opts *options) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe [server|host:port]...",
		Short: "Check whether servers are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := probeTargets(opts, args)
			if err != nil {
				return err
			}
			results := make([]liveness.Result, len(targets))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, t := range targets {
				g.Go(func() error {
					results[i] = liveness.Probe(ctx, t.Host, t.Port, timeout)
					return nil
				})
			}
			_ = g.Wait()
			for i, t := range targets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s %s\n", t.Name, t.Addr(), results[i].Status())
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", liveness.DefaultTimeout, "Connect timeout per server")
	return cmd
}

// probeTargets resolves args to servers: configured names, host:port pairs,
// or every configured server when args is empty.
func probeTargets(opts *options, args []string) ([]config.Server, error) {
	var cfg config.Config
	needCfg := len(args) == 0
	for _, a := range args {
		if _, _, err := net.SplitHostPort(a); err != nil {
			needCfg = true
		}
	}
	if needCfg {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if len(args) == 0 {
		return cfg.Servers.All(), nil
	}
	out := make([]config.Server, 0, len(args))
	for _, a := range args {
		if host, portStr, err := net.SplitHostPort(a); err == nil {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid port in %q", a)
			}
			out = append(out, config.Server{Name: a, Host: host, Port: port})
			continue
		}
		s, ok := cfg.Servers.Lookup(a)
		if !ok {
			return nil, fmt.Errorf("unknown server %q", a)
		}
		out = append(out, s)
	}
	return out, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the launcher version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), orchestrator.Version)
		},
	}
}
