package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"open-launcher/internal/config"
)

func newServersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List or add game servers",
	}
	cmd.AddCommand(newServersListCmd(opts))
	cmd.AddCommand(newServersAddCmd(opts))
	return cmd
}

func newServersListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured and saved servers in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			servers, err := mergedServers(cmd, a)
			if err != nil {
				return err
			}
			for _, s := range servers {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", s.Name, s.Addr())
			}
			return nil
		},
	}
}

func newServersAddCmd(opts *options) *cobra.Command {
	var sessionOnly bool
	cmd := &cobra.Command{
		Use:   "add NAME HOST PORT",
		Short: "Add a server and save it to the launcher settings",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[2])
			}
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := mergedServers(cmd, a); err != nil {
				return err
			}
			stop := printEvents(cmd.ErrOrStderr(), a.orch.Events())
			err = a.orch.AddServer(cmd.Context(), args[0], args[1], port, !sessionOnly)
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", args[0], config.Server{Host: args[1], Port: port}.Addr())
			return nil
		},
	}
	cmd.Flags().BoolVar(&sessionOnly, "no-save", false, "Do not persist the server")
	return cmd
}

// mergedServers loads settings so persisted servers are merged, without
// probing or checking for updates. Notices raised while loading, such as a
// settings failure, are written to stderr.
func mergedServers(cmd *cobra.Command, a *app) ([]config.Server, error) {
	stop := printEvents(cmd.ErrOrStderr(), a.orch.Events())
	a.orch.LoadSettings(cmd.Context())
	stop()
	return a.orch.Servers(), nil
}
