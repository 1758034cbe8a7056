// ABOUTME: calendars command: loads the calendar directory and resolves names
// ABOUTME: Useful for checking which ID a friendly name maps to

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/harper/mailcal-mcp/pkg/server"
)

func newCalendarsCmd(flags *rootFlags, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars [name...]",
		Short: "List calendars or resolve calendar names to IDs",
		Example: `  mailcal-mcp calendars
  mailcal-mcp calendars "Team Calendar" my.calendar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.Discard()
			if cmd.Flags().Changed("log-level") {
				logger = cfg.Logger()
			}

			srv, err := server.NewFromConfig(cmd.Context(), cfg, nil, logger, version)
			if err != nil {
				return err
			}

			dir := srv.Directory()
			if err := dir.RefreshNow(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 0 {
				fmt.Fprintln(w, "NAME\tID")
				for _, e := range dir.Entries() {
					fmt.Fprintf(w, "%s\t%s\n", e.DisplayName, e.ID)
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "INPUT\tID")
			for _, name := range args {
				fmt.Fprintf(w, "%s\t%s\n", name, dir.Resolve(name))
			}
			return w.Flush()
		},
	}
}
