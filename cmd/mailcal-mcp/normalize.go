// ABOUTME: normalize and config commands for inspecting time handling and settings
// ABOUTME: Neither command contacts Google

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newNormalizeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <time...>",
		Short: "Show how times are converted to UTC and the display zone",
		Example: `  mailcal-mcp normalize 2025-03-20T10:00:00 2025-03-20T10:00:00Z
  mailcal-mcp normalize "2025-03-20 10:00"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			n, err := cfg.Normalizer()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "INPUT\tUTC\tDISPLAY (%s)\n", n.DisplayZone())

			var failed int
			for _, input := range args {
				t, err := n.Parse(input)
				if err != nil {
					fmt.Fprintf(w, "%s\terror: %v\t\n", input, err)
					failed++
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", input, t.UTC().Format(time.RFC3339Nano), n.Format(t))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d inputs could not be parsed", failed, len(args))
			}
			return nil
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return err
			}
			cmd.Print(out)
			if err := cfg.Validate(); err != nil {
				cmd.PrintErrf("\nwarning: %v\n", err)
			}
			return nil
		},
	}
}
