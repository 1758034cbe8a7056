// ABOUTME: Root cobra command and shared flag handling
// ABOUTME: Flags override the layered config loaded from file and environment

package main

import (
	"github.com/spf13/cobra"

	"github.com/harper/mailcal-mcp/pkg/config"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	ish        bool
}

func newRootCmd(version string) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mailcal-mcp",
		Short: "MCP server for Gmail and Google Calendar",
		Long: `mailcal-mcp exposes Gmail and Google Calendar to AI assistants over the
Model Context Protocol (stdio).

Calendar arguments accept friendly names ("Team Calendar") as well as IDs,
and times without a UTC offset are read in the configured implicit zone.

Running without a subcommand starts the server.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, version)
		},
	}
	cmd.SetVersionTemplate(`{{printf "mailcal-mcp version %s\n" .Version}}`)

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/mailcal-mcp/config.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.ish, "ish", false, "Use the fake Google API at ish.base_url instead of real OAuth")

	cmd.AddCommand(
		newServeCmd(flags, version),
		newCalendarsCmd(flags, version),
		newNormalizeCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(version),
	)

	return cmd
}

// load resolves the configuration and applies flag overrides.
func (f *rootFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if cmd.Flags().Changed("ish") {
		cfg.ISH.Enabled = f.ish
	}

	return cfg, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("mailcal-mcp version %s\n", version)
		},
	}
}
