// ABOUTME: XDG-compliant path resolution for the config file
// ABOUTME: Supports an env var override, XDG_CONFIG_HOME, and ~/.config

package config

import (
	"os"
	"path/filepath"
)

const (
	appName       = "mailcal-mcp"
	defaultConfig = "config.toml"
	configSubdir  = ".config"
	xdgConfigHome = "XDG_CONFIG_HOME"

	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "MAILCAL_MCP_CONFIG"
)

// ConfigPath returns the config file location and whether it was chosen
// explicitly through MAILCAL_MCP_CONFIG.
// Priority: MAILCAL_MCP_CONFIG > XDG_CONFIG_HOME > ~/.config
// Empty env vars are treated as unset. XDG_CONFIG_HOME must be absolute
// per the XDG spec; a relative value is ignored.
func ConfigPath() (string, bool) {
	if override := os.Getenv(ConfigPathEnv); override != "" {
		return filepath.Clean(override), true
	}

	configHome := os.Getenv(xdgConfigHome)
	if configHome == "" || !filepath.IsAbs(configHome) {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultConfig, false
		}
		configHome = filepath.Join(home, configSubdir)
	}

	return filepath.Clean(filepath.Join(configHome, appName, defaultConfig)), false
}
