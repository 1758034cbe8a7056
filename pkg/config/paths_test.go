// ABOUTME: Tests for XDG-compliant config path resolution
// ABOUTME: Covers the env var override, XDG_CONFIG_HOME, and the home fallback

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name         string
		override     string
		xdgConfig    string
		wantExact    string
		wantSuffix   string
		wantExplicit bool
	}{
		{
			name:         "explicit override takes priority",
			override:     "/custom/path/mailcal.toml",
			xdgConfig:    "/should/be/ignored",
			wantExact:    "/custom/path/mailcal.toml",
			wantExplicit: true,
		},
		{
			name:      "XDG_CONFIG_HOME when set",
			xdgConfig: "/tmp/xdg-config",
			wantExact: "/tmp/xdg-config/mailcal-mcp/config.toml",
		},
		{
			name:       "relative XDG_CONFIG_HOME is ignored",
			xdgConfig:  "relative/dir",
			wantSuffix: ".config/mailcal-mcp/config.toml",
		},
		{
			name:       "falls back to ~/.config",
			wantSuffix: ".config/mailcal-mcp/config.toml",
		},
		{
			name:         "override is cleaned",
			override:     "/custom//path/../mailcal.toml",
			wantExact:    "/custom/mailcal.toml",
			wantExplicit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnv, tt.override)
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)

			got, explicit := ConfigPath()

			if explicit != tt.wantExplicit {
				t.Errorf("ConfigPath() explicit = %v, want %v", explicit, tt.wantExplicit)
			}
			if tt.wantExact != "" && got != tt.wantExact {
				t.Errorf("ConfigPath() = %q, want %q", got, tt.wantExact)
			}
			if tt.wantSuffix != "" && !strings.HasSuffix(filepath.ToSlash(got), tt.wantSuffix) {
				t.Errorf("ConfigPath() = %q, want suffix %q", got, tt.wantSuffix)
			}
		})
	}
}
