// ABOUTME: Layered configuration: defaults, TOML file, environment, then flags
// ABOUTME: Covers OAuth credentials, timezones, logging, telemetry and ish mode

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/harper/mailcal-mcp/pkg/instrumentation"
	"github.com/harper/mailcal-mcp/pkg/logging"
	"github.com/harper/mailcal-mcp/pkg/ratelimit"
	"github.com/harper/mailcal-mcp/pkg/timezone"
)

// DefaultISHBaseURL is the fake Google endpoint used in ish mode.
const DefaultISHBaseURL = "http://localhost:9000"

// Config is the full runtime configuration.
type Config struct {
	Google          GoogleConfig           `toml:"google"`
	Time            TimeConfig             `toml:"time"`
	Log             LogConfig              `toml:"log"`
	Server          ServerConfig           `toml:"server"`
	RateLimit       RateLimitConfig        `toml:"rate_limit"`
	Instrumentation instrumentation.Config `toml:"instrumentation"`
	ISH             ISHConfig              `toml:"ish"`
}

// GoogleConfig holds the OAuth client and the long-lived refresh token.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// TimeConfig selects the implicit input zone and the display zone.
type TimeConfig struct {
	ImplicitZone  string `toml:"implicit_zone"`
	DisplayZone   string `toml:"display_zone"`
	DisplayLayout string `toml:"display_layout"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// MetricsAddr serves /metrics when set and the prometheus exporter is active.
	MetricsAddr string `toml:"metrics_addr"`
}

// RateLimitConfig holds per-service throttles for outgoing API calls.
type RateLimitConfig struct {
	Gmail    ratelimit.Config `toml:"gmail"`
	Calendar ratelimit.Config `toml:"calendar"`
}

// ISHConfig points every Google client at a fake endpoint.
type ISHConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	User    string `toml:"user"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Time: TimeConfig{
			ImplicitZone:  timezone.DefaultOffset,
			DisplayZone:   timezone.DefaultOffset,
			DisplayLayout: timezone.DefaultDisplayLayout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			Gmail:    ratelimit.Defaults[ratelimit.ServiceGmail],
			Calendar: ratelimit.Defaults[ratelimit.ServiceCalendar],
		},
		Instrumentation: instrumentation.DefaultConfig(),
		ISH: ISHConfig{
			BaseURL: DefaultISHBaseURL,
		},
	}
}

// Load builds a Config from defaults, the config file and the environment.
// path overrides the file location; an explicitly chosen file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path, explicit = ConfigPath()
	}

	if err := LoadFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return Config{}, err
		}
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile decodes a TOML file over cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys in %s:\n%s", path, strict.String())
		}
		return fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Google.RefreshToken, "GOOGLE_REFRESH_TOKEN")

	setString(&cfg.Time.ImplicitZone, "MAILCAL_IMPLICIT_TZ")
	setString(&cfg.Time.DisplayZone, "MAILCAL_DISPLAY_TZ")
	setString(&cfg.Time.DisplayLayout, "MAILCAL_DISPLAY_LAYOUT")

	setString(&cfg.Log.Level, "MAILCAL_LOG_LEVEL")
	setString(&cfg.Log.Format, "MAILCAL_LOG_FORMAT")

	setString(&cfg.Server.MetricsAddr, "MAILCAL_METRICS_ADDR")

	setFloat(&cfg.RateLimit.Gmail.RequestsPerSecond, "MAILCAL_GMAIL_RPS")
	setFloat(&cfg.RateLimit.Calendar.RequestsPerSecond, "MAILCAL_CALENDAR_RPS")

	cfg.Instrumentation.ApplyEnv()

	// Only the exact value "true" enables ish mode.
	if v, ok := os.LookupEnv("ISH_MODE"); ok && v != "" {
		cfg.ISH.Enabled = v == "true"
	}
	setString(&cfg.ISH.BaseURL, "ISH_BASE_URL")
	setString(&cfg.ISH.User, "ISH_USER")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if !c.ISH.Enabled {
		var missing []string
		if c.Google.ClientID == "" {
			missing = append(missing, "GOOGLE_CLIENT_ID")
		}
		if c.Google.ClientSecret == "" {
			missing = append(missing, "GOOGLE_CLIENT_SECRET")
		}
		if c.Google.RefreshToken == "" {
			missing = append(missing, "GOOGLE_REFRESH_TOKEN")
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("missing Google OAuth credentials: %s", strings.Join(missing, ", ")))
		}
	}

	if _, err := timezone.ParseZone(c.Time.ImplicitZone); err != nil {
		errs = append(errs, fmt.Errorf("implicit_zone: %w", err))
	}
	if _, err := timezone.ParseZone(c.Time.DisplayZone); err != nil {
		errs = append(errs, fmt.Errorf("display_zone: %w", err))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}

	if err := c.Instrumentation.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Normalizer builds the time normalizer for the configured zones.
func (c Config) Normalizer() (*timezone.Normalizer, error) {
	implicit, err := timezone.ParseZone(c.Time.ImplicitZone)
	if err != nil {
		return nil, fmt.Errorf("implicit_zone: %w", err)
	}
	display, err := timezone.ParseZone(c.Time.DisplayZone)
	if err != nil {
		return nil, fmt.Errorf("display_zone: %w", err)
	}
	return timezone.New(implicit, display, c.Time.DisplayLayout), nil
}

// Logger builds the process logger from the log settings.
func (c Config) Logger() *slog.Logger {
	return logging.New(logging.Options{Level: c.Log.Level, Format: c.Log.Format})
}

// Redacted returns a copy with secrets replaced by length markers.
func (c Config) Redacted() Config {
	r := c
	r.Google.ClientSecret = logging.SanitizeToken(c.Google.ClientSecret)
	r.Google.RefreshToken = logging.SanitizeToken(c.Google.RefreshToken)
	return r
}

// TOML renders the redacted configuration.
func (c Config) TOML() (string, error) {
	data, err := toml.Marshal(c.Redacted())
	if err != nil {
		return "", fmt.Errorf("unable to encode config: %w", err)
	}
	return string(data), nil
}

// LogValue implements slog.LogValuer without exposing secrets.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("ish", c.ISH.Enabled),
		slog.String("implicit_zone", c.Time.ImplicitZone),
		slog.String("display_zone", c.Time.DisplayZone),
		slog.String("refresh_token", logging.SanitizeToken(c.Google.RefreshToken)),
		slog.Bool("instrumentation", c.Instrumentation.Enabled),
		slog.String("metrics_addr", c.Server.MetricsAddr),
	)
}
