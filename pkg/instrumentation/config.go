// ABOUTME: Configuration for OpenTelemetry metrics and tracing
// ABOUTME: Holds exporter selection, OTLP endpoint and sampling settings

package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Exporter types
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Status values used as metric labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Google service names
const (
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
	ServiceOAuth    = "oauth"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name reported in the OTel resource.
	ServiceName string `toml:"service_name"`

	// ServiceVersion is the build version.
	ServiceVersion string `toml:"-"`

	// Enabled turns on metrics and tracing. Off by default for a local
	// stdio server.
	Enabled bool `toml:"enabled"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `toml:"metrics_exporter"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `toml:"tracing_exporter"`

	// OTLPEndpoint is the collector host:port, without scheme.
	OTLPEndpoint string `toml:"otlp_endpoint"`

	// OTLPInsecure uses plain HTTP for OTLP export. Local development only.
	OTLPInsecure bool `toml:"otlp_insecure"`

	// TraceSamplingRate is between 0.0 and 1.0.
	TraceSamplingRate float64 `toml:"trace_sampling_rate"`
}

// DefaultConfig returns the built-in defaults without consulting the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "mailcal-mcp",
		ServiceVersion:    "unknown",
		Enabled:           false,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	}
}

// ApplyEnv overrides fields from the standard OTel environment variables.
func (c *Config) ApplyEnv() {
	c.ServiceName = getEnvOrDefault("OTEL_SERVICE_NAME", c.ServiceName)
	c.Enabled = getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", c.Enabled)
	c.MetricsExporter = getEnvOrDefault("METRICS_EXPORTER", c.MetricsExporter)
	c.TracingExporter = getEnvOrDefault("TRACING_EXPORTER", c.TracingExporter)
	c.OTLPEndpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.OTLPInsecure = getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", c.OTLPInsecure)
	c.TraceSamplingRate = getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", c.TraceSamplingRate)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.Enabled && c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
		if c.MetricsExporter == ExporterOTLP {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
