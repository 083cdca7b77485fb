package config

import (
	"os"
	"path/filepath"
	"time"
)

// =============================================================================
// Default Configuration
// =============================================================================

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Memory:    DefaultMemoryConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Server:    DefaultServerConfig(),
	}
}

// DefaultMemoryConfig returns memory store and recall defaults.
func DefaultMemoryConfig() MemoryConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return MemoryConfig{
		StateDir:              filepath.Join(home, ".openclaw"),
		Enabled:               true,
		ContextBudget:         4000,
		EntityCacheTTL:        60 * time.Second,
		HybridEntityFactLimit: 10,
		BusyTimeout:           5 * time.Second,
	}
}

// DefaultLogConfig returns logging defaults.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns telemetry defaults. Export stays off
// until an operator points it at a collector.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "openclaw",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig returns Prometheus collector defaults.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "openclaw",
	}
}

// DefaultServerConfig returns diagnostics server defaults. Loopback
// only; plain HTTP until a certificate pair is configured.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "127.0.0.1:9090",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
