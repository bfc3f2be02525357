package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrNoPrimaryArchive is returned when no primary archive was given
	ErrNoPrimaryArchive = errors.New("you must specify a jar")
)

// Config holds all launcher configuration
type Config struct {
	PrimaryArchive string
	MixinsDir      string
	LogFile        string
	LogLevel       string
	MetricsAddr    string
	Watch          bool

	Tracing TracingConfig
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
}

// Default returns the configuration implied by the environment alone
func Default() *Config {
	return &Config{
		PrimaryArchive: getEnv("MIXY_JAR", ""),
		MixinsDir:      getEnv("MIXY_MIXINS_DIR", "mixins"),
		LogFile:        getEnv("MIXY_LOG_FILE", "mixy.log"),
		LogLevel:       getEnv("MIXY_LOG_LEVEL", "info"),
		MetricsAddr:    getEnv("MIXY_METRICS_ADDR", ""),
		Watch:          getEnvBool("MIXY_WATCH", false),
		Tracing: TracingConfig{
			Enabled:        getEnvBool("MIXY_OTEL_ENABLED", false),
			Endpoint:       getEnv("MIXY_OTEL_ENDPOINT", "localhost:4317"),
			ServiceName:    getEnv("MIXY_OTEL_SERVICE_NAME", "mixy"),
			ServiceVersion: getEnv("MIXY_OTEL_SERVICE_VERSION", "1.0.0"),
			Insecure:       getEnvBool("MIXY_OTEL_INSECURE", true),
		},
	}
}

// Parse reads flags over the environment defaults. Unrecognized options and
// stray positional arguments are returned as dropped instead of failing.
func Parse(args []string) (*Config, []string, error) {
	cfg := Default()

	fs := flag.NewFlagSet("mixy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.PrimaryArchive, "jar", cfg.PrimaryArchive, "Primary archive to launch")
	fs.StringVar(&cfg.MixinsDir, "mixins", cfg.MixinsDir, "Directory of plugin archives")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file, deleted at startup")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Address for /metrics and /healthz, empty disables")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Warn when the mixins directory changes")
	fs.BoolVar(&cfg.Tracing.Enabled, "otel", cfg.Tracing.Enabled, "Export spans over OTLP/gRPC")
	fs.StringVar(&cfg.Tracing.Endpoint, "otel-endpoint", cfg.Tracing.Endpoint, "OTLP collector address")

	known, dropped := filterArgs(fs, args)
	if err := fs.Parse(known); err != nil {
		return nil, dropped, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, dropped, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PrimaryArchive == "" {
		return ErrNoPrimaryArchive
	}
	if c.MixinsDir == "" {
		return fmt.Errorf("mixins directory is required")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}
	return nil
}

// filterArgs keeps defined flags with their values and drops everything else
func filterArgs(fs *flag.FlagSet, args []string) (known, dropped []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			dropped = append(dropped, args[i:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			dropped = append(dropped, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		hasValue := false
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
			hasValue = true
		}

		f := fs.Lookup(name)
		if f == nil {
			dropped = append(dropped, arg)
			continue
		}

		known = append(known, arg)
		if hasValue || isBoolFlag(f) {
			continue
		}
		if i+1 < len(args) {
			i++
			known = append(known, args[i])
		}
	}
	return known, dropped
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
