// Package config builds the launcher configuration from command-line flags
// with environment variable defaults.
//
// # Options
//
//	-jar           MIXY_JAR            primary archive (required)
//	-mixins        MIXY_MIXINS_DIR     plugin archive directory (default "mixins")
//	-log-file      MIXY_LOG_FILE       log file, deleted at startup (default "mixy.log")
//	-log-level     MIXY_LOG_LEVEL      debug, info, warn, error (default "info")
//	-metrics-addr  MIXY_METRICS_ADDR   serve /metrics and /healthz, empty disables
//	-watch         MIXY_WATCH          warn when the mixins directory changes
//	-otel          MIXY_OTEL_ENABLED   export spans over OTLP/gRPC
//	-otel-endpoint MIXY_OTEL_ENDPOINT  collector address (default "localhost:4317")
//
// Unrecognized options are dropped rather than rejected:
//
//	cfg, dropped, err := config.Parse(os.Args[1:])
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
