// Package observability provides logging, Prometheus metrics, and OpenTelemetry tracing for mixy.
//
// # Overview
//
// Every component takes a logrus.FieldLogger. The launcher builds one with
// NewLogger, which truncates the log file from the previous run and writes to
// both stderr and the file.
//
// # Logging
//
//	logger, closer, err := observability.NewLogger(observability.LogConfig{
//		Level: "info",
//		File:  "mixy.log",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer closer.Close()
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ArchivesLoadedTotal.WithLabelValues("mixin", "ok").Inc()
//
// Metrics are served by NewServer on /metrics together with a /healthz
// endpoint reporting the launch phase.
//
// # OpenTelemetry
//
// InitTracing installs a global tracer provider exporting over OTLP/gRPC.
// Packages create spans through otel.Tracer("mixy/<package>"), which are
// no-ops until tracing is enabled.
//
// # Panics
//
// RecoverPanic and MustRecover turn panics at component boundaries into
// logged errors so nothing escapes to the process boundary.
package observability
