package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Namespace metrics
	ArchivesLoadedTotal *prometheus.CounterVec

	// Scan metrics
	ClassesScannedTotal *prometheus.CounterVec
	MixinsDeclaredTotal prometheus.Counter

	// Binding metrics
	BindingsRegisteredTotal prometheus.Counter
	BindingsInstalledTotal  *prometheus.CounterVec

	// Launch metrics
	PhaseDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ArchivesLoadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixy_archives_loaded_total",
				Help: "Total number of archives added to the namespace",
			},
			[]string{"role", "status"},
		),
		ClassesScannedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixy_classes_scanned_total",
				Help: "Total number of class entries scanned in plugin archives",
			},
			[]string{"status"},
		),
		MixinsDeclaredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mixy_mixins_declared_total",
				Help: "Total number of mixin declarations found",
			},
		),
		BindingsRegisteredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mixy_bindings_registered_total",
				Help: "Total number of interceptor bindings registered",
			},
		),
		BindingsInstalledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixy_bindings_installed_total",
				Help: "Total number of interceptor bindings handed to the engine, by outcome (registered, skipped, failed)",
			},
			[]string{"status"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mixy_phase_duration_seconds",
				Help:    "Launch phase duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixy_runs_total",
				Help: "Total number of launches by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.ArchivesLoadedTotal,
		m.ClassesScannedTotal,
		m.MixinsDeclaredTotal,
		m.BindingsRegisteredTotal,
		m.BindingsInstalledTotal,
		m.PhaseDuration,
		m.RunsTotal,
	)

	return m
}

// Handler returns the HTTP handler exposing the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
