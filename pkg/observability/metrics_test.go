package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.ArchivesLoadedTotal.WithLabelValues("mixin", "ok").Inc()
	m.BindingsRegisteredTotal.Add(2)
	m.BindingsInstalledTotal.WithLabelValues("registered").Inc()
	m.PhaseDuration.WithLabelValues("bootstrap").Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchivesLoadedTotal.WithLabelValues("mixin", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BindingsRegisteredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BindingsInstalledTotal.WithLabelValues("registered")))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mixy_archives_loaded_total")
	assert.Contains(t, names, "mixy_phase_duration_seconds")
}

func TestNewMetrics_DoubleRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RunsTotal.WithLabelValues("ok").Inc()

	rr := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mixy_runs_total{status="ok"} 1`)
}
