package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Phases(t *testing.T) {
	h := NewHealthChecker("run-1")

	status := h.Check()
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, PhaseStarting, status.Phase)
	assert.Equal(t, "run-1", status.RunID)

	h.SetPhase(PhaseRunning, "app.Main")
	status = h.Check()
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, PhaseRunning, status.Phase)
	assert.Equal(t, "app.Main", status.Message)

	h.SetPhase(PhaseFailed, "entry point failed")
	assert.Equal(t, StatusUnhealthy, h.Check().Status)
}

func TestHealthChecker_ServeHTTP(t *testing.T) {
	h := NewHealthChecker("run-2")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.Equal(t, PhaseStarting, status.Phase)

	h.SetPhase(PhaseFailed, "boom")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
