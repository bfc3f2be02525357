package observability

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Phase is the launcher's current stage
type Phase string

const (
	PhaseStarting  Phase = "starting"
	PhaseBootstrap Phase = "bootstrap"
	PhasePrimary   Phase = "primary"
	PhaseMixins    Phase = "mixins"
	PhaseRunning   Phase = "running"
	PhaseFinished  Phase = "finished"
	PhaseFailed    Phase = "failed"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the JSON body served by the health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Since     time.Time `json:"since"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker tracks the launch phase
type HealthChecker struct {
	mu      sync.RWMutex
	runID   string
	phase   Phase
	message string
	since   time.Time
}

// NewHealthChecker creates a checker in the starting phase
func NewHealthChecker(runID string) *HealthChecker {
	return &HealthChecker{
		runID: runID,
		phase: PhaseStarting,
		since: time.Now(),
	}
}

// SetPhase records a phase transition
func (h *HealthChecker) SetPhase(phase Phase, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = phase
	h.message = message
	h.since = time.Now()
}

// Check returns the current status; only the failed phase is unhealthy
func (h *HealthChecker) Check() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusHealthy
	if h.phase == PhaseFailed {
		status = StatusUnhealthy
	}

	return HealthStatus{
		Status:    status,
		Phase:     h.phase,
		Message:   h.message,
		RunID:     h.runID,
		Since:     h.since,
		Timestamp: time.Now(),
	}
}

// ServeHTTP writes the status, with 503 when unhealthy
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}
