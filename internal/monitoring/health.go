package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks connectivity and recent activity for the health
// endpoint
type HealthChecker struct {
	mu           sync.RWMutex
	lastDispatch time.Time
	lastCheck    time.Time
	isConnected  bool
	errors       []string
}

// HealthStatus is the JSON body served by the health endpoint
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastDispatch  time.Time `json:"last_dispatch,omitempty"`
	LastRiskCheck time.Time `json:"last_risk_check,omitempty"`
	IsConnected   bool      `json:"is_connected"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a health checker in the disconnected state
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// SetConnected records adapter connectivity
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordDispatch records the time of the latest slice dispatch
func (h *HealthChecker) RecordDispatch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDispatch = time.Now()
}

// RecordRiskCheck records the time of the latest monitoring cycle
func (h *HealthChecker) RecordRiskCheck() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCheck = time.Now()
}

// RecordError appends an error to the health report
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 20 {
		h.errors = h.errors[len(h.errors)-20:]
	}
}

// ClearErrors resets the recorded error list
func (h *HealthChecker) ClearErrors() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = h.errors[:0]
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Recorded errors outrank a connectivity gap; either way the status
	// header is written exactly once
	status := "healthy"
	code := http.StatusOK
	if !h.isConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastDispatch:  h.lastDispatch,
		LastRiskCheck: h.lastCheck,
		IsConnected:   h.isConnected,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
