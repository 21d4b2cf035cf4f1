package healthprobe

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	now       func() time.Time

	mu          sync.RWMutex
	lastSuccess func() time.Time
	maxAge      time.Duration
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetFreshnessCheck makes readiness also require that lastSuccess is non-zero
// and no older than maxAge.
func (h *HealthChecker) SetFreshnessCheck(lastSuccess func() time.Time, maxAge time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccess = lastSuccess
	h.maxAge = maxAge
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string     `json:"status"`
	Uptime   string     `json:"uptime"`
	Message  string     `json:"message,omitempty"`
	LastScan *time.Time `json:"last_scan,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Check reports readiness and, when not ready, why.
func (h *HealthChecker) Check() (ready bool, reason string, lastScan time.Time) {
	if !h.ready.Load() {
		return false, "application is starting", time.Time{}
	}

	h.mu.RLock()
	lastSuccess, maxAge := h.lastSuccess, h.maxAge
	h.mu.RUnlock()

	if lastSuccess == nil {
		return true, "", time.Time{}
	}

	last := lastSuccess()
	if last.IsZero() {
		return false, "waiting for first scan", last
	}

	if maxAge > 0 && h.now().Sub(last) > maxAge {
		return false, "last successful scan is stale", last
	}

	return true, "", last
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, reason, last := h.Check()

		var lastScan *time.Time
		if !last.IsZero() {
			lastScan = &last
		}

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:   "not_ready",
				Message:  reason,
				LastScan: lastScan,
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ready",
			Uptime:   time.Since(h.startTime).String(),
			LastScan: lastScan,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
