package api

import (
	"net/http"
	"time"

	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/cuemby/tracething/pkg/slot"
	"github.com/sugawarayuuta/sonnet"
)

// SlotsResponse represents the /slots response
type SlotsResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Slots     *slot.Stats `json:"slots,omitempty"`
	Sources   []string    `json:"sources"`
	Message   string      `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint.
// It reports every registered component; 503 if any is unhealthy.
func (as *AdminServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	metrics.HealthHandler()(w, r)
}

// readyHandler implements the /ready endpoint.
// Ready means the DNS listeners are bound and the source registry is sealed.
func (as *AdminServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	metrics.ReadyHandler()(w, r)
}

// slotsHandler implements the /slots endpoint
func (as *AdminServer) slotsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	response := SlotsResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Sources:   as.sources,
	}
	if response.Sources == nil {
		response.Sources = []string{}
	}

	statusCode := http.StatusOK
	if as.slots == nil {
		response.Status = "unavailable"
		response.Message = "slot table not initialized"
		statusCode = http.StatusServiceUnavailable
	} else {
		stats := as.slots.Stats()
		response.Slots = &stats
	}

	body, err := sonnet.Marshal(response)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// allowRead answers 405 for anything but GET and HEAD
func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if !isReadOnlyMethod(r.Method) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
