package metrics

import (
	"context"
	"net/http"
	"time"

	"ms-calendar/internal/utils"
)

// Check probes one dependency. A failing Required check makes the service
// unready; other failures only mark it degraded.
type Check struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type Health struct {
	Checks  []Check
	Timeout time.Duration
}

func NewHealth(checks ...Check) *Health {
	return &Health{Checks: checks, Timeout: 2 * time.Second}
}

// Healthz reports liveness only.
func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz runs every check and answers 503 when a required one fails.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	code := http.StatusOK
	for _, c := range h.Checks {
		if err := c.Probe(ctx); err != nil {
			resp.Checks[c.Name] = "error: " + err.Error()
			if c.Required {
				resp.Status = "unavailable"
				code = http.StatusServiceUnavailable
			} else if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	utils.WriteJSON(w, code, resp)
}
