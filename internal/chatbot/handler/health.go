package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports service health from dependency probes.
type HealthHandler struct {
	version string
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Details   map[string]bool `json:"details,omitempty"`
}

// Health runs all dependency probes. The service is healthy when every probe
// passes, degraded when some pass, unhealthy when none do.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	details := make(map[string]bool, len(h.checks))
	healthy, total := 0, len(h.checks)
	for name, check := range h.checks {
		ok := check(ctx) == nil
		details[name] = ok
		if ok {
			healthy++
		}
	}

	status := "healthy"
	code := http.StatusOK
	switch {
	case total > 0 && healthy == 0:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case healthy < total:
		status = "degraded"
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   details,
	})
}
