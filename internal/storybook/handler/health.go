package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthHandler reports the status of the service dependencies.
type HealthHandler struct {
	pingers []Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. Each check is bounded by timeout.
func NewHealthHandler(timeout time.Duration, pingers ...Pinger) *HealthHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthHandler{pingers: pingers, timeout: timeout}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// Healthz answers 200 when every dependency responds, 503 otherwise.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(h.pingers))}
	code := http.StatusOK
	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			logger.Warnw("health check failed", "component", p.Name(), "error", err.Error())
			resp.Components[p.Name()] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Components[p.Name()] = "ok"
	}
	c.JSON(code, resp)
}
