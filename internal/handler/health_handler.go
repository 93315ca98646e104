package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// Pinger checks that a backing store answers.
type Pinger func(ctx context.Context) error

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	checks    map[string]Pinger
	startTime time.Time
	log       zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler over the named checks.
func NewHealthHandler(checks map[string]Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		startTime: time.Now(),
		log:       log.With().Str("component", "health_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Returns 503 when any dependency fails its ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.Success(c, status, gin.H{
		"status":       state,
		"dependencies": deps,
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"goroutines":   runtime.NumGoroutine(),
		"go_version":   runtime.Version(),
	})
}
