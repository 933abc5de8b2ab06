package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type readinessCheck struct {
	name  string
	check CheckFunc
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []readinessCheck
	logger    *zap.Logger
}

// HealthOption configures HealthHandler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck adds a dependency probe to /readyz.
func WithReadinessCheck(name string, check CheckFunc) HealthOption {
	return func(h *HealthHandler) {
		if check != nil {
			h.checks = append(h.checks, readinessCheck{name: name, check: check})
		}
	}
}

// WithHealthLogger logs failing probes.
func WithHealthLogger(log *zap.Logger) HealthOption {
	return func(h *HealthHandler) {
		if log != nil {
			h.logger = log
		}
	}
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{startedAt: time.Now().UTC(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status godoc
// @Summary Service health check
// @Description Returns the status and start time of the service.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Readiness godoc
// @Summary Dependency readiness
// @Description Probes Postgres, Redis and the image store. Any failure answers 503.
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, rc := range h.checks {
		if err := rc.check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", rc.name), zap.Error(err))
			resp.Checks[rc.name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[rc.name] = "ok"
	}
	c.JSON(status, resp)
}
