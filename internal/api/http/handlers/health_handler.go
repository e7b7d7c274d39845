package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/persistence"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

const readinessTimeout = 2 * time.Second

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    postgres,
		redis:       redis,
	}
}

// Live GET /health/live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready GET /health/ready verifies backing dependencies are reachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if err := h.postgres.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	if !healthy {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", "one or more dependencies are unavailable",
			http.StatusServiceUnavailable, map[string]any{"checks": checks})
	}

	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": checks,
	})
}
