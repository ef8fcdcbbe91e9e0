package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/bullet-relay/bulletd/pkg/database"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.notifications != nil {
		warnings := s.notifications.Warnings()
		if len(warnings) == 0 {
			checks["channel_delivery"] = HealthCheck{Status: healthStatusHealthy}
		} else {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["channel_delivery"] = HealthCheck{
				Status:  healthStatusDegraded,
				Message: fmt.Sprintf("%d channel(s) failing delivery: %s", len(warnings), warnings[0].Message),
			}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{Status: status, Checks: checks})
}
