package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/bullet-relay/bulletd/pkg/services"
)

// webhookHandler handles POST /webhook/:namespace_slug/:project_id.
// URL format: /webhook/{namespace_slug}/{project_id}?source=grafana
func (s *Server) webhookHandler(c *echo.Context) error {
	source := c.QueryParam("source")
	if source == "" {
		source = "custom"
	}

	var payload map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON payload: %v", err))
	}

	result, err := s.intake.Receive(c.Request().Context(), services.ReceiveInput{
		NamespaceSlug: c.Param("namespace_slug"),
		ProjectID:     c.Param("project_id"),
		SourceName:    source,
		Payload:       payload,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &WebhookResponse{
		Status:        result.Status,
		Message:       result.Message,
		TicketID:      result.TicketID,
		Source:        source,
		ResolvedCount: result.ResolvedCount,
		Notifications: result.NotificationResults,
	})
}
