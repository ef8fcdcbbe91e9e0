package api

import (
	"errors"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/bullet-relay/bulletd/pkg/services"
)

// ackHandler handles GET /ack/:ticket_id?token=...&format=redirect|json|html.
// Included in notification messages for one-click acknowledgement.
func (s *Server) ackHandler(c *echo.Context) error {
	ticketID := c.Param("ticket_id")
	token := c.QueryParam("token")
	format := c.QueryParam("format")
	if format == "" {
		format = "redirect"
	}

	result, err := s.ack.Acknowledge(c.Request().Context(), ticketID, token)
	if err != nil {
		return s.renderAckError(c, format, err)
	}

	switch result.Outcome {
	case services.AckOutcomeAlreadyAcknowledged:
		return s.renderAckOutcome(c, format, ticketID, "already_acknowledged", "Already acknowledged")
	case services.AckOutcomeAlreadyResolved:
		return s.renderAckOutcome(c, format, ticketID, "already_resolved", "Already resolved")
	default:
		return s.renderAckOutcome(c, format, ticketID, "acknowledged", "Ticket Acknowledged")
	}
}

func (s *Server) renderAckError(c *echo.Context, format string, err error) error {
	status := http.StatusInternalServerError
	title := "Internal error"
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
		title = "Ticket not found"
	case errors.Is(err, services.ErrInvalidToken):
		status = http.StatusForbidden
		title = "Invalid token"
	}

	if format == "json" {
		return echo.NewHTTPError(status, title)
	}
	return c.HTML(status, fmt.Sprintf("<html><body><h1>%s</h1></body></html>", title))
}

func (s *Server) renderAckOutcome(c *echo.Context, format, ticketID, status, title string) error {
	switch format {
	case "json":
		return c.JSON(http.StatusOK, &AckJSONResponse{Status: status, TicketID: ticketID})
	case "html":
		return c.HTML(http.StatusOK, fmt.Sprintf(
			`<html><head><title>%s</title></head><body style="font-family: sans-serif; padding: 40px; text-align: center;">`+
				`<h1>%s</h1><p>Ticket ID: %s</p></body></html>`,
			title, title, ticketID,
		))
	default:
		return c.Redirect(http.StatusFound, "/tickets/"+ticketID)
	}
}
