package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
)

// AckOutcome is the tagged result of an acknowledgement attempt, which
// pkg/api maps to its three response formats (redirect/json/html).
type AckOutcome string

const (
	AckOutcomeAcknowledged       AckOutcome = "acknowledged"
	AckOutcomeAlreadyAcknowledged AckOutcome = "already_acknowledged"
	AckOutcomeAlreadyResolved    AckOutcome = "already_resolved"
)

// ErrInvalidToken is returned when the token doesn't match the ticket's
// ack_token.
var ErrInvalidToken = errors.New("invalid acknowledgement token")

// AckResult carries what the handler needs to render any of the three
// response formats.
type AckResult struct {
	Outcome  AckOutcome
	Ticket   *models.Ticket
}

// AckService implements the one-click acknowledgement gateway, grounded
// on app/api/ack.py's acknowledge_ticket_via_link.
type AckService struct {
	tickets       *store.TicketStore
	notifications *NotificationService
	clock         store.Clock
	logger        *slog.Logger
}

// NewAckService builds an AckService.
func NewAckService(tickets *store.TicketStore, notifications *NotificationService, clock store.Clock) *AckService {
	if tickets == nil || notifications == nil {
		panic("NewAckService: tickets and notifications must be non-nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	return &AckService{
		tickets:       tickets,
		notifications: notifications,
		clock:         clock,
		logger:        slog.Default().With("component", "ack-service"),
	}
}

// Acknowledge validates the token and advances the ticket to
// acknowledged, short-circuiting on ErrNotFound (404), ErrInvalidToken
// (403), or an already-acknowledged/already-resolved ticket (idempotent
// no-op). The acknowledgement notification is sent fail-open: errors
// are logged, never returned, matching ack.py's try/except around
// notify_ticket_acknowledged.
func (s *AckService) Acknowledge(ctx context.Context, ticketID, token string) (*AckResult, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err == store.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(ticket.AckToken), []byte(token)) != 1 {
		return nil, ErrInvalidToken
	}

	switch ticket.Status {
	case models.StatusAcknowledged:
		return &AckResult{Outcome: AckOutcomeAlreadyAcknowledged, Ticket: ticket}, nil
	case models.StatusResolved:
		return &AckResult{Outcome: AckOutcomeAlreadyResolved, Ticket: ticket}, nil
	}

	now := s.clock.Now()
	ticket.Status = models.StatusAcknowledged
	ticket.AcknowledgedAt = &now
	ticket.AcknowledgedBy = models.AckedByLink
	ticket.AddEvent(models.TicketEvent{
		Type:    models.EventAcknowledged,
		Details: "通过回调链接确认",
	})

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("ticket acknowledged via link", "ticket_id", ticketID)

	if _, err := s.notifications.NotifyTicketAcknowledged(ctx, ticket, "链接确认"); err != nil {
		s.logger.Error("failed to send ack notification", "ticket_id", ticketID, "error", err)
	}

	return &AckResult{Outcome: AckOutcomeAcknowledged, Ticket: ticket}, nil
}
