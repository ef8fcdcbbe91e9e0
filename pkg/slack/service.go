package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// TicketNotification is the data a single Slack post needs: the
// fingerprint used to find/continue a thread (the ticket id) plus the
// rendered message content.
type TicketNotification struct {
	TicketID           string
	Title              string
	Description        string
	Severity           string
	Source             string
	AckURL             string
	DetailURL          string
	NotificationLabel  string
	AcknowledgedByName string
	IsAckNotification  bool
}

// Service handles Slack notification delivery for tickets.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client  *Client
	channel string
	logger  *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:  NewClient(cfg.Token, cfg.Channel),
		channel: cfg.Channel,
		logger:  slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, channel string) *Service {
	return &Service{
		client:  client,
		channel: channel,
		logger:  slog.Default().With("component", "slack-service"),
	}
}

// Notify posts (or threads) a ticket notification. It replies in the
// thread of the message FindMessageByFingerprint finds for the ticket id,
// or posts top-level when none is found. The posts Notify itself makes
// carry the ticket id only inside blocks and send no message text, so
// that lookup does not find them and later notifications for the same
// ticket are posted top-level as well.
// Fail-open: errors are logged and false is returned, never raised.
func (s *Service) Notify(ctx context.Context, n TicketNotification) bool {
	if s == nil {
		return false
	}

	threadTS, err := s.client.FindMessageByFingerprint(ctx, n.TicketID)
	if err != nil {
		s.logger.Warn("failed to find slack thread for ticket",
			"ticket_id", n.TicketID, "error", err)
	}

	blocks := BuildTicketMessage(TicketMessageInput{
		Title:              n.Title,
		Description:        n.Description,
		Severity:           n.Severity,
		Source:             n.Source,
		AckURL:             n.AckURL,
		DetailURL:          n.DetailURL,
		NotificationLabel:  n.NotificationLabel,
		AcknowledgedByName: n.AcknowledgedByName,
		IsAckNotification:  n.IsAckNotification,
	})

	if err := s.client.PostMessage(ctx, blocks, threadTS, 10*time.Second); err != nil {
		s.logger.Error("failed to send slack notification",
			"ticket_id", n.TicketID, "error", err)
		return false
	}
	return true
}
