package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/source"
	"github.com/bullet-relay/bulletd/pkg/store"
	"github.com/google/uuid"
)

// IntakeResult reports what the webhook route did, for the handler to
// translate into its JSON response.
type IntakeResult struct {
	Status              string // "resolved", "silenced", "ignored", or "ok"
	Message             string
	TicketID            string
	ResolvedCount       int
	NotificationResults map[string]bool
}

// IntakeService turns a raw webhook payload into a ticket, mirroring
// app/api/webhook.py's business logic (the HTTP routing/JSON decoding
// stays in pkg/api).
type IntakeService struct {
	namespaces    *store.NamespaceStore
	projects      *store.ProjectStore
	groups        *store.NotificationGroupStore
	tickets       *store.TicketStore
	notifications *NotificationService
	sources       *source.Registry
	clock         store.Clock
	logger        *slog.Logger
}

// NewIntakeService builds an IntakeService.
func NewIntakeService(
	namespaces *store.NamespaceStore,
	projects *store.ProjectStore,
	groups *store.NotificationGroupStore,
	tickets *store.TicketStore,
	notifications *NotificationService,
	sources *source.Registry,
	clock store.Clock,
) *IntakeService {
	if namespaces == nil || projects == nil || groups == nil || tickets == nil || notifications == nil || sources == nil {
		panic("NewIntakeService: all collaborators must be non-nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	return &IntakeService{
		namespaces:    namespaces,
		projects:      projects,
		groups:        groups,
		tickets:       tickets,
		notifications: notifications,
		sources:       sources,
		clock:         clock,
		logger:        slog.Default().With("component", "intake-service"),
	}
}

// ReceiveInput carries the decoded webhook call.
type ReceiveInput struct {
	NamespaceSlug string
	ProjectID     string
	SourceName    string
	Payload       map[string]any
}

// Receive resolves namespace → project, then either returns "ignored"
// without creating a ticket (inactive project), auto-closes pending
// tickets (resolved-status payloads), creates a silenced ticket with no
// dispatch, or creates and notifies a normal ticket — exactly
// webhook.py's receive_webhook control flow.
func (s *IntakeService) Receive(ctx context.Context, in ReceiveInput) (*IntakeResult, error) {
	namespace, err := s.namespaces.FindBySlug(ctx, in.NamespaceSlug)
	if err == store.ErrNotFound {
		return nil, fmt.Errorf("%w: namespace not found: %s", ErrNotFound, in.NamespaceSlug)
	}
	if err != nil {
		return nil, err
	}

	project, err := s.projects.Get(ctx, in.ProjectID)
	if err == store.ErrNotFound || (err == nil && project.NamespaceID != namespace.ID) {
		return nil, fmt.Errorf("%w: project not found: %s", ErrNotFound, in.ProjectID)
	}
	if err != nil {
		return nil, err
	}

	if !project.IsActive {
		return &IntakeResult{Status: "ignored", Message: "Project is disabled"}, nil
	}

	info := s.sources.Extract(in.SourceName, in.Payload)

	if info.Status == "resolved" {
		return s.resolvePending(ctx, project, in.SourceName)
	}

	now := s.clock.Now()
	ticket := &models.Ticket{
		ID:              uuid.NewString(),
		ProjectID:       project.ID,
		Source:          in.SourceName,
		Status:          models.StatusPending,
		EscalationLevel: 1,
		Payload:         in.Payload,
		ParsedData:      info.ParsedData,
		Labels:          info.Labels,
		Title:           info.Title,
		Description:     info.Description,
		Severity:        models.Severity(info.Severity),
		AckToken:        generateAckToken(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ticket.AddEvent(models.TicketEvent{
		Type:    models.EventCreated,
		Details: "来源: " + in.SourceName,
	})

	if project.IsSilenced(now) {
		ticket.AddEvent(models.TicketEvent{
			Type:    models.EventNotifiedSilenced,
			Level:   intakeLevelPtr(1),
			Details: "项目已静默，跳过通知",
		})
		if err := s.tickets.Insert(ctx, ticket); err != nil {
			return nil, err
		}
		s.logger.Info("created ticket (silenced)", "ticket_id", ticket.ID, "project_id", project.ID)
		return &IntakeResult{
			Status:    "silenced",
			Message:   "Ticket created but notifications silenced",
			TicketID:  ticket.ID,
		}, nil
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("created ticket", "ticket_id", ticket.ID, "project_id", project.ID)

	var groupName string
	if len(project.NotificationGroupIDs) > 0 {
		if g, err := s.groups.Get(ctx, project.NotificationGroupIDs[0]); err == nil {
			groupName = g.Name
		}
	}

	results, err := s.notifications.NotifyTicket(ctx, ticket, 1)
	if err != nil {
		return nil, err
	}

	success := anyTrue(results)
	details := "无通知组配置"
	if len(results) > 0 {
		details = fmt.Sprintf("通知结果: %v", results)
	}
	ticket.AddEvent(models.TicketEvent{
		Type:      models.EventNotified,
		Level:     intakeLevelPtr(1),
		GroupName: groupName,
		Success:   &success,
		Details:   details,
	})
	ticket.LastNotifiedAt = &now
	ticket.NotificationCount = 1

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, err
	}

	return &IntakeResult{
		Status:              "ok",
		Message:             "Ticket created",
		TicketID:            ticket.ID,
		NotificationResults: results,
	}, nil
}

func (s *IntakeService) resolvePending(ctx context.Context, project *models.Project, sourceName string) (*IntakeResult, error) {
	pending, err := s.tickets.FindByProjectAndStatuses(ctx, project.ID, []models.TicketStatus{models.StatusPending})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, t := range pending {
		t.Status = models.StatusResolved
		t.ResolvedAt = &now
		t.AddEvent(models.TicketEvent{Type: models.EventResolved, Details: "自动解决（收到 resolved 状态）"})
		if err := s.tickets.Save(ctx, t); err != nil {
			return nil, err
		}
	}

	if len(pending) > 0 {
		s.logger.Info("resolved pending tickets", "count", len(pending), "project_id", project.ID)
	}

	return &IntakeResult{
		Status:        "resolved",
		Message:       fmt.Sprintf("Resolved %d ticket(s)", len(pending)),
		ResolvedCount: len(pending),
	}, nil
}

func anyTrue(m map[string]bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

func intakeLevelPtr(n int) *int { return &n }

// generateAckToken draws 32 bytes of cryptographically random entropy and
// encodes them URL-safe, matching secrets.token_urlsafe(32)'s format.
func generateAckToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("generateAckToken: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
