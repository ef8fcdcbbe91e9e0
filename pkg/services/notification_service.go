package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bullet-relay/bulletd/pkg/channel"
	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
)

// ChannelFactory resolves the live channel.Adapter for a (type,
// addresses) pair — e.g. a Feishu adapter bound to one contact's webhook
// URL, the single workspace-wide Slack adapter (addresses ignored), or an
// Email/SMS adapter bound to the full pooled recipient list for one
// channel config. Injected so NotificationService never constructs
// transport clients itself; cmd/bulletd wires the factory at startup from
// pkg/config.
type ChannelFactory func(ct models.ChannelType, addresses []string) channel.Adapter

// NotificationService dispatches ticket notifications to the channel
// configs of a notification group, mirroring
// app/services/notification.py's send_to_group/notify_ticket/
// notify_ticket_acknowledged trio.
type NotificationService struct {
	tickets   *store.TicketStore
	projects  *store.ProjectStore
	groups    *store.NotificationGroupStore
	contacts  *store.ContactStore
	templates *TemplateService
	channels  ChannelFactory
	baseURL   string
	logger    *slog.Logger
	warnings  *SystemWarningsService
}

// NewNotificationService builds a NotificationService.
func NewNotificationService(
	tickets *store.TicketStore,
	projects *store.ProjectStore,
	groups *store.NotificationGroupStore,
	contacts *store.ContactStore,
	templates *TemplateService,
	channels ChannelFactory,
	baseURL string,
) *NotificationService {
	if tickets == nil || projects == nil || groups == nil || contacts == nil || templates == nil || channels == nil {
		panic("NewNotificationService: all collaborators must be non-nil")
	}
	return &NotificationService{
		tickets:   tickets,
		projects:  projects,
		groups:    groups,
		contacts:  contacts,
		templates: templates,
		channels:  channels,
		baseURL:   baseURL,
		logger:    slog.Default().With("component", "notification-service"),
		warnings:  NewSystemWarningsService(),
	}
}

// Warnings returns the currently active channel-delivery warnings, for
// the health endpoint to surface.
func (n *NotificationService) Warnings() []*SystemWarning {
	return n.warnings.GetWarnings()
}

// SendToGroupInput carries the per-send flags send_to_group accepts.
type SendToGroupInput struct {
	IsEscalated        bool
	IsRepeated         bool
	IsAckNotification  bool
	AcknowledgedByName string
}

// SendToGroup sends one notification to every channel config in group,
// rendering the project's template once and reusing the rendered
// artifacts across every channel. Returns a result map keyed
// "<type>:<contact-name>" (or plain "email"/"sms" for the pooled
// channels), mirroring send_to_group's return contract.
func (n *NotificationService) SendToGroup(ctx context.Context, ticket *models.Ticket, group *models.NotificationGroup, tmpl *models.NotificationTemplate, project *models.Project, in SendToGroupInput) map[string]bool {
	results := make(map[string]bool)

	var tmplCtx TemplateContext
	var feishuCard map[string]any
	var emailSubject, emailBody, smsMessage string

	if tmpl != nil {
		tmplCtx = n.templates.BuildContext(ticket, project, BuildContextInput{
			IsEscalated:        in.IsEscalated,
			IsRepeated:         in.IsRepeated,
			NotificationCount:  ticket.NotificationCount + 1,
			IsAckNotification:  in.IsAckNotification,
			AcknowledgedByName: in.AcknowledgedByName,
		})
		feishuCard = n.templates.RenderFeishuCard(*tmpl, tmplCtx)
		emailSubject, emailBody = n.templates.RenderEmail(*tmpl, tmplCtx)
		smsMessage = n.templates.RenderSMS(*tmpl, tmplCtx)
	}

	baseEvent := channel.Event{
		Source:             ticket.Source,
		Labels:             ticket.Labels,
		Payload:            ticket.Payload,
		TicketID:           ticket.ID,
		AckToken:           ticket.AckToken,
		BaseURL:            n.baseURL,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Severity:           string(ticket.Severity),
		NotificationLabel:  tmplCtx.NotificationLabel,
		IsAckNotification:  in.IsAckNotification,
		AcknowledgedByName: in.AcknowledgedByName,
		FeishuCard:         feishuCard,
		EmailSubject:       emailSubject,
		EmailBody:          emailBody,
		SMSMessage:         smsMessage,
	}

	for _, cfg := range group.ChannelConfigs {
		for k, v := range n.sendToChannelConfig(ctx, baseEvent, cfg) {
			results[k] = v
		}
	}

	return results
}

func (n *NotificationService) sendToChannelConfig(ctx context.Context, evt channel.Event, cfg models.ChannelConfig) map[string]bool {
	results := make(map[string]bool)

	contacts, err := n.contacts.GetMany(ctx, cfg.ContactIDs)
	if err != nil {
		n.logger.Error("failed to resolve contacts", "channel_type", cfg.Type, "error", err)
		return results
	}
	if len(contacts) == 0 {
		n.logger.Warn("no contacts found for channel config", "channel_type", cfg.Type)
		return results
	}
	if len(contacts) < len(cfg.ContactIDs) {
		n.logger.Warn("skipping contacts that no longer exist",
			"channel_type", cfg.Type, "requested", len(cfg.ContactIDs), "found", len(contacts))
	}

	switch cfg.Type {
	case models.ChannelFeishu, models.ChannelSlack:
		for _, c := range contacts {
			address, ok := c.AddressFor(cfg.Type)
			if !ok {
				n.logger.Warn("contact has no address for channel", "contact", c.Name, "channel_type", cfg.Type)
				continue
			}
			key := string(cfg.Type) + ":" + c.Name
			adapter := n.channels(cfg.Type, []string{address})
			ok = adapter != nil && adapter.Send(ctx, evt)
			results[key] = ok
			n.recordDeliveryOutcome(key, string(cfg.Type), ok)
		}

	case models.ChannelEmail:
		var emails []string
		for _, c := range contacts {
			emails = append(emails, c.Emails...)
		}
		if len(emails) == 0 {
			n.logger.Warn("no email addresses found in contacts")
			break
		}
		adapter := n.channels(cfg.Type, emails)
		ok := adapter != nil && adapter.Send(ctx, evt)
		results["email"] = ok
		n.recordDeliveryOutcome("email", "email", ok)

	case models.ChannelSMS:
		var phones []string
		for _, c := range contacts {
			phones = append(phones, c.Phones...)
		}
		if len(phones) == 0 {
			n.logger.Warn("no phone numbers found in contacts")
			break
		}
		adapter := n.channels(cfg.Type, phones)
		ok := adapter != nil && adapter.Send(ctx, evt)
		results["sms"] = ok
		n.recordDeliveryOutcome("sms", "sms", ok)
	}

	return results
}

// recordDeliveryOutcome tracks a channel-delivery warning keyed by
// channelKey, clearing it on the first successful send after a failure.
func (n *NotificationService) recordDeliveryOutcome(channelKey, channelType string, ok bool) {
	if ok {
		n.warnings.ClearByChannelKey(WarningCategoryChannelDelivery, channelKey)
		return
	}
	n.warnings.AddWarning(WarningCategoryChannelDelivery,
		fmt.Sprintf("failed to deliver %s notification", channelType), "", channelKey)
}

// NotifyTicket sends the notification for a ticket at the given
// escalation level (1-based: level 1 = project's first notification
// group), calling SendToGroup with no flags set. Matches notify_ticket's
// project/group/template resolution and fail-soft "no groups configured"
// / "level exceeds groups" behavior.
func (n *NotificationService) NotifyTicket(ctx context.Context, ticket *models.Ticket, escalationLevel int) (map[string]bool, error) {
	project, err := n.projects.Get(ctx, ticket.ProjectID)
	if err == store.ErrNotFound {
		n.logger.Warn("project not found", "project_id", ticket.ProjectID)
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(project.NotificationGroupIDs) == 0 {
		n.logger.Warn("project has no notification groups configured", "project_id", project.ID)
		return map[string]bool{}, nil
	}

	groupIndex := escalationLevel - 1
	if groupIndex >= len(project.NotificationGroupIDs) {
		n.logger.Warn("escalation level exceeds available groups", "level", escalationLevel, "project_id", project.ID)
		return map[string]bool{}, nil
	}

	group, err := n.groups.Get(ctx, project.NotificationGroupIDs[groupIndex])
	if err == store.ErrNotFound {
		n.logger.Warn("notification group not found", "project_id", project.ID, "level", escalationLevel)
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	tmpl, err := n.templates.GetTemplateForProject(ctx, project)
	if err != nil {
		return nil, err
	}

	n.logger.Info("sending notification", "ticket_id", ticket.ID, "group", group.Name, "level", escalationLevel)
	return n.SendToGroup(ctx, ticket, group, &tmpl, project, SendToGroupInput{}), nil
}

// NotifyTicketAcknowledged sends the acknowledgement confirmation to
// every group from level 1 through the ticket's current escalation
// level, prefixing result keys with "L<level>:" to avoid collisions
// across groups, matching notify_ticket_acknowledged.
func (n *NotificationService) NotifyTicketAcknowledged(ctx context.Context, ticket *models.Ticket, acknowledgedByName string) (map[string]bool, error) {
	project, err := n.projects.Get(ctx, ticket.ProjectID)
	if err == store.ErrNotFound {
		n.logger.Warn("project not found", "project_id", ticket.ProjectID)
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	if !project.NotifyOnAck {
		n.logger.Debug("notify_on_ack disabled, skipping ack notification", "project_id", project.ID)
		return map[string]bool{}, nil
	}
	if len(project.NotificationGroupIDs) == 0 {
		n.logger.Warn("project has no notification groups configured", "project_id", project.ID)
		return map[string]bool{}, nil
	}

	tmpl, err := n.templates.GetTemplateForProject(ctx, project)
	if err != nil {
		return nil, err
	}

	all := make(map[string]bool)
	for level := 1; level <= ticket.EscalationLevel; level++ {
		groupIndex := level - 1
		if groupIndex >= len(project.NotificationGroupIDs) {
			break
		}
		group, err := n.groups.Get(ctx, project.NotificationGroupIDs[groupIndex])
		if err == store.ErrNotFound {
			n.logger.Warn("notification group not found for ack notification", "level", level)
			continue
		}
		if err != nil {
			return nil, err
		}

		n.logger.Info("sending ack notification", "ticket_id", ticket.ID, "group", group.Name, "level", level)
		results := n.SendToGroup(ctx, ticket, group, &tmpl, project, SendToGroupInput{
			IsAckNotification:  true,
			AcknowledgedByName: acknowledgedByName,
		})
		for k, v := range results {
			all["L"+strconv.Itoa(level)+":"+k] = v
		}
	}

	return all, nil
}
