package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
)

// ticketContext is the subset of a ticket exposed to notification
// templates, mirroring TemplateService.build_context's ticket dict.
type ticketContext struct {
	ID                string
	Title             string
	Description       string
	Severity          string
	Source            string
	Status            string
	Labels            map[string]string
	EscalationLevel   int
	NotificationCount int
	CreatedAt         string
}

type projectContext struct {
	ID          string
	Name        string
	Description string
}

// TemplateContext is the full execution context a notification
// template renders against.
type TemplateContext struct {
	Ticket  ticketContext
	Payload map[string]any
	Parsed  map[string]any
	Source  string

	AckURL    string
	DetailURL string

	IsEscalated         bool
	IsRepeated          bool
	NotificationCount   int
	NotificationLabel   string
	IsAckNotification   bool
	AcknowledgedByName  string

	Project *projectContext
}

// TemplateService renders per-project notification templates into the
// card/email/SMS artifacts the channel adapters send.
type TemplateService struct {
	templates *store.TemplateStore
	baseURL   string
	logger    *slog.Logger
	funcMap   template.FuncMap
}

// NewTemplateService builds a TemplateService. baseURL is used to build
// ack_url/detail_url and should not carry a trailing slash.
func NewTemplateService(templates *store.TemplateStore, baseURL string) *TemplateService {
	if templates == nil {
		panic("NewTemplateService: templates must not be nil")
	}
	s := &TemplateService{
		templates: templates,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    slog.Default().With("component", "template-service"),
	}
	s.funcMap = template.FuncMap{
		"je":              jsonEscape,
		"cardColor":       cardColor,
		"cardIcon":        cardIcon,
		"grafanaSummary":  grafanaSummary,
		"grafanaStatus":   grafanaStatus,
		"grafanaAlertname": grafanaAlertname,
		"grafanaDescription": grafanaDescription,
	}
	return s
}

// BuildContextInput carries the per-send variables that aren't derived
// directly from the ticket/project rows.
type BuildContextInput struct {
	IsEscalated        bool
	IsRepeated         bool
	NotificationCount  int // 1-based; if zero, defaults to ticket.NotificationCount+1
	IsAckNotification  bool
	AcknowledgedByName string
}

// BuildContext builds the template execution context from a ticket and
// optional project, matching TemplateService.build_context's variable
// set and notification_label derivation exactly.
func (s *TemplateService) BuildContext(ticket *models.Ticket, project *models.Project, in BuildContextInput) TemplateContext {
	count := in.NotificationCount
	if count == 0 {
		count = ticket.NotificationCount + 1
	}

	label := ""
	switch {
	case in.IsAckNotification:
		if in.AcknowledgedByName != "" {
			label = fmt.Sprintf("已确认 by %s", in.AcknowledgedByName)
		} else {
			label = "已确认"
		}
	case in.IsEscalated:
		label = fmt.Sprintf("已升级到 L%d", ticket.EscalationLevel)
	case in.IsRepeated, count > 1:
		label = fmt.Sprintf("第%d次通知", count)
	}

	createdAt := ""
	if !ticket.CreatedAt.IsZero() {
		createdAt = ticket.CreatedAt.Format(time.RFC3339)
	}

	ctx := TemplateContext{
		Ticket: ticketContext{
			ID:                ticket.ID,
			Title:             ticket.Title,
			Description:       ticket.Description,
			Severity:          string(ticket.Severity),
			Source:            ticket.Source,
			Status:            string(ticket.Status),
			Labels:            ticket.Labels,
			EscalationLevel:   ticket.EscalationLevel,
			NotificationCount: count,
			CreatedAt:         createdAt,
		},
		Payload:             ticket.Payload,
		Parsed:              ticket.ParsedData,
		Source:              ticket.Source,
		AckURL:              fmt.Sprintf("%s/ack/%s?token=%s", s.baseURL, ticket.ID, ticket.AckToken),
		DetailURL:           fmt.Sprintf("%s/tickets/%s", s.baseURL, ticket.ID),
		IsEscalated:         in.IsEscalated,
		IsRepeated:          in.IsRepeated,
		NotificationCount:   count,
		NotificationLabel:   label,
		IsAckNotification:   in.IsAckNotification,
		AcknowledgedByName:  in.AcknowledgedByName,
	}

	if project != nil {
		ctx.Project = &projectContext{
			ID:          project.ID,
			Name:        project.Name,
			Description: project.Description,
		}
	}

	return ctx
}

// RenderString renders a text/template source string against ctx.
// Returns the empty string on any template error (parse or execution),
// fail-open, matching render_string's try/except-and-log behavior.
func (s *TemplateService) RenderString(tmplStr string, ctx TemplateContext) string {
	if tmplStr == "" {
		return ""
	}
	t, err := template.New("notification").Funcs(s.funcMap).Parse(tmplStr)
	if err != nil {
		s.logger.Error("template parse error", "error", err)
		return ""
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		s.logger.Error("template render error", "error", err)
		return ""
	}
	return buf.String()
}

// RenderFeishuCard renders the template's Feishu card source and parses
// it as JSON. Returns nil if the template is empty or rendering/parsing
// fails.
func (s *TemplateService) RenderFeishuCard(tmpl models.NotificationTemplate, ctx TemplateContext) map[string]any {
	if tmpl.FeishuCard == "" {
		return nil
	}
	rendered := s.RenderString(tmpl.FeishuCard, ctx)
	if rendered == "" {
		return nil
	}
	var card map[string]any
	if err := json.Unmarshal([]byte(rendered), &card); err != nil {
		s.logger.Error("failed to parse rendered feishu card as json", "error", err)
		return nil
	}
	return card
}

// RenderEmail renders the subject and body email templates.
func (s *TemplateService) RenderEmail(tmpl models.NotificationTemplate, ctx TemplateContext) (subject, body string) {
	return s.RenderString(tmpl.EmailSubject, ctx), s.RenderString(tmpl.EmailBody, ctx)
}

// RenderSMS renders the SMS message template.
func (s *TemplateService) RenderSMS(tmpl models.NotificationTemplate, ctx TemplateContext) string {
	return s.RenderString(tmpl.SMSMessage, ctx)
}

// GetTemplateForProject resolves the template to use for a project: its
// configured template, falling back to the "default" builtin, falling
// back to an in-memory minimal template if even that is missing.
func (s *TemplateService) GetTemplateForProject(ctx context.Context, project *models.Project) (models.NotificationTemplate, error) {
	if project.NotificationTemplateID != "" {
		tmpl, err := s.templates.Get(ctx, project.NotificationTemplateID)
		if err == nil {
			return *tmpl, nil
		}
		if err != store.ErrNotFound {
			return models.NotificationTemplate{}, err
		}
		s.logger.Warn("configured template not found, falling back to default",
			"template_id", project.NotificationTemplateID, "project_id", project.ID)
	}

	def, err := s.templates.FindByName(ctx, "default")
	if err == nil {
		return *def, nil
	}
	if err != store.ErrNotFound {
		return models.NotificationTemplate{}, err
	}

	s.logger.Warn("no default template found, using minimal fallback")
	return models.NotificationTemplate{Name: "fallback", Description: "Fallback template"}, nil
}

// EnsureBuiltinTemplates upserts the builtin template set at startup,
// refreshing any existing builtin rows to the current source and
// inserting any that are missing.
func (s *TemplateService) EnsureBuiltinTemplates(ctx context.Context, idGen func() string) error {
	return s.templates.EnsureBuiltinTemplates(ctx, idGen)
}

func jsonEscape(value any) string {
	if value == nil {
		return ""
	}
	s := fmt.Sprintf("%v", value)
	encoded, _ := json.Marshal(s)
	if len(encoded) < 2 {
		return ""
	}
	return string(encoded[1 : len(encoded)-1])
}

func cardColor(ctx TemplateContext) string {
	if ctx.IsAckNotification {
		return "green"
	}
	switch ctx.Ticket.Severity {
	case "critical", "error":
		return "red"
	case "warning":
		return "orange"
	default:
		return "blue"
	}
}

func cardIcon(ctx TemplateContext) string {
	if ctx.IsAckNotification {
		return "done_outlined"
	}
	if ctx.IsEscalated {
		return "risk_stroke_red"
	}
	return "warning_outlined"
}

func grafanaSummary(ctx TemplateContext) string {
	if s, ok := ctx.Parsed["description"].(string); ok && s != "" {
		return s
	}
	if ctx.Ticket.Title != "" {
		return ctx.Ticket.Title
	}
	return grafanaAlertname(ctx)
}

func grafanaStatus(ctx TemplateContext) string {
	if s, ok := ctx.Payload["status"].(string); ok && s != "" {
		return s
	}
	return "firing"
}

func grafanaAlertname(ctx TemplateContext) string {
	if ctx.Ticket.Labels != nil {
		if name := ctx.Ticket.Labels["alertname"]; name != "" {
			return name
		}
	}
	return "unknown"
}

func grafanaDescription(ctx TemplateContext) string {
	if ctx.Ticket.Description != "" {
		return ctx.Ticket.Description
	}
	return "无描述"
}
