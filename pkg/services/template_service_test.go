package services

import (
	"testing"
	"time"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTemplateService builds a TemplateService against an unconnected
// store handle: BuildContext/RenderString/RenderFeishuCard never touch the
// database, only GetTemplateForProject/EnsureBuiltinTemplates do.
func newTestTemplateService() *TemplateService {
	return NewTemplateService(store.NewTemplateStore(nil), "https://bullet.example.com/")
}

func TestTemplateService_BuildContext_NotificationLabel(t *testing.T) {
	svc := newTestTemplateService()
	ticket := &models.Ticket{
		ID: "tkt-1", Title: "pod crash", AckToken: "tok-1",
		EscalationLevel: 2, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("first notification has no label", func(t *testing.T) {
		ctx := svc.BuildContext(ticket, nil, BuildContextInput{})
		assert.Empty(t, ctx.NotificationLabel)
		assert.Equal(t, 1, ctx.NotificationCount)
	})

	t.Run("repeated notification", func(t *testing.T) {
		ctx := svc.BuildContext(ticket, nil, BuildContextInput{IsRepeated: true, NotificationCount: 3})
		assert.Equal(t, "第3次通知", ctx.NotificationLabel)
	})

	t.Run("escalated notification", func(t *testing.T) {
		ctx := svc.BuildContext(ticket, nil, BuildContextInput{IsEscalated: true})
		assert.Equal(t, "已升级到 L2", ctx.NotificationLabel)
	})

	t.Run("ack notification names the acknowledger", func(t *testing.T) {
		ctx := svc.BuildContext(ticket, nil, BuildContextInput{IsAckNotification: true, AcknowledgedByName: "alice"})
		assert.Equal(t, "已确认 by alice", ctx.NotificationLabel)
	})

	t.Run("ack notification without a name", func(t *testing.T) {
		ctx := svc.BuildContext(ticket, nil, BuildContextInput{IsAckNotification: true})
		assert.Equal(t, "已确认", ctx.NotificationLabel)
	})
}

func TestTemplateService_BuildContext_URLsAndProject(t *testing.T) {
	svc := newTestTemplateService()
	ticket := &models.Ticket{ID: "tkt-1", AckToken: "tok-1"}
	project := &models.Project{ID: "proj-1", Name: "prod"}

	ctx := svc.BuildContext(ticket, project, BuildContextInput{})
	assert.Equal(t, "https://bullet.example.com/ack/tkt-1?token=tok-1", ctx.AckURL)
	assert.Equal(t, "https://bullet.example.com/tickets/tkt-1", ctx.DetailURL)
	require.NotNil(t, ctx.Project)
	assert.Equal(t, "prod", ctx.Project.Name)
}

func TestTemplateService_RenderString(t *testing.T) {
	svc := newTestTemplateService()
	ctx := svc.BuildContext(&models.Ticket{ID: "tkt-1", Title: "pod crash"}, nil, BuildContextInput{})

	assert.Equal(t, "pod crash", svc.RenderString("{{.Ticket.Title}}", ctx))
	assert.Empty(t, svc.RenderString("", ctx))
	assert.Empty(t, svc.RenderString("{{.Nonexistent.Field}}", ctx))
}

func TestTemplateService_RenderFeishuCard(t *testing.T) {
	svc := newTestTemplateService()
	ctx := svc.BuildContext(&models.Ticket{ID: "tkt-1", Title: "pod crash"}, nil, BuildContextInput{})

	t.Run("empty template", func(t *testing.T) {
		card := svc.RenderFeishuCard(models.NotificationTemplate{}, ctx)
		assert.Nil(t, card)
	})

	t.Run("renders valid json", func(t *testing.T) {
		tmpl := models.NotificationTemplate{FeishuCard: `{"title": "{{.Ticket.Title}}"}`}
		card := svc.RenderFeishuCard(tmpl, ctx)
		require.NotNil(t, card)
		assert.Equal(t, "pod crash", card["title"])
	})

	t.Run("invalid json falls back to nil", func(t *testing.T) {
		tmpl := models.NotificationTemplate{FeishuCard: `{{.Ticket.Title}}`}
		card := svc.RenderFeishuCard(tmpl, ctx)
		assert.Nil(t, card)
	})
}

func TestCardColorAndIcon(t *testing.T) {
	assert.Equal(t, "green", cardColor(TemplateContext{IsAckNotification: true}))
	assert.Equal(t, "red", cardColor(TemplateContext{Ticket: ticketContext{Severity: "critical"}}))
	assert.Equal(t, "orange", cardColor(TemplateContext{Ticket: ticketContext{Severity: "warning"}}))
	assert.Equal(t, "blue", cardColor(TemplateContext{}))

	assert.Equal(t, "done_outlined", cardIcon(TemplateContext{IsAckNotification: true}))
	assert.Equal(t, "risk_stroke_red", cardIcon(TemplateContext{IsEscalated: true}))
	assert.Equal(t, "warning_outlined", cardIcon(TemplateContext{}))
}
