package services

import (
	"context"
	"testing"
	"time"

	"github.com/bullet-relay/bulletd/pkg/channel"
	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/source"
	"github.com/bullet-relay/bulletd/pkg/store"
	testdb "github.com/bullet-relay/bulletd/test/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeClock pins the intake service's clock to a fixed instant.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newIntakeTestService(t *testing.T, clock store.Clock) (*IntakeService, *store.NamespaceStore, *store.ProjectStore, *store.TicketStore) {
	client := testdb.NewTestClient(t)
	db := client.DB()

	namespaces := store.NewNamespaceStore(db)
	projects := store.NewProjectStore(db)
	groups := store.NewNotificationGroupStore(db)
	tickets := store.NewTicketStore(db)
	contacts := store.NewContactStore(db)
	templateStore := store.NewTemplateStore(db)
	require.NoError(t, templateStore.EnsureBuiltinTemplates(context.Background(), uuid.NewString))

	templates := NewTemplateService(templateStore, "https://bullet.example.com")
	notifications := NewNotificationService(tickets, projects, groups, contacts, templates,
		func(models.ChannelType, []string) channel.Adapter { return nil }, "https://bullet.example.com")

	svc := NewIntakeService(namespaces, projects, groups, tickets, notifications, source.NewRegistry(), clock)
	return svc, namespaces, projects, tickets
}

func insertIntakeNamespaceAndProject(t *testing.T, namespaces *store.NamespaceStore, projects *store.ProjectStore, configure func(*models.Project)) (*models.Namespace, *models.Project) {
	t.Helper()
	ctx := context.Background()
	ns := &models.Namespace{ID: uuid.NewString(), Slug: "eng-" + uuid.NewString()[:8], Name: "eng"}
	require.NoError(t, namespaces.Insert(ctx, ns))

	project := &models.Project{ID: uuid.NewString(), NamespaceID: ns.ID, Name: "proj", IsActive: true}
	if configure != nil {
		configure(project)
	}
	require.NoError(t, projects.Insert(ctx, project))
	return ns, project
}

func TestIntakeService_Receive_NamespaceNotFound(t *testing.T) {
	svc, _, _, _ := newIntakeTestService(t, store.SystemClock{})

	_, err := svc.Receive(context.Background(), ReceiveInput{NamespaceSlug: "missing", ProjectID: "irrelevant", SourceName: "generic"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntakeService_Receive_ProjectNotFoundOrWrongNamespace(t *testing.T) {
	svc, namespaces, projects, _ := newIntakeTestService(t, store.SystemClock{})
	ctx := context.Background()

	ns1, _ := insertIntakeNamespaceAndProject(t, namespaces, projects, nil)
	_, otherProject := insertIntakeNamespaceAndProject(t, namespaces, projects, nil)
	_ = ns1

	_, err := svc.Receive(ctx, ReceiveInput{NamespaceSlug: ns1.Slug, ProjectID: otherProject.ID, SourceName: "generic"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntakeService_Receive_DisabledProjectIsIgnored(t *testing.T) {
	svc, namespaces, projects, _ := newIntakeTestService(t, store.SystemClock{})

	ns, project := insertIntakeNamespaceAndProject(t, namespaces, projects, func(p *models.Project) { p.IsActive = false })

	result, err := svc.Receive(context.Background(), ReceiveInput{
		NamespaceSlug: ns.Slug, ProjectID: project.ID, SourceName: "generic",
		Payload: map[string]any{"title": "pod crash"},
	})
	require.NoError(t, err)
	require.Equal(t, "ignored", result.Status)
}

func TestIntakeService_Receive_CreatesAndNotifiesTicket(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, namespaces, projects, tickets := newIntakeTestService(t, &fakeClock{now: now})

	ns, project := insertIntakeNamespaceAndProject(t, namespaces, projects, nil)

	result, err := svc.Receive(context.Background(), ReceiveInput{
		NamespaceSlug: ns.Slug, ProjectID: project.ID, SourceName: "generic",
		Payload: map[string]any{"title": "pod crash", "level": "critical"},
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)
	require.NotEmpty(t, result.TicketID)

	stored, err := tickets.Get(context.Background(), result.TicketID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stored.Status)
	require.Equal(t, "pod crash", stored.Title)
	require.Equal(t, 1, stored.NotificationCount)
	require.NotNil(t, stored.LastNotifiedAt)
	require.True(t, stored.HasEventType(models.EventCreated))
	require.True(t, stored.HasEventType(models.EventNotified))
}

func TestIntakeService_Receive_SilencedProjectSkipsNotification(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	svc, namespaces, projects, tickets := newIntakeTestService(t, &fakeClock{now: now})

	ns, project := insertIntakeNamespaceAndProject(t, namespaces, projects, func(p *models.Project) {
		p.SilencedUntil = &future
	})

	result, err := svc.Receive(context.Background(), ReceiveInput{
		NamespaceSlug: ns.Slug, ProjectID: project.ID, SourceName: "generic",
		Payload: map[string]any{"title": "pod crash"},
	})
	require.NoError(t, err)
	require.Equal(t, "silenced", result.Status)

	stored, err := tickets.Get(context.Background(), result.TicketID)
	require.NoError(t, err)
	require.True(t, stored.HasEventType(models.EventNotifiedSilenced))
	require.False(t, stored.HasEventType(models.EventNotified))
}

func TestIntakeService_Receive_ResolvedStatusClosesPendingTickets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, namespaces, projects, tickets := newIntakeTestService(t, &fakeClock{now: now})
	ctx := context.Background()

	ns, project := insertIntakeNamespaceAndProject(t, namespaces, projects, nil)

	pending := &models.Ticket{
		ID: uuid.NewString(), ProjectID: project.ID, Source: "aliyun_pai",
		Status: models.StatusPending, AckToken: uuid.NewString(), CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, tickets.Insert(ctx, pending))

	payload := map[string]any{
		"content": map[string]any{
			"post": map[string]any{
				"zh_cn": map[string]any{
					"title": "PAI 任务通知",
					"content": []any{
						[]any{map[string]any{"tag": "text", "text": "任务状态: Succeeded"}},
					},
				},
			},
		},
	}
	result, err := svc.Receive(ctx, ReceiveInput{
		NamespaceSlug: ns.Slug, ProjectID: project.ID, SourceName: "aliyun_pai",
		Payload: payload,
	})
	require.NoError(t, err)
	require.Equal(t, "resolved", result.Status)
	require.Equal(t, 1, result.ResolvedCount)

	stored, err := tickets.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)
}
