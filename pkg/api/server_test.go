package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bullet-relay/bulletd/pkg/channel"
	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/services"
	"github.com/bullet-relay/bulletd/pkg/source"
	"github.com/bullet-relay/bulletd/pkg/store"
	testdb "github.com/bullet-relay/bulletd/test/database"
	"github.com/google/uuid"
)

// newTestServer wires a full Server against a real (test) Postgres
// instance, mirroring the wiring cmd/bulletd does at startup but with a
// no-op channel factory so tests never attempt real network sends.
func newTestServer(t *testing.T) (*Server, *store.NamespaceStore, *store.ProjectStore, *store.TicketStore, *services.NotificationService) {
	client := testdb.NewTestClient(t)
	db := client.DB()

	namespaces := store.NewNamespaceStore(db)
	projects := store.NewProjectStore(db)
	groups := store.NewNotificationGroupStore(db)
	tickets := store.NewTicketStore(db)
	contacts := store.NewContactStore(db)
	templateStore := store.NewTemplateStore(db)
	require.NoError(t, templateStore.EnsureBuiltinTemplates(context.Background(), uuid.NewString))

	templates := services.NewTemplateService(templateStore, "https://bullet.example.com")
	noopFactory := func(models.ChannelType, []string) channel.Adapter { return nil }
	notifications := services.NewNotificationService(tickets, projects, groups, contacts, templates, noopFactory, "https://bullet.example.com")

	intake := services.NewIntakeService(namespaces, projects, groups, tickets, notifications, source.NewRegistry(), store.SystemClock{})
	ack := services.NewAckService(tickets, notifications, store.SystemClock{})

	return NewServer(client, intake, ack, notifications), namespaces, projects, tickets, notifications
}

func insertServerTestProject(t *testing.T, namespaces *store.NamespaceStore, projects *store.ProjectStore) (*models.Namespace, *models.Project) {
	t.Helper()
	ctx := context.Background()
	ns := &models.Namespace{ID: uuid.NewString(), Slug: "eng-" + uuid.NewString()[:8], Name: "eng"}
	require.NoError(t, namespaces.Insert(ctx, ns))
	project := &models.Project{ID: uuid.NewString(), NamespaceID: ns.ID, Name: "proj", IsActive: true}
	require.NoError(t, projects.Insert(ctx, project))
	return ns, project
}

func TestWebhookHandler_CreatesTicket(t *testing.T) {
	s, namespaces, projects, tickets, _ := newTestServer(t)
	ns, project := insertServerTestProject(t, namespaces, projects)

	body := `{"title": "pod crash", "severity": "critical"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+ns.Slug+"/"+project.ID+"?source=generic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.TicketID)

	stored, err := tickets.Get(context.Background(), resp.TicketID)
	require.NoError(t, err)
	require.Equal(t, "pod crash", stored.Title)
}

func TestWebhookHandler_UnknownNamespaceReturns404(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/no-such-ns/no-such-project", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookHandler_InvalidJSONReturns400(t *testing.T) {
	s, namespaces, projects, _, _ := newTestServer(t)
	ns, project := insertServerTestProject(t, namespaces, projects)

	req := httptest.NewRequest(http.MethodPost, "/webhook/"+ns.Slug+"/"+project.ID, strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAckHandler_RedirectsByDefault(t *testing.T) {
	s, namespaces, projects, tickets, _ := newTestServer(t)
	_, project := insertServerTestProject(t, namespaces, projects)

	ticket := &models.Ticket{ID: uuid.NewString(), ProjectID: project.ID, Source: "generic", Status: models.StatusPending, AckToken: uuid.NewString()}
	require.NoError(t, tickets.Insert(context.Background(), ticket))

	req := httptest.NewRequest(http.MethodGet, "/ack/"+ticket.ID+"?token="+ticket.AckToken, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/tickets/"+ticket.ID, rec.Header().Get("Location"))
}

func TestAckHandler_JSONFormat(t *testing.T) {
	s, namespaces, projects, tickets, _ := newTestServer(t)
	_, project := insertServerTestProject(t, namespaces, projects)

	ticket := &models.Ticket{ID: uuid.NewString(), ProjectID: project.ID, Source: "generic", Status: models.StatusPending, AckToken: uuid.NewString()}
	require.NoError(t, tickets.Insert(context.Background(), ticket))

	req := httptest.NewRequest(http.MethodGet, "/ack/"+ticket.ID+"?token="+ticket.AckToken+"&format=json", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AckJSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "acknowledged", resp.Status)
}

func TestAckHandler_InvalidTokenReturns403(t *testing.T) {
	s, namespaces, projects, tickets, _ := newTestServer(t)
	_, project := insertServerTestProject(t, namespaces, projects)

	ticket := &models.Ticket{ID: uuid.NewString(), ProjectID: project.ID, Source: "generic", Status: models.StatusPending, AckToken: uuid.NewString()}
	require.NoError(t, tickets.Insert(context.Background(), ticket))

	req := httptest.NewRequest(http.MethodGet, "/ack/"+ticket.ID+"?token=wrong&format=json", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthHandler_Healthy(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, healthStatusHealthy, resp.Status)
}

func TestHealthHandler_DegradedOnChannelDeliveryWarning(t *testing.T) {
	s, _, _, _, notifications := newTestServer(t)
	require.Empty(t, notifications.Warnings())

	contact := &models.Contact{ID: uuid.NewString(), Name: "oncall", Emails: []string{"oncall@example.com"}}
	require.NoError(t, store.NewContactStore(s.dbClient.DB()).Insert(context.Background(), contact))

	notifications.SendToGroup(context.Background(), &models.Ticket{ID: uuid.NewString()}, &models.NotificationGroup{
		ChannelConfigs: []models.ChannelConfig{{Type: models.ChannelEmail, ContactIDs: []string{contact.ID}}},
	}, nil, &models.Project{}, services.SendToGroupInput{})
	require.NotEmpty(t, notifications.Warnings())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, healthStatusDegraded, resp.Status)
	require.Equal(t, healthStatusDegraded, resp.Checks["channel_delivery"].Status)
}
