package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
	testdb "github.com/bullet-relay/bulletd/test/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTicketStore_InsertGetSave(t *testing.T) {
	client := testdb.NewTestClient(t)
	tickets := store.NewTicketStore(client.DB())
	ctx := context.Background()

	ticket := &models.Ticket{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		Source:    "grafana",
		Title:     "pod crash",
		Status:    models.StatusPending,
		AckToken:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, tickets.Insert(ctx, ticket))

	fetched, err := tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "pod crash", fetched.Title)

	fetched.Status = models.StatusAcknowledged
	require.NoError(t, tickets.Save(ctx, fetched))

	reloaded, err := tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusAcknowledged, reloaded.Status)
}

func TestTicketStore_Get_NotFound(t *testing.T) {
	client := testdb.NewTestClient(t)
	tickets := store.NewTicketStore(client.DB())

	_, err := tickets.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTicketStore_Save_NotFound(t *testing.T) {
	client := testdb.NewTestClient(t)
	tickets := store.NewTicketStore(client.DB())

	ghost := &models.Ticket{ID: uuid.NewString(), ProjectID: uuid.NewString(), AckToken: uuid.NewString(), Status: models.StatusPending}
	err := tickets.Save(context.Background(), ghost)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTicketStore_FindByAckToken(t *testing.T) {
	client := testdb.NewTestClient(t)
	tickets := store.NewTicketStore(client.DB())
	ctx := context.Background()

	ticket := &models.Ticket{
		ID: uuid.NewString(), ProjectID: uuid.NewString(), Source: "generic",
		Status: models.StatusPending, AckToken: uuid.NewString(), CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, tickets.Insert(ctx, ticket))

	found, err := tickets.FindByAckToken(ctx, ticket.AckToken)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, found.ID)

	_, err = tickets.FindByAckToken(ctx, "no-such-token")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTicketStore_FindByProjectAndStatuses(t *testing.T) {
	client := testdb.NewTestClient(t)
	tickets := store.NewTicketStore(client.DB())
	ctx := context.Background()
	projectID := uuid.NewString()

	pending := &models.Ticket{ID: uuid.NewString(), ProjectID: projectID, Source: "generic", Status: models.StatusPending, AckToken: uuid.NewString(), CreatedAt: time.Now().UTC()}
	resolved := &models.Ticket{ID: uuid.NewString(), ProjectID: projectID, Source: "generic", Status: models.StatusResolved, AckToken: uuid.NewString(), CreatedAt: time.Now().UTC()}
	otherProject := &models.Ticket{ID: uuid.NewString(), ProjectID: uuid.NewString(), Source: "generic", Status: models.StatusPending, AckToken: uuid.NewString(), CreatedAt: time.Now().UTC()}
	require.NoError(t, tickets.Insert(ctx, pending))
	require.NoError(t, tickets.Insert(ctx, resolved))
	require.NoError(t, tickets.Insert(ctx, otherProject))

	found, err := tickets.FindByProjectAndStatuses(ctx, projectID, []models.TicketStatus{models.StatusPending})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, pending.ID, found[0].ID)

	none, err := tickets.FindByProjectAndStatuses(ctx, projectID, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}
