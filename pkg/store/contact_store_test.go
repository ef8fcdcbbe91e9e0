package store_test

import (
	"context"
	"testing"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/store"
	testdb "github.com/bullet-relay/bulletd/test/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContactStore_InsertGet(t *testing.T) {
	client := testdb.NewTestClient(t)
	contacts := store.NewContactStore(client.DB())
	ctx := context.Background()

	contact := &models.Contact{ID: uuid.NewString(), Name: "alice", Emails: []string{"alice@example.com"}}
	require.NoError(t, contacts.Insert(ctx, contact))

	fetched, err := contacts.Get(ctx, contact.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", fetched.Name)
}

func TestContactStore_Get_NotFound(t *testing.T) {
	client := testdb.NewTestClient(t)
	contacts := store.NewContactStore(client.DB())

	_, err := contacts.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestContactStore_GetMany_SkipsMissingAndEmptyIDs(t *testing.T) {
	client := testdb.NewTestClient(t)
	contacts := store.NewContactStore(client.DB())
	ctx := context.Background()

	alice := &models.Contact{ID: uuid.NewString(), Name: "alice"}
	bob := &models.Contact{ID: uuid.NewString(), Name: "bob"}
	require.NoError(t, contacts.Insert(ctx, alice))
	require.NoError(t, contacts.Insert(ctx, bob))

	found, err := contacts.GetMany(ctx, []string{alice.ID, "", uuid.NewString(), bob.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)

	var names []string
	for _, c := range found {
		names = append(names, c.Name)
	}
	require.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestContactStore_GetMany_EmptyInputReturnsEmptySlice(t *testing.T) {
	client := testdb.NewTestClient(t)
	contacts := store.NewContactStore(client.DB())

	found, err := contacts.GetMany(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Empty(t, found)
}
