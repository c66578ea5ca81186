package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/docstore"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 10, 7, 30, 0, 123_000_000, time.UTC)

func fixtures() ([]models.User, []models.Entry) {
	users := []models.User{
		{ID: 100, Name: "Ann", CreatedAt: t0},
		{ID: 101, Name: "Bob", CreatedAt: t0.Add(time.Minute)},
	}
	entries := []models.Entry{
		{ID: 202, UserID: 101, Measurement: 140, TimePeriod: models.AfterDinner, Timestamp: t0.Add(time.Hour), Medications: []models.Medication{}},
		{ID: 201, UserID: 100, Measurement: 95.5, TimePeriod: models.BeforeLunch, Timestamp: t0,
			Medications: []models.Medication{{Name: "Insulin", Units: 4}}},
	}
	return users, entries
}

func newTestClient() (*DocClient, *docstore.Memory) {
	store := docstore.NewMemory()
	return NewDocClient(store, logging.Nop()), store
}

func TestSaveAndGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	users, entries := fixtures()

	for _, u := range users {
		require.NoError(t, c.SaveUser(ctx, "acc", u))
	}
	for _, e := range entries {
		require.NoError(t, c.SaveEntry(ctx, "acc", e))
	}

	gotUsers, err := c.GetUsers(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, gotUsers, 2)
	assert.Equal(t, int64(100), gotUsers[0].ID)
	assert.Equal(t, "Bob", gotUsers[1].Name)
	assert.True(t, gotUsers[1].CreatedAt.Equal(users[1].CreatedAt))

	gotEntries, err := c.GetEntries(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, gotEntries, 2)
	assert.Equal(t, int64(202), gotEntries[0].ID)
	assert.Equal(t, entries[1].Medications, gotEntries[1].Medications)
	assert.Equal(t, models.BeforeLunch, gotEntries[1].TimePeriod)
	assert.True(t, gotEntries[1].Timestamp.Equal(t0))

	body := store.Dump()["accounts/acc/entries/201"]
	assert.JSONEq(t, `{"userId":100,"measurement":95.5,"timePeriod":"before-lunch",
		"timestamp":"2024-03-10T07:30:00.123Z","medications":[{"name":"Insulin","units":4}]}`, string(body))
	assert.NotContains(t, string(store.Dump()["accounts/acc/users/100"]), `"id"`)
}

func TestGet_ScopedByAccount(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient()
	users, _ := fixtures()

	require.NoError(t, c.SaveUser(ctx, "a", users[0]))
	require.NoError(t, c.SaveUser(ctx, "b", users[1]))

	got, err := c.GetUsers(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].Name)
}

func TestSave_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	_, entries := fixtures()

	require.NoError(t, c.SaveEntry(ctx, "acc", entries[0]))
	first := store.Dump()
	require.NoError(t, c.SaveEntry(ctx, "acc", entries[0]))
	assert.Equal(t, first, store.Dump())
}

func TestDeleteEntry_MissingIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	_, entries := fixtures()

	require.NoError(t, c.SaveEntry(ctx, "acc", entries[0]))
	require.NoError(t, c.DeleteEntry(ctx, "acc", entries[0].ID))
	require.NoError(t, c.DeleteEntry(ctx, "acc", entries[0].ID))
	assert.Zero(t, store.Len())
}

func TestGetEntries_SkipsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	_, entries := fixtures()

	require.NoError(t, c.SaveEntry(ctx, "acc", entries[0]))
	require.NoError(t, store.Put(ctx, "accounts/acc/entries/not-a-number", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, "accounts/acc/entries/5", []byte(`{broken`)))
	require.NoError(t, store.Put(ctx, "accounts/acc/entries/6", []byte(`{"userId":0,"measurement":1,"timestamp":"2024-01-01T00:00:00Z"}`)))

	got, err := c.GetEntries(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entries[0].ID, got[0].ID)
}

func TestErrors_AreRemoteErrors(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	store.SetFault(func(op, path string) error {
		return common.ErrUnavailable
	})
	users, entries := fixtures()

	checks := map[string]error{
		"save user":    c.SaveUser(ctx, "acc", users[0]),
		"save entry":   c.SaveEntry(ctx, "acc", entries[0]),
		"delete entry": c.DeleteEntry(ctx, "acc", 1),
	}
	_, checks["get users"] = c.GetUsers(ctx, "acc")
	_, checks["get entries"] = c.GetEntries(ctx, "acc")

	for op, err := range checks {
		var re *common.RemoteError
		require.ErrorAs(t, err, &re, op)
		assert.Equal(t, op, re.Op)
		assert.Equal(t, "acc", re.AccountID)
		assert.ErrorIs(t, err, common.ErrRemote)
		assert.ErrorIs(t, err, common.ErrUnavailable)
	}
}

func TestEmptyAccountIsUnauthorized(t *testing.T) {
	c, store := newTestClient()
	users, _ := fixtures()

	err := c.SaveUser(context.Background(), "", users[0])
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.ErrorIs(t, err, common.ErrRemote)
	assert.Zero(t, store.Len())
}

func TestMigrate_WritesEverythingAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	users, entries := fixtures()

	require.NoError(t, c.Migrate(ctx, "acc", users, entries))
	first := store.Dump()
	assert.Len(t, first, 4)

	require.NoError(t, c.Migrate(ctx, "acc", users, entries))
	assert.Equal(t, first, store.Dump())
}

func TestMigrate_PartialFailureReportsProgress(t *testing.T) {
	ctx := context.Background()
	c, store := newTestClient()
	users, entries := fixtures()

	boom := errors.New("quota exceeded")
	store.SetFault(func(op, path string) error {
		if path == "accounts/acc/entries/201" {
			return boom
		}
		return nil
	})

	err := c.Migrate(ctx, "acc", users, entries)
	require.Error(t, err)

	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "migrate", re.Op)
	assert.Equal(t, "accounts/acc/entries/201", re.Path)

	var me *common.MigrationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 2, me.UsersDone)
	assert.Equal(t, 1, me.EntriesDone)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, common.ErrMigration)

	// writes before the failure stay in place
	assert.Len(t, store.Dump(), 3)

	store.SetFault(nil)
	require.NoError(t, c.Migrate(ctx, "acc", users, entries))
	assert.Len(t, store.Dump(), 4)
}
