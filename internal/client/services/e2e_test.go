package services

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/auth"
	"github.com/dmitrijs2005/nibblelog/internal/server/httpserver"
	serversvc "github.com/dmitrijs2005/nibblelog/internal/server/services"
	"github.com/dmitrijs2005/nibblelog/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type device struct {
	auth   AuthService
	entity EntityService
	sync   SyncService
}

func newServer(t *testing.T, pageLimit int) string {
	t.Helper()

	store, err := storage.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	syncSvc := serversvc.NewSyncService(store, pageLimit, logging.Nop{}, nil)
	authSvc := serversvc.NewAuthService(auth.Users{"yak": "changeme", "bob": "pw"}, "test-secret", time.Hour, logging.Nop{})

	srv := httptest.NewServer(httpserver.NewServer("", syncSvc, authSvc, nil, nil, logging.Nop{}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func newDevice(t *testing.T, url, deviceID string) *device {
	t.Helper()
	db := setupDB(t)
	c := client.NewHTTPClient(url, nil)
	return &device{
		auth:   NewAuthService(c, db),
		entity: NewEntityService(db, deviceID),
		sync:   NewSyncService(c, db, deviceID, logging.Nop{}),
	}
}

func TestEndToEnd_TwoDevicesConverge(t *testing.T) {
	url := newServer(t, 2)
	ctx := context.Background()

	phone := newDevice(t, url, "phone")
	laptop := newDevice(t, url, "laptop")

	_, err := phone.auth.Login(ctx, "yak", "changeme")
	require.NoError(t, err)
	_, err = laptop.auth.Login(ctx, "yak", "changeme")
	require.NoError(t, err)

	food, err := phone.entity.AddCategory(ctx, "Food", nil)
	require.NoError(t, err)
	_, err = phone.entity.AddCategory(ctx, "Gym", nil)
	require.NoError(t, err)
	_, err = phone.entity.AddActivity(ctx, ActivityInput{CategoryID: food.ID})
	require.NoError(t, err)

	report, err := phone.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pushed)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int64(3), report.Cursor)

	report, err = laptop.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pulled)
	assert.Equal(t, int64(3), report.Cursor)

	cats, err := laptop.entity.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
	acts, err := laptop.entity.Activities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, food.ID, acts[0].CategoryID)

	require.NoError(t, laptop.entity.Delete(ctx, "activity", acts[0].ID))
	_, err = laptop.sync.Sync(ctx)
	require.NoError(t, err)

	report, err = phone.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Cursor)

	acts, err = phone.entity.Activities(ctx)
	require.NoError(t, err)
	assert.Empty(t, acts)

	// Re-syncing is a no-op.
	report, err = phone.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Pushed)
	assert.Zero(t, report.Pulled)

	st, err := phone.sync.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
	assert.Equal(t, int64(4), st.Cursor)
}

func TestEndToEnd_UsersAreIsolated(t *testing.T) {
	url := newServer(t, 100)
	ctx := context.Background()

	a := newDevice(t, url, "a")
	b := newDevice(t, url, "b")

	_, err := a.auth.Login(ctx, "yak", "changeme")
	require.NoError(t, err)
	_, err = b.auth.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	_, err = a.entity.AddCategory(ctx, "Private", nil)
	require.NoError(t, err)
	_, err = a.sync.Sync(ctx)
	require.NoError(t, err)

	report, err := b.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Pulled)

	cats, err := b.entity.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestEndToEnd_BadCredentials(t *testing.T) {
	d := newDevice(t, newServer(t, 10), "a")

	_, err := d.auth.Login(context.Background(), "yak", "wrong")
	require.ErrorIs(t, err, client.ErrUnauthorized)
}
