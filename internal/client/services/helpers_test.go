package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/metadata"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	token string

	loginFn func(ctx context.Context, username, password string) (*client.LoginResult, error)
	pushFn  func(ctx context.Context, deviceID string, deltas []*models.Delta) (*client.PushResult, error)
	pullFn  func(ctx context.Context, deviceID string, cursor int64) (*client.PullResult, error)

	pushes [][]*models.Delta
	pulls  []int64
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (*client.LoginResult, error) {
	return f.loginFn(ctx, username, password)
}

func (f *fakeClient) Push(ctx context.Context, deviceID string, deltas []*models.Delta) (*client.PushResult, error) {
	f.pushes = append(f.pushes, deltas)
	if f.pushFn == nil {
		acked := make([]string, 0, len(deltas))
		for _, d := range deltas {
			acked = append(acked, d.ID)
		}
		return &client.PushResult{Acked: acked, LastServerSeq: int64(len(deltas))}, nil
	}
	return f.pushFn(ctx, deviceID, deltas)
}

func (f *fakeClient) Pull(ctx context.Context, deviceID string, cursor int64) (*client.PullResult, error) {
	f.pulls = append(f.pulls, cursor)
	if f.pullFn == nil {
		return &client.PullResult{Cursor: cursor}, nil
	}
	return f.pullFn(ctx, deviceID, cursor)
}

func (f *fakeClient) SetAccessToken(token string) { f.token = token }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// signIn stores a session as Login would.
func signIn(t *testing.T, db *sql.DB, userID string) {
	t.Helper()
	meta := metadata.NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, meta.SetString(ctx, metadata.KeyAccessToken, "tok-"+userID))
	require.NoError(t, meta.SetString(ctx, metadata.KeyUserID, userID))
	require.NoError(t, meta.SetString(ctx, metadata.KeyUsername, userID))
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}
