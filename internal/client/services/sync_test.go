package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/entities"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncService(t *testing.T, fc *fakeClient) (*syncService, *entityService) {
	t.Helper()
	db := setupDB(t)
	signIn(t, db, "yak")

	s := NewSyncService(fc, db, "dev1", logging.Nop{}).(*syncService)
	s.now = fixedClock(5000)
	e := NewEntityService(db, "dev1").(*entityService)
	e.now = fixedClock(1000)
	return s, e
}

func remote(seq int64, entity models.Entity, id string, op models.Op, payload string, ts int64) *models.Delta {
	return &models.Delta{
		ServerSeq: seq, ID: fmt.Sprintf("r%d", seq), UserID: "yak", DeviceID: "dev2",
		Entity: entity, EntityID: id, Op: op, Payload: json.RawMessage(payload), TS: ts,
	}
}

// pages serves the given deltas in pages of size n, like the server does.
func pages(all []*models.Delta, n int) func(context.Context, string, int64) (*client.PullResult, error) {
	return func(_ context.Context, _ string, cursor int64) (*client.PullResult, error) {
		var out []*models.Delta
		next := cursor
		for _, d := range all {
			if d.ServerSeq > cursor && len(out) < n {
				out = append(out, d)
				next = d.ServerSeq
			}
		}
		return &client.PullResult{Cursor: next, Deltas: out}, nil
	}
}

func TestSync_NotLoggedIn(t *testing.T) {
	s := NewSyncService(&fakeClient{}, setupDB(t), "dev1", nil)

	_, err := s.Sync(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSync_PushesInBatchesAndMarksSent(t *testing.T) {
	fc := &fakeClient{}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	for i := 0; i < PushBatchSize+3; i++ {
		_, err := e.Record(ctx, models.EntityCategory, fmt.Sprintf("c%d", i), models.OpUpsert, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	report, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushBatchSize+3, report.Pushed)
	require.Len(t, fc.pushes, 2)
	assert.Len(t, fc.pushes[0], PushBatchSize)
	assert.Len(t, fc.pushes[1], 3)
	assert.Equal(t, "tok-yak", fc.token)

	n, err := outbox.NewSQLiteRepository(s.db).CountPending(ctx, "yak")
	require.NoError(t, err)
	assert.Zero(t, n)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), st.LastSyncAt.UnixMilli())
	assert.True(t, st.LoggedIn)
}

func TestSync_RejectedDeltasStayPending(t *testing.T) {
	fc := &fakeClient{}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	good, err := e.Record(ctx, models.EntityCategory, "c1", models.OpUpsert, nil)
	require.NoError(t, err)
	bad, err := e.Record(ctx, models.EntityCategory, "c2", models.OpUpsert, nil)
	require.NoError(t, err)

	fc.pushFn = func(_ context.Context, _ string, deltas []*models.Delta) (*client.PushResult, error) {
		return &client.PushResult{
			Acked:         []string{good.ID},
			LastServerSeq: 1,
			Failed:        []client.FailedDelta{{ID: bad.ID, Reason: "storage error"}},
		}, nil
	}

	report, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, []client.FailedDelta{{ID: bad.ID, Reason: "storage error"}}, report.Failed)
	assert.Len(t, fc.pushes, 1, "rejected deltas are not resent within one run")

	pending, err := outbox.NewSQLiteRepository(s.db).Pending(ctx, "yak", "", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, bad.ID, pending[0].ID)
}

func TestSync_PushErrorSkipsPull(t *testing.T) {
	fc := &fakeClient{pushFn: func(context.Context, string, []*models.Delta) (*client.PushResult, error) {
		return nil, client.ErrUnavailable
	}}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	_, err := e.Record(ctx, models.EntityCategory, "c1", models.OpUpsert, nil)
	require.NoError(t, err)

	_, err = s.Sync(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, err.Error(), "push:")
	assert.Empty(t, fc.pulls)
}

func TestSync_PullsAllPagesAndAdvancesCursor(t *testing.T) {
	log := []*models.Delta{
		remote(1, models.EntityCategory, "c1", models.OpUpsert, `{"name":"Food"}`, 100),
		remote(2, models.EntityCategory, "c2", models.OpUpsert, `{"name":"Gym"}`, 110),
		remote(3, models.EntityActivity, "a1", models.OpUpsert, `{"category_id":"c1"}`, 120),
		remote(4, models.EntityCategory, "c2", models.OpDelete, `{"deleted_at":130}`, 130),
		remote(5, models.EntityCategory, "c1", models.OpUpsert, `{"name":"Old"}`, 50),
	}
	fc := &fakeClient{pullFn: pages(log, 2)}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	report, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 4, 5}, fc.pulls)
	assert.Equal(t, 5, report.Pulled)
	assert.Equal(t, 4, report.Applied)
	assert.Equal(t, int64(5), report.Cursor)

	cursor, err := metadata.NewSQLiteRepository(s.db).GetInt64(ctx, metadata.KeyCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cursor)

	cats, err := e.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name, "older write loses")

	rec, err := entities.NewSQLiteRepository(s.db).Get(ctx, models.EntityCategory, "c2")
	require.NoError(t, err)
	assert.True(t, rec.Deleted)
	assert.JSONEq(t, `{"name":"Gym"}`, string(rec.Payload))

	// Next run resumes from the stored cursor.
	fc.pulls = nil
	_, err = s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, fc.pulls)
}

func TestSync_LocalNewerEditSurvivesPull(t *testing.T) {
	fc := &fakeClient{}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	e.now = fixedClock(2000)
	_, err := e.Record(ctx, models.EntityCategory, "c1", models.OpUpsert, json.RawMessage(`{"name":"Mine"}`))
	require.NoError(t, err)

	fc.pushFn = func(context.Context, string, []*models.Delta) (*client.PushResult, error) {
		return nil, errors.New("offline")
	}
	fc.pullFn = pages([]*models.Delta{
		remote(1, models.EntityCategory, "c1", models.OpUpsert, `{"name":"Theirs"}`, 1500),
	}, 10)

	_, err = s.Sync(ctx)
	require.Error(t, err)

	fc.pushFn = nil
	_, err = s.Sync(ctx)
	require.NoError(t, err)

	cats, err := e.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Mine", cats[0].Name)
}

func TestSync_EchoedOwnEditTakesServerSeq(t *testing.T) {
	fc := &fakeClient{}
	s, e := newSyncService(t, fc)
	ctx := context.Background()

	d, err := e.Record(ctx, models.EntityCategory, "c1", models.OpUpsert, json.RawMessage(`{"name":"Food"}`))
	require.NoError(t, err)

	echo := *d
	echo.ServerSeq = 7
	fc.pullFn = pages([]*models.Delta{&echo}, 10)

	_, err = s.Sync(ctx)
	require.NoError(t, err)

	rec, err := entities.NewSQLiteRepository(s.db).Get(ctx, models.EntityCategory, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ServerSeq)
	assert.JSONEq(t, `{"name":"Food"}`, string(rec.Payload))
}

func TestSync_PullErrorKeepsCursor(t *testing.T) {
	calls := 0
	fc := &fakeClient{}
	fc.pullFn = func(ctx context.Context, dev string, cursor int64) (*client.PullResult, error) {
		calls++
		if calls > 1 {
			return nil, client.ErrUnavailable
		}
		return pages([]*models.Delta{remote(1, models.EntityCategory, "c1", models.OpUpsert, `{}`, 1)}, 1)(ctx, dev, cursor)
	}
	s, _ := newSyncService(t, fc)
	ctx := context.Background()

	_, err := s.Sync(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, err.Error(), "pull:")

	cursor, err := metadata.NewSQLiteRepository(s.db).GetInt64(ctx, metadata.KeyCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cursor, "pages applied before the failure are kept")
}

func TestApply_IgnoresUnknownKinds(t *testing.T) {
	db := setupDB(t)
	repo := entities.NewSQLiteRepository(db)

	ok, err := apply(context.Background(), repo, &models.Delta{Entity: "note", EntityID: "n1", Op: models.OpUpsert, TS: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatus_Fresh(t *testing.T) {
	s := NewSyncService(&fakeClient{}, setupDB(t), "dev1", nil)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{}, st)
}
