package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/entities"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
)

// PushBatchSize caps the number of deltas sent in one push request.
const PushBatchSize = 500

// SyncReport summarizes one Sync run.
type SyncReport struct {
	Pushed  int
	Failed  []client.FailedDelta
	Pulled  int
	Applied int
	Cursor  int64
}

// Status describes the local replica.
type Status struct {
	UserID     string
	Username   string
	LoggedIn   bool
	Pending    int
	Cursor     int64
	LastSyncAt time.Time
}

type SyncService interface {
	Sync(ctx context.Context) (*SyncReport, error)
	Status(ctx context.Context) (*Status, error)
}

type syncService struct {
	client   client.Client
	db       *sql.DB
	deviceID string
	log      logging.Logger
	now      func() time.Time
}

func NewSyncService(c client.Client, db *sql.DB, deviceID string, log logging.Logger) SyncService {
	if log == nil {
		log = logging.Nop{}
	}
	return &syncService{client: c, db: db, deviceID: deviceID, log: log.With("module", "sync"), now: time.Now}
}

// Sync pushes the outbox, then drains the server log past the stored
// cursor. A failed push aborts the run before pulling.
func (s *syncService) Sync(ctx context.Context) (*SyncReport, error) {
	sess, err := NewAuthService(s.client, s.db).Session(ctx)
	if err != nil {
		return nil, err
	}
	s.client.SetAccessToken(sess.Token)

	report := &SyncReport{}
	if err := s.push(ctx, sess.UserID, report); err != nil {
		return report, fmt.Errorf("push: %w", err)
	}
	if err := s.pull(ctx, report); err != nil {
		return report, fmt.Errorf("pull: %w", err)
	}

	if err := metadata.NewSQLiteRepository(s.db).SetInt64(ctx, metadata.KeyLastSyncAt, s.now().UnixMilli()); err != nil {
		return report, err
	}

	s.log.Info(ctx, "sync finished",
		"pushed", report.Pushed, "failed", len(report.Failed), "pulled", report.Pulled, "cursor", report.Cursor)
	return report, nil
}

func (s *syncService) push(ctx context.Context, userID string, report *SyncReport) error {
	box := outbox.NewSQLiteRepository(s.db)

	// Keyset paging keeps deltas the server rejected from being resent
	// within the same run.
	var after string
	for {
		batch, err := box.Pending(ctx, userID, after, PushBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		after = batch[len(batch)-1].ID

		res, err := s.client.Push(ctx, s.deviceID, batch)
		if err != nil {
			return err
		}

		if err := box.MarkSent(ctx, res.Acked, res.LastServerSeq, s.now().UnixMilli()); err != nil {
			return err
		}
		report.Pushed += len(res.Acked)
		report.Failed = append(report.Failed, res.Failed...)

		for _, f := range res.Failed {
			s.log.Warn(ctx, "delta rejected", "delta_id", f.ID, "reason", f.Reason)
		}
	}
}

func (s *syncService) pull(ctx context.Context, report *SyncReport) error {
	cursor, err := metadata.NewSQLiteRepository(s.db).GetInt64(ctx, metadata.KeyCursor)
	if err != nil {
		return err
	}

	for {
		page, err := s.client.Pull(ctx, s.deviceID, cursor)
		if err != nil {
			return err
		}
		if len(page.Deltas) == 0 || page.Cursor <= cursor {
			report.Cursor = cursor
			return nil
		}

		applied := 0
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := entities.NewSQLiteRepository(tx)
			for _, d := range page.Deltas {
				ok, err := apply(ctx, repo, d)
				if err != nil {
					return fmt.Errorf("apply %s: %w", d.ID, err)
				}
				if ok {
					applied++
				}
			}
			return metadata.NewSQLiteRepository(tx).SetInt64(ctx, metadata.KeyCursor, page.Cursor)
		})
		if err != nil {
			return err
		}

		report.Pulled += len(page.Deltas)
		report.Applied += applied
		cursor = page.Cursor
	}
}

// apply merges a remote delta into the replica, last writer wins. It
// reports whether the stored record changed.
func apply(ctx context.Context, repo entities.Repository, d *models.Delta) (bool, error) {
	if !d.Entity.Valid() || !d.Op.Valid() {
		return false, nil
	}

	existing, err := repo.Get(ctx, d.Entity, d.EntityID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		existing = nil
	case err != nil:
		return false, err
	}

	if existing != nil && !existing.Newer(d.TS, d.ServerSeq) {
		return false, nil
	}

	rec := &models.Record{
		Entity:    d.Entity,
		EntityID:  d.EntityID,
		Payload:   d.Payload,
		TS:        d.TS,
		ServerSeq: d.ServerSeq,
	}
	if d.Op == models.OpDelete {
		rec.Deleted = true
		if existing != nil {
			rec.Payload = existing.Payload
		}
	}
	return true, repo.Put(ctx, rec)
}

func (s *syncService) Status(ctx context.Context) (*Status, error) {
	meta := metadata.NewSQLiteRepository(s.db)
	st := &Status{}

	var err error
	if st.UserID, err = meta.GetString(ctx, metadata.KeyUserID); err != nil {
		return nil, err
	}
	if st.Username, err = meta.GetString(ctx, metadata.KeyUsername); err != nil {
		return nil, err
	}
	token, err := meta.GetString(ctx, metadata.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	st.LoggedIn = token != ""

	if st.Cursor, err = meta.GetInt64(ctx, metadata.KeyCursor); err != nil {
		return nil, err
	}
	last, err := meta.GetInt64(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return nil, err
	}
	if last > 0 {
		st.LastSyncAt = time.UnixMilli(last)
	}

	if st.UserID != "" {
		if st.Pending, err = outbox.NewSQLiteRepository(s.db).CountPending(ctx, st.UserID); err != nil {
			return nil, err
		}
	}
	return st, nil
}
