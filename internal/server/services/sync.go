// Package services contains the server-side business logic: pushing deltas
// into the log, pulling them back out, and issuing access tokens.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/metrics"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
	"github.com/dmitrijs2005/nibblelog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nibblelog/internal/server/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FailedDelta names a pushed delta that was not stored.
type FailedDelta struct {
	ID     string
	Reason string
}

// PushResult is the outcome of one push. Acked holds the ids the client may
// drop from its outbox, in batch order. LastServerSeq is the caller's
// high-water mark read after the batch was applied.
type PushResult struct {
	Acked         []string
	Failed        []FailedDelta
	LastServerSeq int64
	Results       []models.DeltaResult
}

type PullResult struct {
	Cursor int64
	Deltas []*models.Delta
}

type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pageLimit   int
	log         logging.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// NewSyncService builds the service over store. A nil store is accepted;
// every call then fails with common.ErrStoreUnavailable.
func NewSyncService(store *storage.Store, pageLimit int, log logging.Logger, m *metrics.Metrics) *SyncService {
	if pageLimit <= 0 {
		pageLimit = common.DefaultPullPageLimit
	}
	if log == nil {
		log = logging.Nop{}
	}
	s := &SyncService{
		pageLimit: pageLimit,
		log:       log.With("module", "sync"),
		metrics:   m,
		tracer:    otel.Tracer("github.com/dmitrijs2005/nibblelog/internal/server/services"),
	}
	if store != nil {
		s.db = store.DB
		s.repomanager = store.Manager
	}
	return s
}

func (s *SyncService) available() bool {
	return s.db != nil && s.repomanager != nil
}

// Push appends batch to the log on behalf of userID.
//
// Every delta must belong to userID; otherwise nothing is written and
// common.ErrForbidden is returned. Each remaining delta is appended on its
// own, so a failure of one does not affect the others. Duplicates are acked
// without changing the log.
func (s *SyncService) Push(ctx context.Context, userID, deviceID string, batch []*models.Delta) (*PushResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync.push", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("device_id", deviceID),
		attribute.Int("batch_size", len(batch)),
	))
	defer span.End()

	if !s.available() {
		span.SetStatus(codes.Error, common.ErrStoreUnavailable.Error())
		return nil, common.ErrStoreUnavailable
	}

	for _, d := range batch {
		if d != nil && d.UserID != userID {
			s.metrics.ObservePush("forbidden", 0, 0, 0)
			s.log.Warn(ctx, "push rejected: foreign delta", "user_id", userID, "delta_id", d.ID, "owner", d.UserID)
			span.SetStatus(codes.Error, common.ErrForbidden.Error())
			return nil, common.ErrForbidden
		}
	}

	res := &PushResult{
		Acked:   make([]string, 0, len(batch)),
		Results: make([]models.DeltaResult, 0, len(batch)),
	}
	var accepted, duplicate int

	for _, d := range batch {
		r := s.appendOne(ctx, deviceID, d)
		res.Results = append(res.Results, r)

		switch r.Status {
		case models.StatusAccepted:
			accepted++
		case models.StatusDuplicate:
			duplicate++
		}
		if r.Acked() {
			res.Acked = append(res.Acked, r.ID)
		} else {
			res.Failed = append(res.Failed, FailedDelta{ID: r.ID, Reason: r.Reason})
		}
	}

	last, err := s.repomanager.Deltas(s.db).MaxSeq(ctx, userID)
	if err != nil {
		s.metrics.ObservePush("error", accepted, duplicate, len(res.Failed))
		span.RecordError(err)
		span.SetStatus(codes.Error, "max seq")
		return nil, fmt.Errorf("read high-water mark: %w", err)
	}
	res.LastServerSeq = last

	outcome := "ok"
	if len(res.Failed) > 0 {
		outcome = "partial"
	}
	s.metrics.ObservePush(outcome, accepted, duplicate, len(res.Failed))

	span.SetAttributes(
		attribute.Int("acked", len(res.Acked)),
		attribute.Int("failed", len(res.Failed)),
		attribute.Int64("last_server_seq", last),
	)
	s.log.Info(ctx, "push applied",
		"user_id", userID, "device_id", deviceID,
		"accepted", accepted, "duplicate", duplicate, "failed", len(res.Failed),
		"last_server_seq", last)

	return res, nil
}

func (s *SyncService) appendOne(ctx context.Context, deviceID string, d *models.Delta) models.DeltaResult {
	if d == nil {
		return models.DeltaResult{Status: models.StatusFailed, Reason: "empty delta"}
	}
	if d.DeviceID == "" {
		d.DeviceID = deviceID
	}
	if err := d.Validate(); err != nil {
		return models.DeltaResult{ID: d.ID, Status: models.StatusFailed, Reason: err.Error()}
	}

	var (
		seq      int64
		inserted bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		seq, inserted, err = s.repomanager.Deltas(tx).Append(ctx, d)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "append failed", "delta_id", d.ID, "user_id", d.UserID, "error", err)
		return models.DeltaResult{ID: d.ID, Status: models.StatusFailed, Reason: "storage error"}
	}

	if !inserted {
		return models.DeltaResult{ID: d.ID, Status: models.StatusDuplicate}
	}
	d.ServerSeq = seq
	return models.DeltaResult{ID: d.ID, Status: models.StatusAccepted, ServerSeq: seq}
}

// Pull returns the next page of userID's deltas after cursor, ascending by
// server_seq. The returned cursor is the last seq of the page, or the input
// cursor when the page is empty.
func (s *SyncService) Pull(ctx context.Context, userID, deviceID string, cursor int64) (*PullResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync.pull", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("device_id", deviceID),
		attribute.Int64("cursor", cursor),
	))
	defer span.End()

	if !s.available() {
		span.SetStatus(codes.Error, common.ErrStoreUnavailable.Error())
		return nil, common.ErrStoreUnavailable
	}
	if cursor < 0 {
		cursor = 0
	}

	deltas, err := s.repomanager.Deltas(s.db).Range(ctx, userID, cursor, s.pageLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "range")
		return nil, err
	}

	next := cursor
	for _, d := range deltas {
		next = max(next, d.ServerSeq)
	}

	s.metrics.ObservePull(len(deltas))
	span.SetAttributes(attribute.Int("returned", len(deltas)), attribute.Int64("next_cursor", next))
	s.log.Debug(ctx, "pull served", "user_id", userID, "device_id", deviceID, "cursor", cursor, "returned", len(deltas))

	return &PullResult{Cursor: next, Deltas: deltas}, nil
}
