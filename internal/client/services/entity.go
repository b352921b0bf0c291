package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/entities"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// AppVersion is stamped on activities created by this client.
const AppVersion = "nibblelog-cli/1"

// ActivityInput carries the user-editable fields of a new activity.
type ActivityInput struct {
	CategoryID  string
	Description *string
	Amount      *float64
	Score       *int
	Lat         *float64
	Lng         *float64
}

type EntityService interface {
	// Record applies an edit to the local replica and queues it for push,
	// atomically.
	Record(ctx context.Context, entity models.Entity, entityID string, op models.Op, payload json.RawMessage) (*models.Delta, error)

	AddCategory(ctx context.Context, name string, color *string) (*models.Category, error)
	AddActivity(ctx context.Context, in ActivityInput) (*models.Activity, error)
	Delete(ctx context.Context, entity models.Entity, entityID string) error
	Categories(ctx context.Context) ([]*models.Category, error)
	Activities(ctx context.Context) ([]*models.Activity, error)
}

type entityService struct {
	db       *sql.DB
	deviceID string
	now      func() time.Time
}

func NewEntityService(db *sql.DB, deviceID string) EntityService {
	return &entityService{db: db, deviceID: deviceID, now: time.Now}
}

func (s *entityService) Record(ctx context.Context, entity models.Entity, entityID string, op models.Op, payload json.RawMessage) (*models.Delta, error) {
	return s.record(ctx, s.now().UnixMilli(), entity, entityID, op, payload)
}

func (s *entityService) record(ctx context.Context, ts int64, entity models.Entity, entityID string, op models.Op, payload json.RawMessage) (*models.Delta, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	if !op.Valid() {
		return nil, fmt.Errorf("unknown op %q", op)
	}
	if entityID == "" {
		return nil, fmt.Errorf("missing entity id")
	}

	userID, err := metadata.NewSQLiteRepository(s.db).GetString(ctx, metadata.KeyUserID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrNotLoggedIn
	}

	d := &models.Delta{
		ID:       ulid.Make().String(),
		UserID:   userID,
		DeviceID: s.deviceID,
		Entity:   entity,
		EntityID: entityID,
		Op:       op,
		Payload:  payload,
		TS:       ts,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := entities.NewSQLiteRepository(tx)

		rec := &models.Record{Entity: entity, EntityID: entityID, Payload: payload, TS: ts}
		if op == models.OpDelete {
			rec.Deleted = true
			existing, err := repo.Get(ctx, entity, entityID)
			switch {
			case err == nil:
				rec.Payload = existing.Payload
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
		}

		if err := repo.Put(ctx, rec); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).Enqueue(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("record %s %s: %w", entity, entityID, err)
	}
	return d, nil
}

func (s *entityService) AddCategory(ctx context.Context, name string, color *string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	now := s.now().UnixMilli()
	c := &models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.upsert(ctx, now, models.EntityCategory, c.ID, c, &c.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *entityService) AddActivity(ctx context.Context, in ActivityInput) (*models.Activity, error) {
	cat, err := entities.NewSQLiteRepository(s.db).Get(ctx, models.EntityCategory, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", in.CategoryID, err)
	}
	if cat.Deleted {
		return nil, fmt.Errorf("category %s: %w", in.CategoryID, common.ErrorNotFound)
	}

	now := s.now().UnixMilli()
	a := &models.Activity{
		ID:          uuid.NewString(),
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Lat:         in.Lat,
		Lng:         in.Lng,
		AppVersion:  AppVersion,
		Description: in.Description,
		Amount:      in.Amount,
		Score:       in.Score,
	}
	if err := s.upsert(ctx, now, models.EntityActivity, a.ID, a, &a.UserID); err != nil {
		return nil, err
	}
	return a, nil
}

// upsert fills in the owner through userID, then records v as the payload.
func (s *entityService) upsert(ctx context.Context, ts int64, entity models.Entity, id string, v any, userID *string) error {
	uid, err := metadata.NewSQLiteRepository(s.db).GetString(ctx, metadata.KeyUserID)
	if err != nil {
		return err
	}
	if uid == "" {
		return ErrNotLoggedIn
	}
	*userID = uid

	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.record(ctx, ts, entity, id, models.OpUpsert, payload)
	return err
}

// Delete tombstones a live entity. Unknown or already deleted ids give
// common.ErrorNotFound.
func (s *entityService) Delete(ctx context.Context, entity models.Entity, entityID string) error {
	rec, err := entities.NewSQLiteRepository(s.db).Get(ctx, entity, entityID)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return common.ErrorNotFound
	}

	now := s.now().UnixMilli()
	payload, err := json.Marshal(models.Tombstone{DeletedAt: now})
	if err != nil {
		return err
	}
	_, err = s.record(ctx, now, entity, entityID, models.OpDelete, payload)
	return err
}

func (s *entityService) Categories(ctx context.Context) ([]*models.Category, error) {
	return listDecoded[models.Category](ctx, s.db, models.EntityCategory)
}

func (s *entityService) Activities(ctx context.Context) ([]*models.Activity, error) {
	return listDecoded[models.Activity](ctx, s.db, models.EntityActivity)
}

func listDecoded[T any](ctx context.Context, db dbx.DBTX, entity models.Entity) ([]*T, error) {
	recs, err := entities.NewSQLiteRepository(db).List(ctx, entity, false)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(recs))
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", entity, r.EntityID, err)
		}
		out = append(out, &v)
	}
	return out, nil
}
