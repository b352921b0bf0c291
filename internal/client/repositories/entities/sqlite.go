package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectRecord = `SELECT entity, entity_id, payload, ts, deleted, server_seq FROM entities`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		r       models.Record
		entity  string
		payload string
	)
	if err := s.Scan(&entity, &r.EntityID, &payload, &r.TS, &r.Deleted, &r.ServerSeq); err != nil {
		return nil, err
	}
	r.Entity = models.Entity(entity)
	r.Payload = []byte(payload)
	return &r, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, entity models.Entity, entityID string) (*models.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		selectRecord+` WHERE entity = ? AND entity_id = ?`, string(entity), entityID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, entityID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Record) error {
	payload := string(rec.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entities (entity, entity_id, payload, ts, deleted, server_seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity, entity_id) DO UPDATE SET
			payload = excluded.payload,
			ts = excluded.ts,
			deleted = excluded.deleted,
			server_seq = excluded.server_seq`,
		string(rec.Entity), rec.EntityID, payload, rec.TS, rec.Deleted, rec.ServerSeq)
	if err != nil {
		return fmt.Errorf("failed to put %s %s: %w", rec.Entity, rec.EntityID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, entity models.Entity, includeDeleted bool) ([]*models.Record, error) {
	query := selectRecord + ` WHERE entity = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY ts DESC, entity_id`

	rows, err := r.db.QueryContext(ctx, query, string(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entity, err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}
	return nil
}
