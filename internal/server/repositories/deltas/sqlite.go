package deltas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

// SQLiteRepository implements Repository for the embedded SQLite backend.
// SQLite admits a single writer at a time, so inserts are already
// serialized; AUTOINCREMENT guarantees a sequence value is never reused.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, d *models.Delta) (int64, bool, error) {
	query := `
		INSERT INTO deltas (id, user_id, device_id, entity, entity_id, op, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
		RETURNING server_seq`

	var seq int64
	err := r.db.QueryRowContext(ctx, query,
		d.ID, d.UserID, d.DeviceID, string(d.Entity), d.EntityID, string(d.Op),
		string(d.PayloadOrEmpty()), d.TS,
	).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	return seq, true, nil
}

func (r *SQLiteRepository) MaxSeq(ctx context.Context, userID string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(server_seq), 0) FROM deltas WHERE user_id = ?`, userID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) Range(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.Delta, error) {
	query := `
		SELECT server_seq, id, user_id, device_id, entity, entity_id, op, payload, ts
		FROM deltas
		WHERE user_id = ? AND server_seq > ?
		ORDER BY server_seq ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select deltas: %w", err)
	}
	defer rows.Close()

	return scanDeltas(rows, limit)
}
