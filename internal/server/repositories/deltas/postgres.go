package deltas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/dbx"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
//
// Append takes a transaction-scoped advisory lock keyed by the owner, so it
// must run inside a transaction: concurrent appends of the same user then
// commit in server_seq order and a pull can never observe seq N+1 before N.
// Different users do not contend.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, d *models.Delta) (int64, bool, error) {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, d.UserID); err != nil {
		return 0, false, fmt.Errorf("lock error: %w", err)
	}

	query := `
		INSERT INTO deltas (id, user_id, device_id, entity, entity_id, op, payload, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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

func (r *PostgresRepository) MaxSeq(ctx context.Context, userID string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(server_seq), 0) FROM deltas WHERE user_id = $1`, userID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}

func (r *PostgresRepository) Range(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.Delta, error) {
	query := `
		SELECT server_seq, id, user_id, device_id, entity, entity_id, op, payload, ts
		FROM deltas
		WHERE user_id = $1 AND server_seq > $2
		ORDER BY server_seq ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select deltas: %w", err)
	}
	defer rows.Close()

	return scanDeltas(rows, limit)
}
