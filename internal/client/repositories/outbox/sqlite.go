package outbox

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, d *models.Delta) error {
	payload := string(d.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (id, user_id, device_id, entity, entity_id, op, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.DeviceID, string(d.Entity), d.EntityID, string(d.Op), payload, d.TS)
	if err != nil {
		return fmt.Errorf("failed to enqueue delta %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Pending(ctx context.Context, userID, afterID string, limit int) ([]*models.Delta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, device_id, entity, entity_id, op, payload, ts
		FROM outbox
		WHERE user_id = ? AND sent_at IS NULL AND id > ?
		ORDER BY id
		LIMIT ?`, userID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending deltas: %w", err)
	}
	defer rows.Close()

	var out []*models.Delta
	for rows.Next() {
		var (
			d       models.Delta
			entity  string
			op      string
			payload string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.DeviceID, &entity, &d.EntityID, &op, &payload, &d.TS); err != nil {
			return nil, fmt.Errorf("failed to scan delta: %w", err)
		}
		d.Entity = models.Entity(entity)
		d.Op = models.Op(op)
		d.Payload = []byte(payload)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSent(ctx context.Context, ids []string, serverSeq, sentAt int64) error {
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`UPDATE outbox SET sent_at = ?, server_seq = ? WHERE id = ?`, sentAt, serverSeq, id)
		if err != nil {
			return fmt.Errorf("failed to mark delta %s sent: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE user_id = ? AND sent_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending deltas: %w", err)
	}
	return n, nil
}
