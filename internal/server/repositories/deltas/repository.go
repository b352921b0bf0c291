// Package deltas persists the append-only delta log. Rows are keyed by the
// client-generated id; server_seq is assigned by the database on insert.
package deltas

import (
	"context"

	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

// Repository is the delta log store.
type Repository interface {
	// Append inserts d unless a row with the same id exists. inserted is
	// false for such duplicates, which are not errors.
	Append(ctx context.Context, d *models.Delta) (seq int64, inserted bool, err error)
	// MaxSeq returns the highest server_seq owned by userID, or 0.
	MaxSeq(ctx context.Context, userID string) (int64, error)
	// Range returns up to limit deltas of userID with server_seq > afterSeq,
	// ascending by server_seq.
	Range(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.Delta, error)
}
