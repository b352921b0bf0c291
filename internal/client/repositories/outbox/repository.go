// Package outbox persists deltas authored on this device until the server
// acknowledges them.
package outbox

import (
	"context"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
)

type Repository interface {
	Enqueue(ctx context.Context, d *models.Delta) error
	// Pending returns unsent deltas of userID with id > afterID, oldest first.
	Pending(ctx context.Context, userID, afterID string, limit int) ([]*models.Delta, error)
	// MarkSent stamps the given ids with sentAt and the server watermark.
	MarkSent(ctx context.Context, ids []string, serverSeq, sentAt int64) error
	CountPending(ctx context.Context, userID string) (int, error)
}
