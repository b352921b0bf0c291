// Package entities keeps the materialized categories and activities the
// device has seen, local edits and remote deltas alike.
package entities

import (
	"context"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the entity has never been seen.
	Get(ctx context.Context, entity models.Entity, entityID string) (*models.Record, error)
	Put(ctx context.Context, r *models.Record) error
	List(ctx context.Context, entity models.Entity, includeDeleted bool) ([]*models.Record, error)
	Clear(ctx context.Context) error
}
