// Package metadata stores the device's small key/value settings: the access
// token, the signed-in user and the pull cursor.
package metadata

import "context"

// Well-known keys.
const (
	KeyAccessToken = "access_token"
	KeyUserID      = "user_id"
	KeyUsername    = "username"
	KeyCursor      = "cursor"
	KeyLastSyncAt  = "last_sync_at"
)

type Repository interface {
	// Get returns (nil, nil) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetInt64(ctx context.Context, key string) (int64, error)
	SetInt64(ctx context.Context, key string, value int64) error
}
