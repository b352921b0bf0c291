package client

import (
	"context"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
)

// Client is the sync server API as seen from a device.
type Client interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Push(ctx context.Context, deviceID string, deltas []*models.Delta) (*PushResult, error)
	Pull(ctx context.Context, deviceID string, cursor int64) (*PullResult, error)
	SetAccessToken(token string)
}

type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type FailedDelta struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type PushResult struct {
	Acked         []string      `json:"acked"`
	LastServerSeq int64         `json:"last_server_seq"`
	Failed        []FailedDelta `json:"failed,omitempty"`
}

type PullResult struct {
	Cursor int64           `json:"cursor"`
	Deltas []*models.Delta `json:"deltas"`
}
