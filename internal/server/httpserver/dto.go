package httpserver

import "github.com/dmitrijs2005/nibblelog/internal/server/models"

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type pushRequest struct {
	DeviceID string          `json:"device_id"`
	Deltas   []*models.Delta `json:"deltas"`
}

type failedDelta struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type pushResponse struct {
	Acked         []string      `json:"acked"`
	LastServerSeq int64         `json:"last_server_seq"`
	Failed        []failedDelta `json:"failed,omitempty"`
}

type pullResponse struct {
	Cursor int64           `json:"cursor"`
	Deltas []*models.Delta `json:"deltas"`
}
