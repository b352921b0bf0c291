package models

import "encoding/json"

// Record is the materialized state of one entity after every known delta
// has been applied. TS and ServerSeq belong to the delta that last won.
type Record struct {
	Entity    Entity
	EntityID  string
	Payload   json.RawMessage
	TS        int64
	Deleted   bool
	ServerSeq int64
}

// Newer reports whether a delta stamped (ts, seq) should replace r.
// Later timestamps win; equal timestamps fall back to server order, so a
// delta the server has sequenced beats an unsynced local one.
func (r *Record) Newer(ts, seq int64) bool {
	if ts != r.TS {
		return ts > r.TS
	}
	return seq > r.ServerSeq
}

// Category is the payload of a category upsert.
type Category struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Color     *string `json:"color"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
	DeletedAt *int64  `json:"deleted_at"`
}

// Activity is the payload of an activity upsert.
type Activity struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	CategoryID  string   `json:"category_id"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	AppVersion  string   `json:"app_version"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Score       *int     `json:"score"`
	Metadata    *string  `json:"metadata"`
	DeletedAt   *int64   `json:"deleted_at"`
}

// Tombstone is the payload of a delete.
type Tombstone struct {
	DeletedAt int64 `json:"deleted_at"`
}
