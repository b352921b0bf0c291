// Package models defines the records the device client keeps locally and
// exchanges with the sync server.
package models

import "encoding/json"

// Entity names the kind of object a delta targets.
type Entity string

const (
	EntityCategory Entity = "category"
	EntityActivity Entity = "activity"
)

// Valid reports whether e is one of the known entity kinds.
func (e Entity) Valid() bool {
	return e == EntityCategory || e == EntityActivity
}

// Op is the kind of edit a delta carries.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

func (o Op) Valid() bool {
	return o == OpUpsert || o == OpDelete
}

// Delta is one local edit as it travels through the outbox and over the
// wire. ServerSeq is set by the server; SentAt is local bookkeeping and is
// never sent.
type Delta struct {
	ServerSeq int64           `json:"server_seq,omitempty"`
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	DeviceID  string          `json:"device_id"`
	Entity    Entity          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Op        Op              `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	TS        int64           `json:"ts"`
	SentAt    int64           `json:"-"`
}
