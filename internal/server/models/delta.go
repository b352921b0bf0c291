// Package models defines the server-side records persisted in the delta log.
package models

import (
	"encoding/json"
	"fmt"
)

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

// Valid reports whether o is one of the known operations.
func (o Op) Valid() bool {
	return o == OpUpsert || o == OpDelete
}

// Delta is a single client-authored edit. ServerSeq is zero until the delta
// has been accepted by the store; after that it never changes.
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
}

// Validate checks the fields the log relies on. The payload is opaque and
// only has to be well-formed JSON when present.
func (d *Delta) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("missing id")
	case !d.Entity.Valid():
		return fmt.Errorf("unknown entity %q", d.Entity)
	case !d.Op.Valid():
		return fmt.Errorf("unknown op %q", d.Op)
	case d.EntityID == "":
		return fmt.Errorf("missing entity_id")
	case len(d.Payload) > 0 && !json.Valid(d.Payload):
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

// PayloadOrEmpty returns the payload, substituting an empty JSON object for
// a missing or null one.
func (d *Delta) PayloadOrEmpty() json.RawMessage {
	if len(d.Payload) == 0 || string(d.Payload) == "null" {
		return json.RawMessage(`{}`)
	}
	return d.Payload
}
