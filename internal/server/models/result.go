package models

// DeltaStatus is the outcome of appending one pushed delta.
type DeltaStatus string

const (
	// StatusAccepted means a new row was written and a sequence assigned.
	StatusAccepted DeltaStatus = "accepted"
	// StatusDuplicate means the id already existed; nothing changed.
	StatusDuplicate DeltaStatus = "duplicate"
	// StatusFailed means the delta was not stored and is not acknowledged.
	StatusFailed DeltaStatus = "failed"
)

// DeltaResult reports what happened to one delta of a push batch.
type DeltaResult struct {
	ID        string
	Status    DeltaStatus
	ServerSeq int64
	Reason    string
}

// Acked reports whether the client may drop the delta from its outbox.
func (r DeltaResult) Acked() bool {
	return r.Status == StatusAccepted || r.Status == StatusDuplicate
}
