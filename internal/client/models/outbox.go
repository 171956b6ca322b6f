package models

import (
	"encoding/json"
	"time"
)

// OutboxEntry is a locally created record waiting to be pushed.
type OutboxEntry struct {
	// LocalID is the auto-increment key in the outbox table.
	LocalID int64

	// IdempotencyKey is generated on enqueue and sent with every push attempt.
	IdempotencyKey string

	// Payload is the JSON-serialized record.
	Payload json.RawMessage

	IsSynced bool

	// RemoteID is set once the server acknowledged the record.
	RemoteID *int64

	CreatedAt time.Time
}

// Report decodes the payload as a report body. Bookkeeping fields are not
// part of the payload, so the result is ready to send.
func (e OutboxEntry) Report() (Report, error) {
	var r Report
	err := json.Unmarshal(e.Payload, &r)
	return r, err
}

// bookkeepingFields are local-only keys that must never reach the server.
var bookkeepingFields = []string{"id", "local_id", "remote_id", "status", "is_synced", "_status", "_changed"}

// StrippedPayload returns the payload with local bookkeeping keys removed.
func (e OutboxEntry) StrippedPayload() (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Payload, &fields); err != nil {
		return nil, err
	}
	for _, k := range bookkeepingFields {
		delete(fields, k)
	}
	return json.Marshal(fields)
}
