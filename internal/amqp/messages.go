package amqp

import (
	"encoding/json"
	"time"
)

// Record event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordEvent is a lightweight notification that a user's collection changed.
// It carries only identifiers; the worker fetches the current state from the
// store, so stale or reordered deliveries are harmless.
type RecordEvent struct {
	UID        string    `json:"uid"`
	Collection string    `json:"collection"`
	RecordID   string    `json:"recordId"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRecordEvent creates an event stamped with the current time.
func NewRecordEvent(uid, collection, recordID, action string) *RecordEvent {
	return &RecordEvent{
		UID:        uid,
		Collection: collection,
		RecordID:   recordID,
		Action:     action,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON creates an event from JSON bytes
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
