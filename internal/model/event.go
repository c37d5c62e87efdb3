package model

import "time"

// Lifecycle event types published to the message broker. The routing key
// equals the event type.
const (
	EventDocumentCreated = "document.created"
	EventDocumentUpdated = "document.updated"
	EventDocumentDeleted = "document.deleted"
)

// Event announces one document state transition to downstream consumers
// (indexers, notifiers, audit logs). Delivery is at-least-once; consumers
// deduplicate on DocumentID+Version.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	DocumentID string         `json:"document_id"`
	StorageKey string         `json:"storage_key"`
	Status     DocumentStatus `json:"status"`
	Version    int64          `json:"version"`
	OccurredAt time.Time      `json:"occurred_at"`
}
