package model

import "time"

// Document represents one stored file and its lifecycle state.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID          string         `json:"id"`
	StorageKey  string         `json:"storage_key"`
	ContentHash string         `json:"content_hash"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Visible reports whether the document may be returned to readers.
// Partial or failed uploads are never visible.
func (d *Document) Visible() bool {
	return d.Status == StatusMetadataRegistered
}
