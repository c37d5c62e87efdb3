package metadata

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// Package metadata contains the client for the external metadata service.
// The service owns descriptive document attributes; this package only speaks
// its REST contract and carries no business logic.

// ErrMetadataNotFound is returned when the service has no record for the document.
var ErrMetadataNotFound = errors.New("metadata not found")

// Client is the narrow contract consumed by the orchestrator.
type Client interface {
	// Create registers attributes for a new document.
	Create(ctx context.Context, md *model.Metadata) error
	// Get fetches attributes by document ID; ErrMetadataNotFound when absent.
	Get(ctx context.Context, documentID string) (*model.Metadata, error)
	// Update replaces the mutable attributes of an existing record.
	Update(ctx context.Context, md *model.Metadata) error
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, documentID string) error
	// List returns a page of records.
	List(ctx context.Context, limit, offset int) ([]model.Metadata, error)
}
