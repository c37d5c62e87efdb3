package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository defines data access for document records using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record.
	// The caller provides all fields (ID, StorageKey, ContentHash, Status, Version, timestamps).
	// Returns the stored document (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID regardless of status.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// UpdateCAS replaces the mutable fields of a document only if the stored
	// version equals expectedVersion; on success the version is bumped by one
	// and the status written in the same statement. Returns ErrVersionMismatch
	// when the guard fails.
	UpdateCAS(ctx context.Context, doc *model.Document, expectedVersion int64) (*model.Document, error)

	// SetStatus transitions a document from one status to another without
	// touching the version. Returns ErrStatusConflict when the row is not in
	// the from status.
	SetStatus(ctx context.Context, id string, from, to model.DocumentStatus) error

	// List returns a paginated list of documents in the given status and the
	// total rows count for that status.
	List(ctx context.Context, status model.DocumentStatus, pq PageQuery) (*PageResult[model.Document], error)
}
