package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, storage_key, content_hash, filename, content_type, size, status, version, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.StorageKey,
		&d.ContentHash,
		&d.Filename,
		&d.ContentType,
		&d.Size,
		&d.Status,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, storage_key, content_hash, filename, content_type, size, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.StorageKey,
		doc.ContentHash,
		doc.Filename,
		doc.ContentType,
		doc.Size,
		doc.Status,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// UpdateCAS rewrites the mutable fields guarded by the expected version.
// Version bump and status are written in one statement so readers never
// observe one without the other.
func (r *DocumentPostgres) UpdateCAS(ctx context.Context, doc *model.Document, expectedVersion int64) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET storage_key = $1,
		    content_hash = $2,
		    filename = $3,
		    content_type = $4,
		    size = $5,
		    status = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8 AND version = $9
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.StorageKey,
		doc.ContentHash,
		doc.Filename,
		doc.ContentType,
		doc.Size,
		doc.Status,
		doc.UpdatedAt,
		doc.ID,
		expectedVersion,
	)
	out, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrVersionMismatch
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus advances the lifecycle status guarded by the current status.
// The version column is left untouched; only Update bumps it.
func (r *DocumentPostgres) SetStatus(ctx context.Context, id string, from, to model.DocumentStatus) error {
	if !from.CanTransition(to) {
		return repository.ErrStatusConflict
	}
	const q = `
		UPDATE documents
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrStatusConflict
	}
	return nil
}

// List returns documents in the given status using LIMIT/OFFSET pagination
// and a total count.
func (r *DocumentPostgres) List(ctx context.Context, status model.DocumentStatus, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE status = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, status).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, status, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}
