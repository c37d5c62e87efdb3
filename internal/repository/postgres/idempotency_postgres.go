package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// IdempotencyPostgres is a PostgreSQL implementation of repository.IdempotencyLedger.
// Reservation relies on the unique fingerprint index: INSERT ... ON CONFLICT
// DO NOTHING lets exactly one concurrent caller win.
type IdempotencyPostgres struct {
	db *sql.DB
}

// NewIdempotencyPostgres creates a new IdempotencyPostgres ledger.
func NewIdempotencyPostgres(db *sql.DB) *IdempotencyPostgres {
	return &IdempotencyPostgres{db: db}
}

var _ repository.IdempotencyLedger = (*IdempotencyPostgres)(nil)

// Lookup fetches a ledger entry by fingerprint; sql.ErrNoRows on a miss.
func (r *IdempotencyPostgres) Lookup(ctx context.Context, fingerprint string) (*model.IdempotencyEntry, error) {
	const q = `
		SELECT fingerprint, document_id, status, created_at, expires_at
		FROM idempotency_keys
		WHERE fingerprint = $1
	`
	var e model.IdempotencyEntry
	if err := r.db.QueryRowContext(ctx, q, fingerprint).Scan(
		&e.Fingerprint,
		&e.DocumentID,
		&e.Status,
		&e.CreatedAt,
		&e.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

// Reserve inserts a PENDING entry; the unique index makes the insert a
// compare-and-set. Zero rows affected means another caller holds the key.
func (r *IdempotencyPostgres) Reserve(ctx context.Context, fingerprint, documentID string, ttl time.Duration) (bool, error) {
	const q = `
		INSERT INTO idempotency_keys (fingerprint, document_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, now(), now() + $4 * interval '1 second')
		ON CONFLICT (fingerprint) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q, fingerprint, documentID, model.StatusPending, int64(ttl.Seconds()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Advance mirrors the document status onto the ledger entry.
func (r *IdempotencyPostgres) Advance(ctx context.Context, fingerprint string, status model.DocumentStatus) error {
	const q = `UPDATE idempotency_keys SET status = $1 WHERE fingerprint = $2`
	_, err := r.db.ExecContext(ctx, q, status, fingerprint)
	return err
}

// Release removes an entry so the fingerprint can be reserved again.
func (r *IdempotencyPostgres) Release(ctx context.Context, fingerprint string) error {
	const q = `DELETE FROM idempotency_keys WHERE fingerprint = $1`
	_, err := r.db.ExecContext(ctx, q, fingerprint)
	return err
}

// Evict garbage-collects entries past their retention window.
func (r *IdempotencyPostgres) Evict(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM idempotency_keys WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
