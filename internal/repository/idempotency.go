package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// IdempotencyLedger is the durable fingerprint-to-document mapping that
// deduplicates retried uploads. Reserve is the single serialization point for
// concurrent requests presenting the same fingerprint: exactly one caller wins.
type IdempotencyLedger interface {
	// Lookup returns the entry for a fingerprint, or sql.ErrNoRows on a miss.
	Lookup(ctx context.Context, fingerprint string) (*model.IdempotencyEntry, error)

	// Reserve atomically inserts a PENDING entry for the fingerprint. It
	// reports true when this caller won the reservation; false when another
	// caller already holds it. Implementations must use an atomic
	// compare-and-insert (unique-constraint insert).
	Reserve(ctx context.Context, fingerprint, documentID string, ttl time.Duration) (bool, error)

	// Advance mirrors the document's current status onto the ledger entry.
	Advance(ctx context.Context, fingerprint string, status model.DocumentStatus) error

	// Release removes an entry so the fingerprint can be reserved again.
	// Used when the entry points at a DELETED document.
	Release(ctx context.Context, fingerprint string) error

	// Evict removes entries whose expiry is before the given time. Stale
	// fingerprints must not permanently block re-upload of different content.
	Evict(ctx context.Context, before time.Time) (int64, error)
}
