package model

import "time"

// IdempotencyEntry maps a request fingerprint to the document it resolved to.
// The mirrored status decides how a retried upload is answered: replay,
// wait-for-winner, or resume.
type IdempotencyEntry struct {
	Fingerprint string         `json:"fingerprint"`
	DocumentID  string         `json:"document_id"`
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// Expired reports whether the entry is past its retention window and
// eligible for eviction.
func (e *IdempotencyEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
