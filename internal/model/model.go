package model

// Package model contains domain models/data structures.
// No business logic beyond simple state predicates lives here.

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	// StatusPending marks a record accepted but not yet written to object storage.
	StatusPending DocumentStatus = "PENDING"
	// StatusStored marks the blob as durably written; metadata registration is outstanding.
	StatusStored DocumentStatus = "STORED"
	// StatusMetadataRegistered is the only state readers may observe.
	StatusMetadataRegistered DocumentStatus = "METADATA_REGISTERED"
	// StatusFailed marks a blob or metadata write failure; the same fingerprint may retry.
	StatusFailed DocumentStatus = "FAILED"
	// StatusDeleted is terminal; no further transitions are permitted.
	StatusDeleted DocumentStatus = "DELETED"
)

// Terminal reports whether the status admits no further transitions
// other than delete (METADATA_REGISTERED) or nothing at all (DELETED).
func (s DocumentStatus) Terminal() bool {
	return s == StatusMetadataRegistered || s == StatusDeleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal step
// of the lifecycle state machine. Regressions are only allowed as
// FAILED -> PENDING (retry with the same fingerprint).
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusStored || next == StatusFailed
	case StatusStored:
		return next == StatusMetadataRegistered || next == StatusFailed
	case StatusMetadataRegistered:
		return next == StatusDeleted || next == StatusFailed
	case StatusFailed:
		return next == StatusPending || next == StatusDeleted
	default:
		return false
	}
}
