package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

var (
	// ErrVersionMismatch is returned by compare-and-swap updates when the
	// expected version no longer matches the stored row.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrStatusConflict is returned by guarded status transitions when the
	// row is no longer in the expected source status.
	ErrStatusConflict = errors.New("status conflict")
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
