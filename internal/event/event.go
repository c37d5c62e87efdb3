package event

import (
	"context"

	"docvault/internal/model"
)

// Package event contains the lifecycle event publishing abstraction.
// Publishing is best-effort from the orchestrator's perspective: a failed
// publish is logged and reconciled out of band, never surfaced to the caller.

// Publisher announces document state transitions on the message broker.
type Publisher interface {
	// Publish sends one event routed by its Type. Delivery is at-least-once.
	Publish(ctx context.Context, ev *model.Event) error
	// Close releases broker resources.
	Close() error
}
