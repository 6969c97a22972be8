package in

import (
	"context"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// HistoryResult reports the outcome of an undo or redo.
type HistoryResult struct {
	Item *domain.HistoryItem `json:"item,omitempty"`
	// Warnings lists per-entity apply failures from a batch action; the
	// operation as a whole still succeeded (partial application).
	Warnings []string `json:"warnings,omitempty"`
}

// HistoryService is the inbound surface of the undo/redo engine.
type HistoryService interface {
	// Undo reverts the most recent applied action. Returns nil when there is
	// nothing to undo, or common.ErrHistoryExpired when the candidate action
	// is past its window (the pointer does not move in that case).
	Undo(ctx context.Context, userID uuid.UUID) (*HistoryResult, error)

	// Redo re-applies the most recently undone action.
	Redo(ctx context.Context, userID uuid.UUID) (*HistoryResult, error)

	// History lists the in-memory stack, most recent last, and the current
	// pointer position.
	History(ctx context.Context, userID uuid.UUID) ([]*domain.HistoryItem, int, error)
}

// ResolveResult reports the outcome of a manual conflict resolution. When a
// third writer raced the resolution, Conflict carries the new conflict now
// parked in the pending slot.
type ResolveResult struct {
	EntityKind domain.EntityKind      `json:"entity_kind"`
	Record     domain.Record          `json:"record,omitempty"`
	Conflict   *domain.ConflictRecord `json:"conflict,omitempty"`
}

// ConflictService exposes manual resolution of the pending conflict.
type ConflictService interface {
	// PendingConflict returns the conflict awaiting resolution, or nil.
	PendingConflict(ctx context.Context, userID uuid.UUID) (*domain.ConflictRecord, error)

	// ResolveConflict applies the decision to the parked conflict and
	// re-issues the write against the remote version.
	ResolveConflict(ctx context.Context, userID uuid.UUID, conflictID string, res *domain.Resolution) (*ResolveResult, error)

	// CancelConflict abandons the parked conflict; the original mutation is
	// treated as failed.
	CancelConflict(ctx context.Context, userID uuid.UUID, conflictID string) error
}
