package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType - kind of recorded user mutation
type ActionType string

const (
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
	ActionMove     ActionType = "move"
	ActionComplete ActionType = "complete" // reserved, no inverse effect yet
)

// Valid reports whether the action type is a known variant.
func (a ActionType) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionMove, ActionComplete:
		return true
	}
	return false
}

// HistoryTTL is the window within which a recorded action stays undoable.
const HistoryTTL = 2 * time.Hour

// MovePlacement records one entity's position change within a move action.
type MovePlacement struct {
	ID int64 `json:"id"`

	OldParentID *int64 `json:"old_parent_id,omitempty"`
	OldPosition int    `json:"old_position"`

	NewParentID *int64 `json:"new_parent_id,omitempty"`
	NewPosition int    `json:"new_position"`
}

// ActionPayload holds the per-action data needed to invert or replay a
// mutation. Which fields are set depends on the action type:
//   - create/delete: Snapshots carries the full record(s)
//   - update: Before is the pre-image, After the post-image (set once applied)
//   - move: Moves carries per-id original and new placements
type ActionPayload struct {
	Snapshots []Record        `json:"snapshots,omitempty"`
	Before    Record          `json:"before,omitempty"`
	After     Record          `json:"after,omitempty"`
	Moves     []MovePlacement `json:"moves,omitempty"`
}

// HistoryItem is one entry in the undo/redo log. Never mutated after
// creation; becomes unusable (but is not deleted) after ExpiresAt.
type HistoryItem struct {
	ID         string        `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	Action     ActionType    `json:"action"`
	EntityKind EntityKind    `json:"entity_kind"`
	Payload    ActionPayload `json:"payload"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// NewHistoryItem wraps a payload with identity and expiry metadata.
func NewHistoryItem(userID uuid.UUID, action ActionType, kind EntityKind, payload ActionPayload) *HistoryItem {
	now := time.Now()
	return &HistoryItem{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		EntityKind: kind,
		Payload:    payload,
		CreatedAt:  now,
		ExpiresAt:  now.Add(HistoryTTL),
	}
}

// Expired reports whether the item is past its undo window.
func (h *HistoryItem) Expired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}
