package conflict

import (
	"sync"

	"sync_server/core/domain"
	"sync_server/core/service/common"

	"github.com/google/uuid"
)

// PendingSlot is the single-occupancy holding area for a conflict awaiting
// manual resolution. A second conflict arriving while one is unresolved is
// rejected rather than racing the resolution UI.
type PendingSlot struct {
	mu      sync.Mutex
	current *domain.ConflictRecord
}

// NewPendingSlot creates an empty slot.
func NewPendingSlot() *PendingSlot {
	return &PendingSlot{}
}

// Hold parks a conflict in the slot. Returns common.ErrResolutionPending
// when another conflict is already held.
func (s *PendingSlot) Hold(c *domain.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return common.ErrResolutionPending
	}
	s.current = c
	return nil
}

// Get returns the held conflict, or nil when the slot is empty.
func (s *PendingSlot) Get() *domain.ConflictRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Take removes and returns the held conflict iff its id matches.
func (s *PendingSlot) Take(conflictID string) *domain.ConflictRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != conflictID {
		return nil
	}
	c := s.current
	s.current = nil
	return c
}

// Release frees the slot if it holds the given conflict.
func (s *PendingSlot) Release(conflictID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == conflictID {
		s.current = nil
	}
}

// Slots hands out one pending slot per user. A conflict parked by one user is
// invisible to every other user, and one user's unresolved conflict never
// blocks another user's writes.
type Slots struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*PendingSlot
}

// NewSlots creates an empty per-user slot registry.
func NewSlots() *Slots {
	return &Slots{slots: make(map[uuid.UUID]*PendingSlot)}
}

// ForUser returns the user's slot, creating it on first use.
func (s *Slots) ForUser(userID uuid.UUID) *PendingSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[userID]
	if !ok {
		slot = NewPendingSlot()
		s.slots[userID] = slot
	}
	return slot
}
