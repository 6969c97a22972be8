// Package history implements the bounded, indexed undo/redo log over all
// mutating operations, its inverse/forward application, and the startup
// reconciliation against the best-effort persisted copy.
package history

import (
	"context"
	"sync"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	// DefaultStackCap bounds the in-memory stack; oldest items are evicted
	// from the front when exceeded.
	DefaultStackCap = 100

	persistTimeout = 10 * time.Second
)

// Engine owns one user's undo stack: an ordered item sequence plus a current
// pointer at the last applied action (-1 when empty). Pushing truncates the
// redo tail; the sequence is capped with front eviction that keeps the
// pointer on the same logical action.
type Engine struct {
	mu      sync.Mutex
	items   []*domain.HistoryItem
	current int
	touched bool
	loaded  bool

	userID   uuid.UUID
	capacity int
	ttl      time.Duration
	pageSize int

	storage out.Storage
	repo    out.HistoryRepository

	now func() time.Time
}

// NewEngine creates an empty undo engine for one user.
func NewEngine(userID uuid.UUID, storage out.Storage, repo out.HistoryRepository, capacity int, ttl time.Duration) *Engine {
	if capacity <= 0 {
		capacity = DefaultStackCap
	}
	if ttl <= 0 {
		ttl = domain.HistoryTTL
	}
	return &Engine{
		items:    nil,
		current:  -1,
		userID:   userID,
		capacity: capacity,
		ttl:      ttl,
		pageSize: capacity,
		storage:  storage,
		repo:     repo,
		now:      time.Now,
	}
}

// Record converts a completed mutation into a history item and pushes it.
// Persistence is fire-and-forget: a failed append is logged and swallowed,
// never failing or rolling back the user's mutation.
func (e *Engine) Record(action domain.ActionType, kind domain.EntityKind, payload domain.ActionPayload) *domain.HistoryItem {
	item := domain.NewHistoryItem(e.userID, action, kind, payload)
	item.ExpiresAt = item.CreatedAt.Add(e.ttl)

	e.mu.Lock()
	e.push(item)
	e.mu.Unlock()

	if e.repo != nil {
		go e.persist(item)
	}
	return item
}

// push must be called with the lock held.
func (e *Engine) push(item *domain.HistoryItem) {
	e.touched = true

	// New actions discard any redo history past the pointer.
	e.items = append(e.items[:e.current+1], item)
	e.current = len(e.items) - 1

	if over := len(e.items) - e.capacity; over > 0 {
		e.items = e.items[over:]
		e.current -= over
	}
}

func (e *Engine) persist(item *domain.HistoryItem) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.repo.Append(ctx, item); err != nil {
		logger.Warn("[Engine.persist] history append failed for user %s item %s: %v", e.userID, item.ID, err)
	}
}

// Undo returns the item at the current pointer and moves the pointer back.
// Returns (nil, nil) when there is nothing to undo. When the candidate item
// is expired it refuses with common.ErrHistoryExpired and the pointer does
// not move, so a later non-expired item stays reachable after reconciliation
// prepends older pages.
func (e *Engine) Undo() (*domain.HistoryItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current < 0 {
		return nil, nil
	}
	item := e.items[e.current]
	if item.Expired(e.now()) {
		return nil, common.ErrHistoryExpired
	}
	e.current--
	return item, nil
}

// Redo moves the pointer forward and returns the newly-current item, or
// (nil, nil) when the pointer is already at the end.
func (e *Engine) Redo() (*domain.HistoryItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current >= len(e.items)-1 {
		return nil, nil
	}
	item := e.items[e.current+1]
	if item.Expired(e.now()) {
		return nil, common.ErrHistoryExpired
	}
	e.current++
	return item, nil
}

// revertUndo restores the pointer after an inverse application failed hard,
// so the item stays undoable.
func (e *Engine) revertUndo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current < len(e.items)-1 {
		e.current++
	}
}

// revertRedo is the mirror for a failed forward application.
func (e *Engine) revertRedo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current >= 0 {
		e.current--
	}
}

// Items returns a copy of the stack and the current pointer.
func (e *Engine) Items() ([]*domain.HistoryItem, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]*domain.HistoryItem, len(e.items))
	copy(items, e.items)
	return items, e.current
}

// Len returns the number of items on the stack.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}
