package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/logger"

	"github.com/google/uuid"
)

// Reconcile merges unexpired persisted history into the in-memory stack at
// session start. If the stack has already been touched by a local action the
// persisted copy is discarded: fresher in-memory state is never overwritten
// with older persisted state. Loaded items are installed as already applied,
// undoable but with empty redo.
func (e *Engine) Reconcile(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}

	e.mu.Lock()
	if e.touched || e.loaded {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	items, err := e.repo.LoadUnexpired(ctx, e.userID, nil, e.capacity)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// A first local action may have raced the load; it wins.
	if e.touched || e.loaded {
		return nil
	}
	e.loaded = true
	if len(items) == 0 {
		return nil
	}
	e.items = items
	e.current = len(items) - 1
	logger.Info("[Engine.Reconcile] restored %d history items for user %s", len(items), e.userID)
	return nil
}

// LoadMore fetches an older page of persisted history and prepends it,
// shifting the pointer by the number of prepended items so it still
// references the same logical position. Returns how many were prepended.
func (e *Engine) LoadMore(ctx context.Context) (int, error) {
	if e.repo == nil {
		return 0, nil
	}

	e.mu.Lock()
	var before *time.Time
	seen := make(map[string]struct{}, len(e.items))
	for _, it := range e.items {
		seen[it.ID] = struct{}{}
	}
	if len(e.items) > 0 {
		t := e.items[0].CreatedAt
		before = &t
	}
	e.mu.Unlock()

	older, err := e.repo.LoadUnexpired(ctx, e.userID, before, e.pageSize)
	if err != nil {
		return 0, fmt.Errorf("load older history: %w", err)
	}

	prepend := older[:0]
	for _, it := range older {
		if _, dup := seen[it.ID]; !dup {
			prepend = append(prepend, it)
		}
	}
	if len(prepend) == 0 {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(append([]*domain.HistoryItem{}, prepend...), e.items...)
	e.current += len(prepend)
	return len(prepend), nil
}

// Registry hands out one engine per user, reconciling persisted history the
// first time a user's engine is created.
type Registry struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*Engine

	storage  out.Storage
	repo     out.HistoryRepository
	capacity int
	ttl      time.Duration
}

// NewRegistry creates an engine registry.
func NewRegistry(storage out.Storage, repo out.HistoryRepository, capacity int, ttl time.Duration) *Registry {
	return &Registry{
		engines:  make(map[uuid.UUID]*Engine),
		storage:  storage,
		repo:     repo,
		capacity: capacity,
		ttl:      ttl,
	}
}

// ForUser returns the user's engine, creating and reconciling it on first
// use. Reconciliation failure is non-fatal: the session starts with an empty
// stack.
func (r *Registry) ForUser(ctx context.Context, userID uuid.UUID) *Engine {
	r.mu.Lock()
	eng, ok := r.engines[userID]
	if !ok {
		eng = NewEngine(userID, r.storage, r.repo, r.capacity, r.ttl)
		r.engines[userID] = eng
	}
	r.mu.Unlock()

	if !ok {
		if err := eng.Reconcile(ctx); err != nil {
			logger.Warn("[Registry.ForUser] reconcile failed for user %s: %v", userID, err)
		}
	}
	return eng
}
