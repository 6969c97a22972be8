package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// fakeRepo implements out.HistoryRepository over an in-memory ascending list.
type fakeRepo struct {
	mu       sync.Mutex
	items    []*domain.HistoryItem // ascending by CreatedAt
	appended []*domain.HistoryItem
}

func (f *fakeRepo) Append(ctx context.Context, item *domain.HistoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, item)
	return nil
}

func (f *fakeRepo) LoadUnexpired(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*domain.HistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var eligible []*domain.HistoryItem
	now := time.Now()
	for _, it := range f.items {
		if it.Expired(now) {
			continue
		}
		if before != nil && !it.CreatedAt.Before(*before) {
			continue
		}
		eligible = append(eligible, it)
	}
	// Newest first page, then back to ascending, like the real adapters.
	if len(eligible) > limit {
		eligible = eligible[len(eligible)-limit:]
	}
	return eligible, nil
}

func persistedItem(userID uuid.UUID, createdAt time.Time) *domain.HistoryItem {
	item := domain.NewHistoryItem(userID, domain.ActionCreate, domain.KindTask,
		domain.ActionPayload{Snapshots: []domain.Record{{"id": int64(1)}}})
	item.CreatedAt = createdAt
	item.ExpiresAt = createdAt.Add(domain.HistoryTTL)
	return item
}

func TestReconcile_RestoresPersistedStack(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	repo := &fakeRepo{items: []*domain.HistoryItem{
		persistedItem(userID, now.Add(-3*time.Minute)),
		persistedItem(userID, now.Add(-2*time.Minute)),
		persistedItem(userID, now.Add(-time.Minute)),
	}}

	e := NewEngine(userID, nil, repo, 10, time.Hour)
	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	items, current := e.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	// Loaded items are installed as already applied: undoable, empty redo.
	if current != 2 {
		t.Errorf("pointer = %d, want 2", current)
	}
	if got, err := e.Redo(); err != nil || got != nil {
		t.Errorf("redo after reconcile = %v, %v; want nothing", got, err)
	}
}

func TestReconcile_TouchedStackWins(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{items: []*domain.HistoryItem{
		persistedItem(userID, time.Now().Add(-time.Minute)),
	}}

	e := NewEngine(userID, nil, repo, 10, time.Hour)
	local := e.Record(domain.ActionCreate, domain.KindTask,
		domain.ActionPayload{Snapshots: []domain.Record{{"id": int64(9)}}})

	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	items, _ := e.Items()
	if len(items) != 1 || items[0].ID != local.ID {
		t.Error("reconcile must never overwrite a touched in-memory stack")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{items: []*domain.HistoryItem{
		persistedItem(userID, time.Now().Add(-time.Minute)),
	}}

	e := NewEngine(userID, nil, repo, 10, time.Hour)
	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if items, _ := e.Items(); len(items) != 1 {
		t.Errorf("len = %d after double reconcile, want 1", len(items))
	}
}

func TestLoadMore_PrependsOlderPage(t *testing.T) {
	userID := uuid.New()
	now := time.Now()

	older := []*domain.HistoryItem{
		persistedItem(userID, now.Add(-10*time.Minute)),
		persistedItem(userID, now.Add(-9*time.Minute)),
	}
	recent := persistedItem(userID, now.Add(-time.Minute))
	repo := &fakeRepo{items: append(append([]*domain.HistoryItem{}, older...), recent)}

	e := NewEngine(userID, nil, repo, 10, time.Hour)
	e.mu.Lock()
	e.items = []*domain.HistoryItem{recent}
	e.current = 0
	e.mu.Unlock()

	n, err := e.LoadMore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("prepended = %d, want 2", n)
	}

	items, current := e.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[2].ID != recent.ID {
		t.Error("existing items must stay after the prepended page")
	}
	// Pointer shifted to keep referencing the same logical item.
	if current != 2 {
		t.Errorf("pointer = %d, want 2", current)
	}
}

func TestLoadMore_DeduplicatesKnownItems(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	known := persistedItem(userID, now.Add(-time.Minute))
	repo := &fakeRepo{items: []*domain.HistoryItem{known}}

	// The engine holds the same logical item under a later cursor, so the
	// older-page fetch returns it again.
	inMemory := *known
	inMemory.CreatedAt = now.Add(time.Minute)

	e := NewEngine(userID, nil, repo, 10, time.Hour)
	e.mu.Lock()
	e.items = []*domain.HistoryItem{&inMemory}
	e.current = 0
	e.mu.Unlock()

	n, err := e.LoadMore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("prepended = %d, want 0 for a duplicate page", n)
	}
}

func TestRegistry_ForUserReconcilesOnce(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{items: []*domain.HistoryItem{
		persistedItem(userID, time.Now().Add(-time.Minute)),
	}}
	registry := NewRegistry(nil, repo, 10, time.Hour)

	e1 := registry.ForUser(context.Background(), userID)
	e2 := registry.ForUser(context.Background(), userID)

	if e1 != e2 {
		t.Fatal("registry must hand out one engine per user")
	}
	if items, _ := e1.Items(); len(items) != 1 {
		t.Errorf("len = %d, want reconciled stack of 1", len(items))
	}

	other := registry.ForUser(context.Background(), uuid.New())
	if other == e1 {
		t.Error("different users must get different engines")
	}
}
