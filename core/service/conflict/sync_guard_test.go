package conflict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"sync_server/core/domain"
	"sync_server/core/service/common"
)

// fakeStorage implements out.Storage with in-memory compare-and-swap
// semantics.
type fakeStorage struct {
	mu      sync.Mutex
	records map[string]domain.Record

	updateErr error
	fetchErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: make(map[string]domain.Record)}
}

func storageKey(kind domain.EntityKind, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

func (f *fakeStorage) put(kind domain.EntityKind, rec domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rec["id"].(int64)
	f.records[storageKey(kind, id)] = rec.Clone()
}

func (f *fakeStorage) ConditionalUpdate(ctx context.Context, kind domain.EntityKind, id int64, fields domain.Record, expectedVersion int64) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}

	rec, ok := f.records[storageKey(kind, id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	if rec.Version() != expectedVersion {
		return nil, common.ErrVersionMismatch
	}

	updated := rec.Merge(fields)
	updated["version"] = rec.Version() + 1
	f.records[storageKey(kind, id)] = updated
	return updated.Clone(), nil
}

func (f *fakeStorage) FetchByID(ctx context.Context, kind domain.EntityKind, id int64) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rec, ok := f.records[storageKey(kind, id)]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (f *fakeStorage) Insert(ctx context.Context, kind domain.EntityKind, rec domain.Record) (domain.Record, error) {
	f.put(kind, rec)
	return rec.Clone(), nil
}

func (f *fakeStorage) DeleteByID(ctx context.Context, kind domain.EntityKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, storageKey(kind, id))
	return nil
}

func taskRecord(id, version int64, title string) domain.Record {
	return domain.Record{
		"id":           id,
		"title":        title,
		"description":  "",
		"priority":     int64(0),
		"sort_order":   int64(0),
		"is_completed": false,
		"version":      version,
	}
}

func TestGuard_Write_Applied(t *testing.T) {
	storage := newFakeStorage()
	storage.put(domain.KindTask, taskRecord(1, 3, "old"))
	guard := NewGuard(storage)

	outcome, err := guard.Write(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "new"}, 3, taskRecord(1, 3, "old"))
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Applied {
		t.Fatal("write at matching version must apply")
	}
	if outcome.Record["title"] != "new" {
		t.Errorf("title = %v, want new", outcome.Record["title"])
	}
	if outcome.Record.Version() != 4 {
		t.Errorf("version = %d, want 4", outcome.Record.Version())
	}
}

func TestGuard_Write_ConflictBuilt(t *testing.T) {
	storage := newFakeStorage()
	remote := taskRecord(1, 5, "remote title")
	storage.put(domain.KindTask, remote)
	guard := NewGuard(storage)

	local := taskRecord(1, 3, "old title")
	outcome, err := guard.Write(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "local title"}, 3, local)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Applied {
		t.Fatal("stale write must not apply")
	}

	c := outcome.Conflict
	if c == nil {
		t.Fatal("rejected write must carry a conflict record")
	}
	if c.LocalVersion != 3 || c.RemoteVersion != 5 {
		t.Errorf("versions = (%d, %d), want (3, 5)", c.LocalVersion, c.RemoteVersion)
	}
	if !c.ConflictingFields.Has("title") {
		t.Errorf("conflicting fields = %v, want title", c.ConflictingFields.Names())
	}
	if c.LocalData["title"] != "local title" {
		t.Errorf("local data title = %v, want the intended edit", c.LocalData["title"])
	}
	if c.RemoteData["title"] != "remote title" {
		t.Errorf("remote data title = %v, want remote snapshot", c.RemoteData["title"])
	}
}

func TestGuard_Write_VersionOnlyDivergence(t *testing.T) {
	// The concurrent writer bumped the version but every semantic field still
	// matches the local intent.
	storage := newFakeStorage()
	remote := taskRecord(1, 5, "same")
	storage.put(domain.KindTask, remote)
	guard := NewGuard(storage)

	outcome, err := guard.Write(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "same"}, 3, taskRecord(1, 3, "same"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Applied {
		t.Fatal("stale version must be rejected even without semantic diff")
	}
	if !outcome.Conflict.ConflictingFields.Has("version") {
		t.Errorf("fields = %v, want the version marker", outcome.Conflict.ConflictingFields.Names())
	}
}

func TestGuard_Write_FetchFailureSynthesizesConflict(t *testing.T) {
	storage := newFakeStorage()
	storage.put(domain.KindTask, taskRecord(1, 5, "remote"))
	storage.fetchErr = errors.New("connection reset")
	guard := NewGuard(storage)

	outcome, err := guard.Write(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "local"}, 3, taskRecord(1, 3, "old"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Applied || outcome.Conflict == nil {
		t.Fatal("unknown remote state must still yield an actionable conflict")
	}
	if outcome.Conflict.RemoteData != nil {
		t.Error("synthesized conflict must not fabricate a remote snapshot")
	}
	if outcome.Conflict.RemoteVersion != 4 {
		t.Errorf("remote version = %d, want local+1 guess", outcome.Conflict.RemoteVersion)
	}
}

func TestGuard_Write_TransportErrorTreatedAsConflict(t *testing.T) {
	// A transport error on the update may mean the write landed server-side.
	// It must surface as a conflict against the fetched state, never an error.
	storage := newFakeStorage()
	storage.put(domain.KindTask, taskRecord(1, 4, "remote"))
	storage.updateErr = errors.New("i/o timeout")
	guard := NewGuard(storage)

	outcome, err := guard.Write(context.Background(), domain.KindTask, 1,
		domain.Record{"title": "local"}, 4, taskRecord(1, 4, "remote"))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Applied || outcome.Conflict == nil {
		t.Fatal("transport failure must become a conflict, not a success or error")
	}
}

func TestGuard_Retry(t *testing.T) {
	storage := newFakeStorage()
	remote := taskRecord(1, 5, "remote")
	storage.put(domain.KindTask, remote)
	guard := NewGuard(storage)

	c := domain.NewConflictRecord(domain.KindTask, 1, 3, 5,
		taskRecord(1, 3, "local"), remote, domain.NewFieldSet("title"))

	outcome, err := guard.Retry(context.Background(), c, domain.Record{"title": "resolved"})
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Applied {
		t.Fatal("retry against the remote version must apply")
	}
	if outcome.Record["title"] != "resolved" {
		t.Errorf("title = %v, want resolved", outcome.Record["title"])
	}

	// Retry without a remote snapshot has nothing to write against.
	orphan := domain.NewConflictRecord(domain.KindTask, 1, 3, 4,
		taskRecord(1, 3, "local"), nil, domain.NewFieldSet("version"))
	if _, err := guard.Retry(context.Background(), orphan, domain.Record{"title": "x"}); err == nil {
		t.Error("retry with nil remote data should fail")
	}
}
