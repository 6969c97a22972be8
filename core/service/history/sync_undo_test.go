package history

import (
	"errors"
	"testing"
	"time"

	"sync_server/core/domain"
	"sync_server/core/service/common"

	"github.com/google/uuid"
)

func snapshotPayload(id int64) domain.ActionPayload {
	return domain.ActionPayload{
		Snapshots: []domain.Record{{"id": id, "title": "task", "version": int64(1)}},
	}
}

func newTestEngine(capacity int) *Engine {
	return NewEngine(uuid.New(), nil, nil, capacity, time.Hour)
}

func TestEngine_PushAndPointer(t *testing.T) {
	e := newTestEngine(10)

	if _, current := e.Items(); current != -1 {
		t.Fatalf("empty engine pointer = %d, want -1", current)
	}

	for i := int64(1); i <= 3; i++ {
		e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(i))
	}

	items, current := e.Items()
	if len(items) != 3 || current != 2 {
		t.Fatalf("after 3 pushes: len=%d current=%d, want 3 and 2", len(items), current)
	}
}

func TestEngine_CapacityEviction(t *testing.T) {
	e := newTestEngine(100)

	var first *domain.HistoryItem
	for i := int64(1); i <= 101; i++ {
		item := e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(i))
		if i == 1 {
			first = item
		}
	}

	items, current := e.Items()
	if len(items) != 100 {
		t.Fatalf("len = %d, want capacity 100", len(items))
	}
	if current != 99 {
		t.Fatalf("pointer = %d, want 99 after eviction", current)
	}
	if items[0].ID == first.ID {
		t.Error("oldest item must be evicted from the front")
	}
	if items[0].Payload.Snapshots[0]["id"] != int64(2) {
		t.Errorf("front item id = %v, want 2", items[0].Payload.Snapshots[0]["id"])
	}
}

func TestEngine_UndoRedo(t *testing.T) {
	e := newTestEngine(10)
	a := e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(1))
	b := e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(2))

	got, err := e.Undo()
	if err != nil || got == nil || got.ID != b.ID {
		t.Fatalf("first undo = %v, %v; want item b", got, err)
	}
	got, err = e.Undo()
	if err != nil || got == nil || got.ID != a.ID {
		t.Fatalf("second undo = %v, %v; want item a", got, err)
	}
	got, err = e.Undo()
	if err != nil || got != nil {
		t.Fatalf("undo past the start = %v, %v; want nil, nil", got, err)
	}

	got, err = e.Redo()
	if err != nil || got == nil || got.ID != a.ID {
		t.Fatalf("first redo = %v, %v; want item a", got, err)
	}
	got, err = e.Redo()
	if err != nil || got == nil || got.ID != b.ID {
		t.Fatalf("second redo = %v, %v; want item b", got, err)
	}
	got, err = e.Redo()
	if err != nil || got != nil {
		t.Fatalf("redo past the end = %v, %v; want nil, nil", got, err)
	}
}

func TestEngine_PushTruncatesRedoTail(t *testing.T) {
	e := newTestEngine(10)
	e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(1))
	e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(2))
	e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(3))

	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}

	// A new action while two items are undone discards the redo tail.
	e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(4))

	items, current := e.Items()
	if len(items) != 2 || current != 1 {
		t.Fatalf("len=%d current=%d, want 2 and 1", len(items), current)
	}
	if items[1].Payload.Snapshots[0]["id"] != int64(4) {
		t.Error("new action must be the stack top")
	}

	if got, err := e.Redo(); err != nil || got != nil {
		t.Errorf("redo after truncation = %v, %v; want nothing", got, err)
	}
}

func TestEngine_ExpiredUndoKeepsPointer(t *testing.T) {
	e := newTestEngine(10)
	e.Record(domain.ActionCreate, domain.KindTask, snapshotPayload(1))

	// Move the clock past the TTL.
	e.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := e.Undo(); !errors.Is(err, common.ErrHistoryExpired) {
		t.Fatalf("undo of expired item = %v, want ErrHistoryExpired", err)
	}

	// The pointer must not have moved past the expired item.
	if _, current := e.Items(); current != 0 {
		t.Errorf("pointer = %d, want 0 after refused undo", current)
	}
}

func TestEngine_RevertUndoRedo(t *testing.T) {
	e := newTestEngine(10)
	e.Record(domain.ActionUpdate, domain.KindTask, domain.ActionPayload{
		Before: domain.Record{"id": int64(1)},
		After:  domain.Record{"id": int64(1)},
	})

	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	e.revertUndo()
	if _, current := e.Items(); current != 0 {
		t.Errorf("pointer after revertUndo = %d, want 0", current)
	}

	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Redo(); err != nil {
		t.Fatal(err)
	}
	e.revertRedo()
	if _, current := e.Items(); current != -1 {
		t.Errorf("pointer after revertRedo = %d, want -1", current)
	}
}
