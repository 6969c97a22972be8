package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/in"
	"sync_server/core/service/common"
)

func (h *harness) seedDirectory(id, version int64, name string) domain.Record {
	now := time.Now()
	rec := (&domain.Directory{
		ID:        id,
		UserID:    h.userID,
		Name:      name,
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}).ToRecord()
	h.storage.put(domain.KindDirectory, rec)
	return rec
}

func TestCreateDirectory(t *testing.T) {
	h := newHarness()

	dir, err := h.dirs.CreateDirectory(context.Background(), h.userID, &in.CreateDirectoryRequest{
		Name:     "Projects",
		DeviceID: "device-a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if dir.ID == 0 || dir.Version != 1 {
		t.Errorf("dir = %d v%d, want id and v1", dir.ID, dir.Version)
	}
	if n := h.historyLen(t); n != 1 {
		t.Errorf("history len = %d, want 1", n)
	}

	if _, err := h.dirs.CreateDirectory(context.Background(), h.userID, &in.CreateDirectoryRequest{}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("nameless create = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateDirectory_CosmeticConflictAutoMerges(t *testing.T) {
	h := newHarness()
	// Another device retinted the directory, moving it to v2.
	remote := h.seedDirectory(1, 2, "Projects")
	blue := "#00f"
	remote["color"] = &blue
	h.storage.put(domain.KindDirectory, remote)

	stale := remote.Clone()
	stale["version"] = int64(1)
	stale["color"] = nil

	icon := "folder"
	result, err := h.dirs.UpdateDirectory(context.Background(), h.userID, 1, &in.UpdateDirectoryRequest{
		ExpectedVersion: 1,
		Icon:            &icon,
		LocalSnapshot:   stale,
		DeviceID:        "device-a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Conflict != nil || !result.AutoResolved {
		t.Fatalf("cosmetic conflict must auto-merge, got %+v", result)
	}
	if result.Directory.Icon == nil || *result.Directory.Icon != "folder" {
		t.Errorf("icon = %v, want the local edit", result.Directory.Icon)
	}
	if result.Directory.Version != 3 {
		t.Errorf("version = %d, want 3", result.Directory.Version)
	}
}

func TestUpdateDirectory_RenameConflictParked(t *testing.T) {
	h := newHarness()
	remote := h.seedDirectory(1, 2, "Remote Name")

	stale := remote.Clone()
	stale["version"] = int64(1)
	stale["name"] = "Local Name"

	name := "Local Name"
	result, err := h.dirs.UpdateDirectory(context.Background(), h.userID, 1, &in.UpdateDirectoryRequest{
		ExpectedVersion: 1,
		Name:            &name,
		LocalSnapshot:   stale,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Conflict == nil || !result.Conflict.ConflictingFields.Has("name") {
		t.Fatal("conflicting rename must require manual resolution")
	}
	if h.slot.Get() == nil {
		t.Error("conflict must be parked")
	}
}

func TestDeleteDirectory_UndoRecreates(t *testing.T) {
	h := newHarness()
	h.seedDirectory(1, 3, "Archive")

	if err := h.dirs.DeleteDirectory(context.Background(), h.userID, 1, "device-a"); err != nil {
		t.Fatal(err)
	}
	if h.storage.get(domain.KindDirectory, 1) != nil {
		t.Fatal("directory not deleted")
	}

	if _, err := h.history.Undo(context.Background(), h.userID); err != nil {
		t.Fatal(err)
	}
	rec := h.storage.get(domain.KindDirectory, 1)
	if rec == nil || rec["name"] != "Archive" {
		t.Errorf("record after undo = %v, want the original snapshot", rec)
	}
}

func TestMoveDirectory_SelfParentRejected(t *testing.T) {
	h := newHarness()
	h.seedDirectory(1, 1, "Projects")

	self := int64(1)
	err := h.dirs.MoveDirectory(context.Background(), h.userID, 1, &in.MoveDirectoryRequest{
		ParentID: &self,
	})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("self-parent move = %v, want ErrInvalidInput", err)
	}
}

func TestMoveDirectory_UndoRestoresParent(t *testing.T) {
	h := newHarness()
	h.seedDirectory(1, 1, "Notes")

	parent := int64(5)
	if err := h.dirs.MoveDirectory(context.Background(), h.userID, 1, &in.MoveDirectoryRequest{
		ParentID:  &parent,
		SortOrder: 2,
	}); err != nil {
		t.Fatal(err)
	}

	moved := h.storage.get(domain.KindDirectory, 1)
	if got := moved["parent_id"].(*int64); got == nil || *got != parent {
		t.Fatalf("parent = %v, want 5", moved["parent_id"])
	}

	if _, err := h.history.Undo(context.Background(), h.userID); err != nil {
		t.Fatal(err)
	}
	restored := h.storage.get(domain.KindDirectory, 1)
	if got := restored["parent_id"].(*int64); got != nil {
		t.Errorf("parent after undo = %v, want root (nil)", *got)
	}
}
