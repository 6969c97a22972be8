package domain

import (
	"testing"
)

func newTestConflict() *ConflictRecord {
	local := Record{
		"id":         int64(10),
		"title":      "local title",
		"priority":   int64(2),
		"version":    int64(3),
		"updated_by": "device-a",
	}
	remote := Record{
		"id":         int64(10),
		"title":      "remote title",
		"priority":   int64(1),
		"version":    int64(4),
		"updated_by": "device-b",
	}
	return NewConflictRecord(KindTask, 10, 3, 4, local, remote, NewFieldSet("title", "priority"))
}

func TestAutoMerge(t *testing.T) {
	c := newTestConflict()
	merged := c.AutoMerge()

	// Local edits win on content fields
	if merged["title"] != "local title" {
		t.Errorf("title = %v, want local title", merged["title"])
	}
	if merged["priority"] != int64(2) {
		t.Errorf("priority = %v, want 2", merged["priority"])
	}

	// Bookkeeping always comes from the remote snapshot
	if merged.Version() != 4 {
		t.Errorf("version = %d, want remote version 4", merged.Version())
	}
	if merged["updated_by"] != "device-b" {
		t.Errorf("updated_by = %v, want device-b", merged["updated_by"])
	}

	// Source snapshots are untouched
	if c.RemoteData["title"] != "remote title" {
		t.Error("AutoMerge mutated the remote snapshot")
	}
}

func TestChosenData(t *testing.T) {
	tests := []struct {
		name        string
		res         *Resolution
		wantTitle   any
		wantVersion int64
	}{
		{"local keeps local edit", &Resolution{Choice: ResolutionLocal}, "local title", 4},
		{"remote keeps remote state", &Resolution{Choice: ResolutionRemote}, "remote title", 4},
		{
			"merge overlays caller data",
			&Resolution{Choice: ResolutionMerge, Data: Record{"title": "merged title", "version": int64(99)}},
			"merged title", 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConflict()
			data := c.ChosenData(tt.res)
			if data["title"] != tt.wantTitle {
				t.Errorf("title = %v, want %v", data["title"], tt.wantTitle)
			}
			if data.Version() != tt.wantVersion {
				t.Errorf("version = %d, want %d", data.Version(), tt.wantVersion)
			}
		})
	}
}

func TestCriticalFields(t *testing.T) {
	task := CriticalFields(KindTask)
	for _, f := range []string{"title", "directory_id", "is_completed"} {
		if !task.Has(f) {
			t.Errorf("task critical fields missing %s", f)
		}
	}
	if task.Has("description") {
		t.Error("description must not be critical for tasks")
	}

	dir := CriticalFields(KindDirectory)
	for _, f := range []string{"name", "parent_id"} {
		if !dir.Has(f) {
			t.Errorf("directory critical fields missing %s", f)
		}
	}
	if dir.Has("color") {
		t.Error("color must not be critical for directories")
	}
}
