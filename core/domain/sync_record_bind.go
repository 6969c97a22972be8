package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskFromRecord rebuilds a Task from its snapshot form. Tolerant of the
// loosely-typed values a JSON round trip produces (float64 numbers, []any
// lists).
func TaskFromRecord(r Record) *Task {
	t := &Task{
		ID:          asInt64(r["id"]),
		UserID:      recordUUID(r["user_id"]),
		DirectoryID: asInt64Ptr(r["directory_id"]),
		Title:       asString(r["title"]),
		Description: asString(r["description"]),
		DueDate:     asTimePtr(r["due_date"]),
		DueDatetime: asTimePtr(r["due_datetime"]),
		StartDate:   asTimePtr(r["start_date"]),
		Priority:    TaskPriority(asInt64(r["priority"])),
		Tags:        asStrings(r["tags"]),
		SortOrder:   int(asInt64(r["sort_order"])),
		IsCompleted: asBool(r["is_completed"]),
		CompletedAt: asTimePtr(r["completed_at"]),
		Version:     asInt64(r["version"]),
		UpdatedBy:   asString(r["updated_by"]),
	}
	if ts := asTimePtr(r["created_at"]); ts != nil {
		t.CreatedAt = *ts
	}
	if ts := asTimePtr(r["updated_at"]); ts != nil {
		t.UpdatedAt = *ts
	}
	return t
}

// DirectoryFromRecord rebuilds a Directory from its snapshot form.
func DirectoryFromRecord(r Record) *Directory {
	d := &Directory{
		ID:        asInt64(r["id"]),
		UserID:    recordUUID(r["user_id"]),
		Name:      asString(r["name"]),
		ParentID:  asInt64Ptr(r["parent_id"]),
		Color:     asStringPtr(r["color"]),
		Icon:      asStringPtr(r["icon"]),
		SortOrder: int(asInt64(r["sort_order"])),
		Version:   asInt64(r["version"]),
		UpdatedBy: asString(r["updated_by"]),
	}
	if ts := asTimePtr(r["created_at"]); ts != nil {
		d.CreatedAt = *ts
	}
	if ts := asTimePtr(r["updated_at"]); ts != nil {
		d.UpdatedAt = *ts
	}
	return d
}

// RecordUserID extracts the owning user id from a snapshot.
func RecordUserID(r Record) uuid.UUID {
	return recordUUID(r["user_id"])
}

func recordUUID(v any) uuid.UUID {
	switch u := v.(type) {
	case uuid.UUID:
		return u
	case string:
		if parsed, err := uuid.Parse(u); err == nil {
			return parsed
		}
	case []byte:
		if parsed, err := uuid.ParseBytes(u); err == nil {
			return parsed
		}
	}
	return uuid.Nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}

func asStringPtr(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64Ptr(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case *int64:
		return n
	default:
		if rv := asInt64(v); rv != 0 || v != nil {
			switch v.(type) {
			case int, int64, float64:
				return &rv
			}
		}
	}
	return nil
}

func asTimePtr(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return &parsed
		}
	}
	return nil
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, asString(item))
		}
		return out
	}
	return nil
}
