package conflict

import (
	"testing"

	"sync_server/core/domain"
)

func TestIsAutoResolvable(t *testing.T) {
	tests := []struct {
		name   string
		fields domain.FieldSet
		kind   domain.EntityKind
		want   bool
	}{
		{"task description only", domain.NewFieldSet("description"), domain.KindTask, true},
		{"task priority and tags", domain.NewFieldSet("priority", "tags"), domain.KindTask, true},
		{"task title", domain.NewFieldSet("title"), domain.KindTask, false},
		{"task directory move", domain.NewFieldSet("directory_id"), domain.KindTask, false},
		{"task completion", domain.NewFieldSet("is_completed"), domain.KindTask, false},
		{"task mixed critical and not", domain.NewFieldSet("description", "title"), domain.KindTask, false},
		{"directory color", domain.NewFieldSet("color", "icon"), domain.KindDirectory, true},
		{"directory name", domain.NewFieldSet("name"), domain.KindDirectory, false},
		{"directory parent", domain.NewFieldSet("parent_id"), domain.KindDirectory, false},
		{"version-only divergence", domain.NewFieldSet("version"), domain.KindTask, true},
		{"empty set", domain.NewFieldSet(), domain.KindTask, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAutoResolvable(tt.fields, tt.kind); got != tt.want {
				t.Errorf("IsAutoResolvable(%v, %s) = %v, want %v", tt.fields.Names(), tt.kind, got, tt.want)
			}
		})
	}
}
