package domain

import (
	"time"

	"github.com/google/uuid"
)

// Directory is a versioned node in the directory tree. Same compare-and-swap
// rules as Task.
type Directory struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`

	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`

	// Ordering among siblings
	SortOrder int `json:"sort_order"`

	// Concurrency control
	Version int64 `json:"version"`

	// Bookkeeping
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// ToRecord converts the directory to its snapshot form.
func (d *Directory) ToRecord() Record {
	return Record{
		"id":         d.ID,
		"user_id":    d.UserID,
		"name":       d.Name,
		"parent_id":  d.ParentID,
		"color":      d.Color,
		"icon":       d.Icon,
		"sort_order": d.SortOrder,
		"version":    d.Version,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
		"updated_by": d.UpdatedBy,
	}
}
