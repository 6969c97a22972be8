package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskPriority represents priority levels (1=urgent, 4=low)
type TaskPriority int

const (
	TaskPriorityUrgent TaskPriority = 1
	TaskPriorityHigh   TaskPriority = 2
	TaskPriorityNormal TaskPriority = 3
	TaskPriorityLow    TaskPriority = 4
)

// Task is a versioned task record. Version starts at 1 and is incremented by
// the store on every accepted write; a write is accepted only when the
// caller's expected version equals the stored version.
type Task struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// Location in the directory tree
	DirectoryID *int64 `json:"directory_id,omitempty"`

	// Basic info
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Schedule
	DueDate     *time.Time `json:"due_date,omitempty"`
	DueDatetime *time.Time `json:"due_datetime,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`

	Priority TaskPriority `json:"priority"`
	Tags     []string     `json:"tags,omitempty"`

	// Ordering within the directory
	SortOrder int `json:"sort_order"`

	// Completion
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Concurrency control
	Version int64 `json:"version"`

	// Bookkeeping
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Complete marks the task as completed.
func (t *Task) Complete() {
	now := time.Now()
	t.IsCompleted = true
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Reopen clears the task's completion state.
func (t *Task) Reopen() {
	t.IsCompleted = false
	t.CompletedAt = nil
	t.UpdatedAt = time.Now()
}

// ToRecord converts the task to its snapshot form.
func (t *Task) ToRecord() Record {
	return Record{
		"id":           t.ID,
		"user_id":      t.UserID,
		"directory_id": t.DirectoryID,
		"title":        t.Title,
		"description":  t.Description,
		"due_date":     t.DueDate,
		"due_datetime": t.DueDatetime,
		"start_date":   t.StartDate,
		"priority":     int(t.Priority),
		"tags":         t.Tags,
		"sort_order":   t.SortOrder,
		"is_completed": t.IsCompleted,
		"completed_at": t.CompletedAt,
		"version":      t.Version,
		"created_at":   t.CreatedAt,
		"updated_at":   t.UpdatedAt,
		"updated_by":   t.UpdatedBy,
	}
}
