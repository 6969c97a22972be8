package in

import (
	"context"
	"time"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// CreateTaskRequest carries the fields of a new task.
type CreateTaskRequest struct {
	DirectoryID *int64               `json:"directory_id,omitempty"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	DueDatetime *time.Time           `json:"due_datetime,omitempty"`
	StartDate   *time.Time           `json:"start_date,omitempty"`
	Priority    *domain.TaskPriority `json:"priority,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	SortOrder   *int                 `json:"sort_order,omitempty"`
	DeviceID    string               `json:"device_id,omitempty"`
}

// UpdateTaskRequest is a version-qualified partial update. ExpectedVersion is
// the version the device last observed; the write is rejected when it no
// longer matches. LocalSnapshot optionally carries the device's cached copy
// so conflict detection can compare fields outside the update set too.
type UpdateTaskRequest struct {
	ExpectedVersion int64 `json:"expected_version"`

	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	DirectoryID *int64               `json:"directory_id,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	DueDatetime *time.Time           `json:"due_datetime,omitempty"`
	StartDate   *time.Time           `json:"start_date,omitempty"`
	Priority    *domain.TaskPriority `json:"priority,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	SortOrder   *int                 `json:"sort_order,omitempty"`

	LocalSnapshot domain.Record `json:"local_snapshot,omitempty"`
	DeviceID      string        `json:"device_id,omitempty"`
}

// TaskMove repositions one task inside the tree.
type TaskMove struct {
	ID          int64  `json:"id"`
	DirectoryID *int64 `json:"directory_id,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

// MoveTasksRequest repositions a batch of tasks as a single undoable action.
type MoveTasksRequest struct {
	Moves    []TaskMove `json:"moves"`
	DeviceID string     `json:"device_id,omitempty"`
}

// WriteResult is the outcome of a guard-protected mutation. Exactly one of
// Task or Conflict is set: Conflict is returned when manual resolution is
// required and no blocking resolver is configured, leaving the conflict
// parked in the pending slot for the device to resolve.
type WriteResult struct {
	Task     *domain.Task           `json:"task,omitempty"`
	Conflict *domain.ConflictRecord `json:"conflict,omitempty"`
	// AutoResolved reports that a version conflict occurred but was merged
	// silently.
	AutoResolved bool `json:"auto_resolved,omitempty"`
}

// TaskService is the inbound surface of the task store layer.
type TaskService interface {
	GetTask(ctx context.Context, userID uuid.UUID, taskID int64) (*domain.Task, error)
	CreateTask(ctx context.Context, userID uuid.UUID, req *CreateTaskRequest) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID uuid.UUID, taskID int64, req *UpdateTaskRequest) (*WriteResult, error)
	CompleteTask(ctx context.Context, userID uuid.UUID, taskID int64, expectedVersion int64, deviceID string) (*WriteResult, error)
	DeleteTasks(ctx context.Context, userID uuid.UUID, taskIDs []int64, deviceID string) error
	MoveTasks(ctx context.Context, userID uuid.UUID, req *MoveTasksRequest) error
}
