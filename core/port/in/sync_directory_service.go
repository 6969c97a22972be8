package in

import (
	"context"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// CreateDirectoryRequest carries the fields of a new directory.
type CreateDirectoryRequest struct {
	Name      string  `json:"name"`
	ParentID  *int64  `json:"parent_id,omitempty"`
	Color     *string `json:"color,omitempty"`
	Icon      *string `json:"icon,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	DeviceID  string  `json:"device_id,omitempty"`
}

// UpdateDirectoryRequest is a version-qualified partial update.
type UpdateDirectoryRequest struct {
	ExpectedVersion int64 `json:"expected_version"`

	Name      *string `json:"name,omitempty"`
	ParentID  *int64  `json:"parent_id,omitempty"`
	Color     *string `json:"color,omitempty"`
	Icon      *string `json:"icon,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`

	LocalSnapshot domain.Record `json:"local_snapshot,omitempty"`
	DeviceID      string        `json:"device_id,omitempty"`
}

// MoveDirectoryRequest repositions a directory under a new parent.
type MoveDirectoryRequest struct {
	ParentID  *int64 `json:"parent_id,omitempty"`
	SortOrder int    `json:"sort_order"`
	DeviceID  string `json:"device_id,omitempty"`
}

// DirectoryWriteResult mirrors WriteResult for directory mutations.
type DirectoryWriteResult struct {
	Directory    *domain.Directory      `json:"directory,omitempty"`
	Conflict     *domain.ConflictRecord `json:"conflict,omitempty"`
	AutoResolved bool                   `json:"auto_resolved,omitempty"`
}

// DirectoryService is the inbound surface of the directory store layer.
type DirectoryService interface {
	GetDirectory(ctx context.Context, userID uuid.UUID, dirID int64) (*domain.Directory, error)
	CreateDirectory(ctx context.Context, userID uuid.UUID, req *CreateDirectoryRequest) (*domain.Directory, error)
	UpdateDirectory(ctx context.Context, userID uuid.UUID, dirID int64, req *UpdateDirectoryRequest) (*DirectoryWriteResult, error)
	DeleteDirectory(ctx context.Context, userID uuid.UUID, dirID int64, deviceID string) error
	MoveDirectory(ctx context.Context, userID uuid.UUID, dirID int64, req *MoveDirectoryRequest) error
}
