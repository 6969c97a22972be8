package store

import (
	"context"
	"fmt"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/in"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/core/service/conflict"
	"sync_server/core/service/history"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
)

// DirectoryStore implements in.DirectoryService.
type DirectoryStore struct {
	storage  out.Storage
	writer   *writer
	registry *history.Registry
	versions out.VersionCache
}

func NewDirectoryStore(storage out.Storage, guard *conflict.Guard, slots *conflict.Slots, resolver out.ConflictResolver, registry *history.Registry, versions out.VersionCache) in.DirectoryService {
	return &DirectoryStore{
		storage:  storage,
		writer:   &writer{guard: guard, slots: slots, resolver: resolver},
		registry: registry,
		versions: versions,
	}
}

func (s *DirectoryStore) GetDirectory(ctx context.Context, userID uuid.UUID, dirID int64) (*domain.Directory, error) {
	rec, err := s.storage.FetchByID(ctx, domain.KindDirectory, dirID)
	if err != nil {
		return nil, fmt.Errorf("get directory: %w", err)
	}
	if rec == nil {
		return nil, common.ErrNotFound
	}
	if err := ensureOwner(rec, userID); err != nil {
		return nil, err
	}
	return domain.DirectoryFromRecord(rec), nil
}

func (s *DirectoryStore) CreateDirectory(ctx context.Context, userID uuid.UUID, req *in.CreateDirectoryRequest) (*domain.Directory, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrInvalidInput)
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}

	now := time.Now()
	dir := &domain.Directory{
		ID:        snowflake.ID(),
		UserID:    userID,
		Name:      req.Name,
		ParentID:  req.ParentID,
		Color:     req.Color,
		Icon:      req.Icon,
		SortOrder: sortOrder,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: req.DeviceID,
	}

	stored, err := s.storage.Insert(ctx, domain.KindDirectory, dir.ToRecord())
	if err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionCreate, domain.KindDirectory, domain.ActionPayload{
		Snapshots: []domain.Record{stored},
	})
	cacheVersion(ctx, s.versions, domain.KindDirectory, stored)

	return domain.DirectoryFromRecord(stored), nil
}

func (s *DirectoryStore) UpdateDirectory(ctx context.Context, userID uuid.UUID, dirID int64, req *in.UpdateDirectoryRequest) (*in.DirectoryWriteResult, error) {
	pre, err := s.storage.FetchByID(ctx, domain.KindDirectory, dirID)
	if err != nil {
		return nil, fmt.Errorf("update directory: %w", err)
	}
	if pre == nil {
		return nil, common.ErrNotFound
	}
	if err := ensureOwner(pre, userID); err != nil {
		return nil, err
	}

	updates := directoryUpdates(req)
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", common.ErrInvalidInput)
	}
	updates["updated_at"] = time.Now()
	updates["updated_by"] = req.DeviceID

	local := req.LocalSnapshot
	if local == nil {
		local = pre
	}

	gw, err := s.writer.write(ctx, userID, domain.KindDirectory, dirID, updates, req.ExpectedVersion, local, pre)
	if err != nil {
		return nil, err
	}
	if gw.conflict != nil {
		return &in.DirectoryWriteResult{Conflict: gw.conflict}, nil
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionUpdate, domain.KindDirectory, domain.ActionPayload{
		Before: gw.preImage,
		After:  gw.record,
	})
	cacheVersion(ctx, s.versions, domain.KindDirectory, gw.record)

	return &in.DirectoryWriteResult{Directory: domain.DirectoryFromRecord(gw.record), AutoResolved: gw.autoResolved}, nil
}

func (s *DirectoryStore) DeleteDirectory(ctx context.Context, userID uuid.UUID, dirID int64, deviceID string) error {
	rec, err := s.storage.FetchByID(ctx, domain.KindDirectory, dirID)
	if err != nil {
		return fmt.Errorf("delete directory: %w", err)
	}
	if rec == nil {
		return common.ErrNotFound
	}
	if err := ensureOwner(rec, userID); err != nil {
		return err
	}

	if err := s.storage.DeleteByID(ctx, domain.KindDirectory, dirID); err != nil {
		return fmt.Errorf("delete directory: %w", err)
	}
	dropVersion(ctx, s.versions, domain.KindDirectory, dirID)

	s.registry.ForUser(ctx, userID).Record(domain.ActionDelete, domain.KindDirectory, domain.ActionPayload{
		Snapshots: []domain.Record{rec},
	})
	return nil
}

func (s *DirectoryStore) MoveDirectory(ctx context.Context, userID uuid.UUID, dirID int64, req *in.MoveDirectoryRequest) error {
	rec, err := s.storage.FetchByID(ctx, domain.KindDirectory, dirID)
	if err != nil {
		return fmt.Errorf("move directory: %w", err)
	}
	if rec == nil {
		return common.ErrNotFound
	}
	if err := ensureOwner(rec, userID); err != nil {
		return err
	}
	if req.ParentID != nil && *req.ParentID == dirID {
		return fmt.Errorf("%w: directory cannot be its own parent", common.ErrInvalidInput)
	}

	placement := domain.MovePlacement{
		ID:          dirID,
		OldParentID: recordInt64Ptr(rec["parent_id"]),
		OldPosition: int(recordInt64(rec["sort_order"])),
		NewParentID: req.ParentID,
		NewPosition: req.SortOrder,
	}

	fields := domain.Record{
		"parent_id":  req.ParentID,
		"sort_order": req.SortOrder,
		"updated_at": time.Now(),
		"updated_by": req.DeviceID,
	}
	if _, err := s.storage.ConditionalUpdate(ctx, domain.KindDirectory, dirID, fields, rec.Version()); err != nil {
		return fmt.Errorf("move directory: %w", err)
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionMove, domain.KindDirectory, domain.ActionPayload{
		Moves: []domain.MovePlacement{placement},
	})
	return nil
}

func directoryUpdates(req *in.UpdateDirectoryRequest) domain.Record {
	updates := domain.Record{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ParentID != nil {
		updates["parent_id"] = req.ParentID
	}
	if req.Color != nil {
		updates["color"] = req.Color
	}
	if req.Icon != nil {
		updates["icon"] = req.Icon
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	return updates
}
