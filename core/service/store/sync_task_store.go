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
	"sync_server/pkg/logger"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
)

// TaskStore implements in.TaskService.
type TaskStore struct {
	storage  out.Storage
	writer   *writer
	registry *history.Registry
	versions out.VersionCache
}

// NewTaskStore creates the task store layer. resolver may be nil, in which
// case manual conflicts are parked in the user's slot for the device to
// resolve.
func NewTaskStore(storage out.Storage, guard *conflict.Guard, slots *conflict.Slots, resolver out.ConflictResolver, registry *history.Registry, versions out.VersionCache) in.TaskService {
	return &TaskStore{
		storage:  storage,
		writer:   &writer{guard: guard, slots: slots, resolver: resolver},
		registry: registry,
		versions: versions,
	}
}

func (s *TaskStore) GetTask(ctx context.Context, userID uuid.UUID, taskID int64) (*domain.Task, error) {
	rec, err := s.storage.FetchByID(ctx, domain.KindTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if rec == nil {
		return nil, common.ErrNotFound
	}
	if err := ensureOwner(rec, userID); err != nil {
		return nil, err
	}
	return domain.TaskFromRecord(rec), nil
}

func (s *TaskStore) CreateTask(ctx context.Context, userID uuid.UUID, req *in.CreateTaskRequest) (*domain.Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrInvalidInput)
	}

	priority := domain.TaskPriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}
	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}

	now := time.Now()
	task := &domain.Task{
		ID:          snowflake.ID(),
		UserID:      userID,
		DirectoryID: req.DirectoryID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		DueDatetime: req.DueDatetime,
		StartDate:   req.StartDate,
		Priority:    priority,
		Tags:        req.Tags,
		SortOrder:   sortOrder,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdatedBy:   req.DeviceID,
	}

	stored, err := s.storage.Insert(ctx, domain.KindTask, task.ToRecord())
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionCreate, domain.KindTask, domain.ActionPayload{
		Snapshots: []domain.Record{stored},
	})
	cacheVersion(ctx, s.versions, domain.KindTask, stored)

	return domain.TaskFromRecord(stored), nil
}

func (s *TaskStore) UpdateTask(ctx context.Context, userID uuid.UUID, taskID int64, req *in.UpdateTaskRequest) (*in.WriteResult, error) {
	pre, err := s.storage.FetchByID(ctx, domain.KindTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if pre == nil {
		return nil, common.ErrNotFound
	}
	if err := ensureOwner(pre, userID); err != nil {
		return nil, err
	}

	updates := taskUpdates(req)
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", common.ErrInvalidInput)
	}
	updates["updated_at"] = time.Now()
	updates["updated_by"] = req.DeviceID

	local := req.LocalSnapshot
	if local == nil {
		local = pre
	}

	gw, err := s.writer.write(ctx, userID, domain.KindTask, taskID, updates, req.ExpectedVersion, local, pre)
	if err != nil {
		return nil, err
	}
	if gw.conflict != nil {
		return &in.WriteResult{Conflict: gw.conflict}, nil
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionUpdate, domain.KindTask, domain.ActionPayload{
		Before: gw.preImage,
		After:  gw.record,
	})
	cacheVersion(ctx, s.versions, domain.KindTask, gw.record)

	return &in.WriteResult{Task: domain.TaskFromRecord(gw.record), AutoResolved: gw.autoResolved}, nil
}

func (s *TaskStore) CompleteTask(ctx context.Context, userID uuid.UUID, taskID int64, expectedVersion int64, deviceID string) (*in.WriteResult, error) {
	pre, err := s.storage.FetchByID(ctx, domain.KindTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if pre == nil {
		return nil, common.ErrNotFound
	}
	if err := ensureOwner(pre, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := domain.Record{
		"is_completed": true,
		"completed_at": &now,
		"updated_at":   now,
		"updated_by":   deviceID,
	}

	gw, err := s.writer.write(ctx, userID, domain.KindTask, taskID, updates, expectedVersion, pre, pre)
	if err != nil {
		return nil, err
	}
	if gw.conflict != nil {
		return &in.WriteResult{Conflict: gw.conflict}, nil
	}

	// Completion is recorded with the reserved action type: it has no
	// inverse effect under the current policy, so completing is not
	// undoable. Pre/post images are kept for when that changes.
	s.registry.ForUser(ctx, userID).Record(domain.ActionComplete, domain.KindTask, domain.ActionPayload{
		Before: gw.preImage,
		After:  gw.record,
	})
	cacheVersion(ctx, s.versions, domain.KindTask, gw.record)

	return &in.WriteResult{Task: domain.TaskFromRecord(gw.record), AutoResolved: gw.autoResolved}, nil
}

func (s *TaskStore) DeleteTasks(ctx context.Context, userID uuid.UUID, taskIDs []int64, deviceID string) error {
	if len(taskIDs) == 0 {
		return fmt.Errorf("%w: no task ids", common.ErrInvalidInput)
	}

	var snapshots []domain.Record
	for _, id := range taskIDs {
		rec, err := s.storage.FetchByID(ctx, domain.KindTask, id)
		if err != nil {
			logger.Warn("[TaskStore.DeleteTasks] fetch task %d failed, skipping: %v", id, err)
			continue
		}
		if rec == nil {
			continue
		}
		if err := ensureOwner(rec, userID); err != nil {
			logger.Warn("[TaskStore.DeleteTasks] task %d not owned by %s, skipping", id, userID)
			continue
		}
		if err := s.storage.DeleteByID(ctx, domain.KindTask, id); err != nil {
			logger.Warn("[TaskStore.DeleteTasks] delete task %d failed, skipping: %v", id, err)
			continue
		}
		snapshots = append(snapshots, rec)
		dropVersion(ctx, s.versions, domain.KindTask, id)
	}

	if len(snapshots) == 0 {
		return common.ErrNotFound
	}

	// One history item for the whole user action: undo recreates every
	// deleted task with its original id.
	s.registry.ForUser(ctx, userID).Record(domain.ActionDelete, domain.KindTask, domain.ActionPayload{
		Snapshots: snapshots,
	})
	return nil
}

func (s *TaskStore) MoveTasks(ctx context.Context, userID uuid.UUID, req *in.MoveTasksRequest) error {
	if len(req.Moves) == 0 {
		return fmt.Errorf("%w: no moves", common.ErrInvalidInput)
	}

	now := time.Now()
	var placements []domain.MovePlacement
	for _, move := range req.Moves {
		rec, err := s.storage.FetchByID(ctx, domain.KindTask, move.ID)
		if err != nil || rec == nil {
			logger.Warn("[TaskStore.MoveTasks] fetch task %d failed, skipping: %v", move.ID, err)
			continue
		}
		if err := ensureOwner(rec, userID); err != nil {
			logger.Warn("[TaskStore.MoveTasks] task %d not owned by %s, skipping", move.ID, userID)
			continue
		}

		placement := domain.MovePlacement{
			ID:          move.ID,
			OldParentID: recordInt64Ptr(rec["directory_id"]),
			OldPosition: int(recordInt64(rec["sort_order"])),
			NewParentID: move.DirectoryID,
			NewPosition: move.SortOrder,
		}

		fields := domain.Record{
			"directory_id": move.DirectoryID,
			"sort_order":   move.SortOrder,
			"updated_at":   now,
			"updated_by":   req.DeviceID,
		}
		if _, err := s.storage.ConditionalUpdate(ctx, domain.KindTask, move.ID, fields, rec.Version()); err != nil {
			logger.Warn("[TaskStore.MoveTasks] reposition task %d failed, skipping: %v", move.ID, err)
			continue
		}
		placements = append(placements, placement)
	}

	if len(placements) == 0 {
		return common.ErrNotFound
	}

	s.registry.ForUser(ctx, userID).Record(domain.ActionMove, domain.KindTask, domain.ActionPayload{
		Moves: placements,
	})
	return nil
}

// taskUpdates builds the update set from the request's present fields.
func taskUpdates(req *in.UpdateTaskRequest) domain.Record {
	updates := domain.Record{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DirectoryID != nil {
		updates["directory_id"] = req.DirectoryID
	}
	if req.DueDate != nil {
		updates["due_date"] = req.DueDate
	}
	if req.DueDatetime != nil {
		updates["due_datetime"] = req.DueDatetime
	}
	if req.StartDate != nil {
		updates["start_date"] = req.StartDate
	}
	if req.Priority != nil {
		updates["priority"] = int(*req.Priority)
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	return updates
}
