package history

import (
	"context"
	"fmt"

	"sync_server/core/domain"
	"sync_server/core/service/common"
	"sync_server/core/service/diff"
	"sync_server/pkg/logger"
)

// ApplyInverse applies the operation that undoes the recorded mutation.
// Per-entity failures inside a batch (delete/move) are logged, collected as
// warnings and skipped; there is no rollback of already-applied entities.
func (e *Engine) ApplyInverse(ctx context.Context, item *domain.HistoryItem) ([]string, error) {
	if item.Expired(e.now()) {
		return nil, common.ErrHistoryExpired
	}

	switch item.Action {
	case domain.ActionCreate:
		return e.deleteSnapshots(ctx, item)

	case domain.ActionDelete:
		return e.insertSnapshots(ctx, item)

	case domain.ActionUpdate:
		if err := e.writeBack(ctx, item.EntityKind, item.Payload.Before); err != nil {
			return nil, fmt.Errorf("undo update: %w", err)
		}
		return nil, nil

	case domain.ActionMove:
		return e.applyPlacements(ctx, item, false)

	case domain.ActionComplete:
		// Reserved action type: no inverse effect defined yet.
		logger.Debug("[Engine.ApplyInverse] complete action %s is a no-op", item.ID)
		return nil, nil
	}

	return nil, fmt.Errorf("apply inverse: unknown action type %q", item.Action)
}

// ApplyForward re-applies a previously undone mutation using the post-image
// and new-position data.
func (e *Engine) ApplyForward(ctx context.Context, item *domain.HistoryItem) ([]string, error) {
	if item.Expired(e.now()) {
		return nil, common.ErrHistoryExpired
	}

	switch item.Action {
	case domain.ActionCreate:
		return e.insertSnapshots(ctx, item)

	case domain.ActionDelete:
		return e.deleteSnapshots(ctx, item)

	case domain.ActionUpdate:
		after := item.Payload.After
		if after == nil {
			return nil, fmt.Errorf("redo update: no post-image recorded")
		}
		if err := e.writeBack(ctx, item.EntityKind, after); err != nil {
			return nil, fmt.Errorf("redo update: %w", err)
		}
		return nil, nil

	case domain.ActionMove:
		return e.applyPlacements(ctx, item, true)

	case domain.ActionComplete:
		logger.Debug("[Engine.ApplyForward] complete action %s is a no-op", item.ID)
		return nil, nil
	}

	return nil, fmt.Errorf("apply forward: unknown action type %q", item.Action)
}

func (e *Engine) insertSnapshots(ctx context.Context, item *domain.HistoryItem) ([]string, error) {
	var warnings []string
	for _, snap := range item.Payload.Snapshots {
		if _, err := e.storage.Insert(ctx, item.EntityKind, snap); err != nil {
			w := fmt.Sprintf("recreate %s %v: %v", item.EntityKind, snap["id"], err)
			logger.Warn("[Engine] %s", w)
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}

func (e *Engine) deleteSnapshots(ctx context.Context, item *domain.HistoryItem) ([]string, error) {
	var warnings []string
	for _, snap := range item.Payload.Snapshots {
		id, ok := snapshotID(snap)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("delete %s: snapshot without id", item.EntityKind))
			continue
		}
		if err := e.storage.DeleteByID(ctx, item.EntityKind, id); err != nil {
			w := fmt.Sprintf("delete %s %d: %v", item.EntityKind, id, err)
			logger.Warn("[Engine] %s", w)
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}

func (e *Engine) applyPlacements(ctx context.Context, item *domain.HistoryItem, forward bool) ([]string, error) {
	field := parentField(item.EntityKind)

	var warnings []string
	for _, move := range item.Payload.Moves {
		fields := domain.Record{}
		if forward {
			fields[field] = move.NewParentID
			fields["sort_order"] = move.NewPosition
		} else {
			fields[field] = move.OldParentID
			fields["sort_order"] = move.OldPosition
		}
		if err := e.forceWrite(ctx, item.EntityKind, move.ID, fields); err != nil {
			w := fmt.Sprintf("reposition %s %d: %v", item.EntityKind, move.ID, err)
			logger.Warn("[Engine] %s", w)
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}

// writeBack restores a snapshot's mutable fields. Undo does not re-run
// conflict detection against a third concurrent writer; the write goes in at
// whatever version is current (known limitation).
func (e *Engine) writeBack(ctx context.Context, kind domain.EntityKind, snap domain.Record) error {
	fields := domain.Record{}
	for _, name := range diff.SemanticFields(kind) {
		if v, ok := snap[name]; ok {
			fields[name] = v
		}
	}
	if kind == domain.KindTask {
		if v, ok := snap["completed_at"]; ok {
			fields["completed_at"] = v
		}
	}

	id, ok := snapshotID(snap)
	if !ok {
		return fmt.Errorf("snapshot without id")
	}
	return e.forceWrite(ctx, kind, id, fields)
}

// forceWrite performs an unconditioned update through the conditional-write
// storage port by reading the current version first.
func (e *Engine) forceWrite(ctx context.Context, kind domain.EntityKind, id int64, fields domain.Record) error {
	current, err := e.storage.FetchByID(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("fetch current: %w", err)
	}
	if current == nil {
		return common.ErrNotFound
	}
	if _, err := e.storage.ConditionalUpdate(ctx, kind, id, fields, current.Version()); err != nil {
		return fmt.Errorf("write back: %w", err)
	}
	return nil
}

func parentField(kind domain.EntityKind) string {
	if kind == domain.KindDirectory {
		return "parent_id"
	}
	return "directory_id"
}

func snapshotID(snap domain.Record) (int64, bool) {
	switch v := snap["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
