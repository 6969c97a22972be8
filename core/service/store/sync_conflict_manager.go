package store

import (
	"context"
	"fmt"

	"sync_server/core/domain"
	"sync_server/core/port/in"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/core/service/conflict"
	"sync_server/core/service/history"
	"sync_server/pkg/logger"

	"github.com/google/uuid"
)

// ConflictManager implements in.ConflictService over the per-user pending
// slots. It is the server-side half of the resolution flow: a rejected write
// parks its conflict in the caller's slot, the device inspects it and posts a
// decision here. All lookups go through the caller's own slot, so one user
// can never see or act on another user's conflict.
type ConflictManager struct {
	guard    *conflict.Guard
	slots    *conflict.Slots
	registry *history.Registry
	versions out.VersionCache
}

func NewConflictManager(guard *conflict.Guard, slots *conflict.Slots, registry *history.Registry, versions out.VersionCache) in.ConflictService {
	return &ConflictManager{guard: guard, slots: slots, registry: registry, versions: versions}
}

func (m *ConflictManager) PendingConflict(ctx context.Context, userID uuid.UUID) (*domain.ConflictRecord, error) {
	return m.slots.ForUser(userID).Get(), nil
}

func (m *ConflictManager) ResolveConflict(ctx context.Context, userID uuid.UUID, conflictID string, res *domain.Resolution) (*in.ResolveResult, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: missing resolution", common.ErrInvalidInput)
	}

	slot := m.slots.ForUser(userID)
	c := slot.Take(conflictID)
	if c == nil {
		return nil, fmt.Errorf("conflict %s: %w", conflictID, common.ErrNotFound)
	}

	if res.Choice == domain.ResolutionRemote {
		// Accepting the remote state needs no write; the local edit is
		// simply dropped.
		logger.Info("[ConflictManager.ResolveConflict] %s %d resolved in favor of remote v%d", c.EntityKind, c.EntityID, c.RemoteVersion)
		return &in.ResolveResult{EntityKind: c.EntityKind, Record: c.RemoteData}, nil
	}

	outcome, err := m.guard.Retry(ctx, c, c.ChosenData(res))
	if err != nil {
		// Put the conflict back so the device can try again or cancel.
		if holdErr := slot.Hold(c); holdErr != nil {
			logger.Warn("[ConflictManager.ResolveConflict] could not re-park conflict %s: %v", c.ID, holdErr)
		}
		return nil, fmt.Errorf("resolve conflict %s: %w", conflictID, err)
	}

	if !outcome.Applied {
		// A third writer raced the resolution. Park the fresh conflict and
		// hand it back for another round.
		if holdErr := slot.Hold(outcome.Conflict); holdErr != nil {
			return nil, holdErr
		}
		logger.Info("[ConflictManager.ResolveConflict] %s %d raced during resolution, new conflict %s parked", c.EntityKind, c.EntityID, outcome.Conflict.ID)
		return &in.ResolveResult{EntityKind: c.EntityKind, Conflict: outcome.Conflict}, nil
	}

	m.registry.ForUser(ctx, userID).Record(domain.ActionUpdate, c.EntityKind, domain.ActionPayload{
		Before: c.RemoteData,
		After:  outcome.Record,
	})
	cacheVersion(ctx, m.versions, c.EntityKind, outcome.Record)

	logger.Info("[ConflictManager.ResolveConflict] %s %d resolved via %s at v%d", c.EntityKind, c.EntityID, res.Choice, outcome.Record.Version())
	return &in.ResolveResult{EntityKind: c.EntityKind, Record: outcome.Record}, nil
}

func (m *ConflictManager) CancelConflict(ctx context.Context, userID uuid.UUID, conflictID string) error {
	if m.slots.ForUser(userID).Take(conflictID) == nil {
		return fmt.Errorf("conflict %s: %w", conflictID, common.ErrNotFound)
	}
	logger.Info("[ConflictManager.CancelConflict] conflict %s abandoned", conflictID)
	return nil
}
