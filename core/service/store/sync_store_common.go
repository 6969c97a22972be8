// Package store implements the task and directory store layers: the callers
// of the concurrency guard that apply the conflict resolution policy and
// record every successful mutation into the undo engine.
package store

import (
	"context"
	"fmt"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/core/service/conflict"
	"sync_server/pkg/logger"

	"github.com/google/uuid"
)

// maxWriteAttempts bounds the auto-merge/resolution retry loop so racing
// writers cannot ping-pong forever.
const maxWriteAttempts = 4

// guardedWrite is the result of a policy-applied write.
type guardedWrite struct {
	// record is the stored record after the accepted write.
	record domain.Record
	// preImage is the snapshot the accepted write was issued against; it is
	// the undo pre-image.
	preImage domain.Record
	// conflict is set instead of record when manual resolution is required
	// and no blocking resolver is configured; the conflict is parked in the
	// pending slot.
	conflict     *domain.ConflictRecord
	autoResolved bool
}

// writer applies the resolution policy on top of the guard: silent
// auto-merge when no critical field conflicts, otherwise escalation to the
// resolution collaborator (blocking when configured, parked otherwise).
// Parking goes into the calling user's slot.
type writer struct {
	guard    *conflict.Guard
	slots    *conflict.Slots
	resolver out.ConflictResolver
}

func (w *writer) write(ctx context.Context, userID uuid.UUID, kind domain.EntityKind, id int64, updates domain.Record, expectedVersion int64, local, preImage domain.Record) (*guardedWrite, error) {
	slot := w.slots.ForUser(userID)
	fields := updates
	base := preImage
	autoResolved := false

	for attempt := 1; ; attempt++ {
		out, err := w.guard.Write(ctx, kind, id, fields, expectedVersion, local)
		if err != nil {
			return nil, err
		}
		if out.Applied {
			return &guardedWrite{record: out.Record, preImage: base, autoResolved: autoResolved}, nil
		}

		c := out.Conflict
		if attempt >= maxWriteAttempts {
			return nil, fmt.Errorf("write %s %d: %w after %d attempts", kind, id, common.ErrVersionMismatch, attempt)
		}

		if conflict.IsAutoResolvable(c.ConflictingFields, kind) && c.RemoteData != nil {
			logger.Info("[store.write] auto-merging %s %d fields %v", kind, id, c.ConflictingFields.Names())
			fields = c.AutoMerge()
			local = fields
			expectedVersion = c.RemoteVersion
			base = c.RemoteData
			autoResolved = true
			continue
		}

		if w.resolver == nil {
			if holdErr := slot.Hold(c); holdErr != nil {
				return nil, holdErr
			}
			return &guardedWrite{conflict: c, preImage: base}, nil
		}

		if holdErr := slot.Hold(c); holdErr != nil {
			return nil, holdErr
		}
		res, resErr := w.resolver.Resolve(ctx, c)
		slot.Release(c.ID)
		if resErr != nil {
			return nil, resErr
		}
		if res == nil {
			return nil, common.ErrMutationCancelled
		}

		fields = c.ChosenData(res)
		local = fields
		expectedVersion = c.RemoteVersion
		base = c.RemoteData
	}
}

// ensureOwner verifies the record belongs to the user.
func ensureOwner(rec domain.Record, userID uuid.UUID) error {
	if domain.RecordUserID(rec) != userID {
		return common.ErrUnauthorized
	}
	return nil
}

// cacheVersion records the last observed version, best-effort.
func cacheVersion(ctx context.Context, versions out.VersionCache, kind domain.EntityKind, rec domain.Record) {
	if versions == nil || rec == nil {
		return
	}
	id, ok := rec["id"].(int64)
	if !ok {
		return
	}
	if err := versions.SetVersion(ctx, kind, id, rec.Version()); err != nil {
		logger.Debug("[store] version cache set failed for %s %d: %v", kind, id, err)
	}
}

// dropVersion invalidates a cached version after delete, best-effort.
func dropVersion(ctx context.Context, versions out.VersionCache, kind domain.EntityKind, id int64) {
	if versions == nil {
		return
	}
	if err := versions.Invalidate(ctx, kind, id); err != nil {
		logger.Debug("[store] version cache invalidate failed for %s %d: %v", kind, id, err)
	}
}

func recordInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func recordInt64Ptr(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case *int64:
		return n
	case int64:
		return &n
	case int, float64:
		r := recordInt64(v)
		return &r
	}
	return nil
}
