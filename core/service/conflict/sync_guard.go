package conflict

import (
	"context"
	"errors"
	"fmt"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/core/service/common"
	"sync_server/core/service/diff"
	"sync_server/pkg/logger"
)

// WriteOutcome is the result of a guarded write: Applied with the new record,
// or a ConflictRecord describing why the compare-and-swap was rejected.
type WriteOutcome struct {
	Applied  bool
	Record   domain.Record
	Conflict *domain.ConflictRecord
}

// Guard orchestrates conditional writes against the storage collaborator.
type Guard struct {
	storage out.Storage
}

// NewGuard creates a ConcurrencyGuard over the given storage.
func NewGuard(storage out.Storage) *Guard {
	return &Guard{storage: storage}
}

// Write attempts a version-qualified update. On rejection it fetches the
// current remote snapshot and builds a ConflictRecord; the caller applies the
// resolution policy. A transport failure on the update is treated as a
// possible rejection (the write may have landed server-side), never as lost.
func (g *Guard) Write(ctx context.Context, kind domain.EntityKind, id int64, fields domain.Record, expectedVersion int64, localSnapshot domain.Record) (*WriteOutcome, error) {
	updated, err := g.storage.ConditionalUpdate(ctx, kind, id, fields, expectedVersion)
	if err == nil {
		return &WriteOutcome{Applied: true, Record: updated}, nil
	}

	if !errors.Is(err, common.ErrVersionMismatch) && !errors.Is(err, common.ErrNotFound) {
		logger.Warn("[Guard.Write] conditional update failed for %s %d, treating as possible conflict: %v", kind, id, err)
	}

	local := localSnapshot.Merge(fields)

	remote, fetchErr := g.storage.FetchByID(ctx, kind, id)
	if fetchErr != nil || remote == nil {
		// The remote state is unknown; synthesize a conflict from the stale
		// expectation so the caller always has something actionable.
		if fetchErr != nil {
			logger.Warn("[Guard.Write] remote fetch failed for %s %d: %v", kind, id, fetchErr)
		}
		conflict := domain.NewConflictRecord(kind, id,
			expectedVersion, expectedVersion+1,
			local, nil,
			domain.NewFieldSet("version"))
		return &WriteOutcome{Conflict: conflict}, nil
	}

	conflicting := diff.Diff(local, remote, kind)
	if len(conflicting) == 0 {
		// Versions diverged but no semantic field did (e.g. the concurrent
		// writer touched only bookkeeping). Still a conflict to resolve.
		conflicting = domain.NewFieldSet("version")
	}

	conflict := domain.NewConflictRecord(kind, id,
		expectedVersion, remote.Version(),
		local, remote,
		conflicting)
	return &WriteOutcome{Conflict: conflict}, nil
}

// Retry re-issues a write with resolved data against the remote version.
func (g *Guard) Retry(ctx context.Context, conflict *domain.ConflictRecord, data domain.Record) (*WriteOutcome, error) {
	if conflict.RemoteData == nil {
		return nil, fmt.Errorf("retry %s %d: no remote snapshot to write against", conflict.EntityKind, conflict.EntityID)
	}
	return g.Write(ctx, conflict.EntityKind, conflict.EntityID, data, conflict.RemoteVersion, conflict.RemoteData)
}
