package out

import (
	"context"

	"sync_server/core/domain"
)

// VersionCache is the outbound port for the last-observed version of each
// record. It backs the read-only cached copy a device holds between its read
// and its write; it is advisory only and never consulted for correctness.
type VersionCache interface {
	// GetVersion returns the cached version, or 0 when unknown.
	GetVersion(ctx context.Context, kind domain.EntityKind, id int64) (int64, error)

	// SetVersion records the version observed after an accepted write.
	SetVersion(ctx context.Context, kind domain.EntityKind, id int64, version int64) error

	// Invalidate drops the cached version after a delete.
	Invalidate(ctx context.Context, kind domain.EntityKind, id int64) error
}
