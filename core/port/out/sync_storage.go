package out

import (
	"context"

	"sync_server/core/domain"
)

// Storage is the outbound port for the remote record store. The consistency
// layer never assumes an exclusive lease; the only correctness primitive is
// the version-qualified conditional update.
type Storage interface {
	// ConditionalUpdate applies fields to the record iff its stored version
	// equals expectedVersion, incrementing the version. Returns the updated
	// record, or common.ErrVersionMismatch when the compare-and-swap is
	// rejected, or common.ErrNotFound when the record does not exist.
	ConditionalUpdate(ctx context.Context, kind domain.EntityKind, id int64, fields domain.Record, expectedVersion int64) (domain.Record, error)

	// FetchByID returns the current record, or nil when it does not exist.
	FetchByID(ctx context.Context, kind domain.EntityKind, id int64) (domain.Record, error)

	// Insert creates a record, preserving its id when one is set (required
	// for undo of deletes). Returns the stored record.
	Insert(ctx context.Context, kind domain.EntityKind, rec domain.Record) (domain.Record, error)

	// DeleteByID removes a record. Deleting a missing record is not an error.
	DeleteByID(ctx context.Context, kind domain.EntityKind, id int64) error
}
