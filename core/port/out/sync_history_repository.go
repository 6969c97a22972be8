package out

import (
	"context"
	"time"

	"sync_server/core/domain"

	"github.com/google/uuid"
)

// HistoryRepository is the outbound port for durable history persistence.
// Appends are best-effort: the undo stack is a convenience layer, not a
// durability guarantee, and append failures are logged and swallowed.
type HistoryRepository interface {
	// Append stores one history item.
	Append(ctx context.Context, item *domain.HistoryItem) error

	// LoadUnexpired returns up to limit unexpired items for the user, ordered
	// by creation time ascending. When before is non-nil only items created
	// strictly earlier are returned (older-page fetch).
	LoadUnexpired(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*domain.HistoryItem, error)
}
