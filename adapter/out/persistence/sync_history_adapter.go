package persistence

import (
	"context"
	"fmt"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"
	"sync_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository implements out.HistoryRepository over the action_history
// table. The payload column is JSONB; expired rows are left in place and
// filtered on read.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) out.HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, item *domain.HistoryItem) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("marshal history payload: %w", err)
	}

	query := `
		INSERT INTO action_history (
			id, user_id, action, entity_kind, payload, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Action, item.EntityKind,
		payload, item.CreatedAt, item.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) LoadUnexpired(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*domain.HistoryItem, error) {
	var conditions string
	args := []interface{}{userID}
	if before != nil {
		conditions = "user_id = $1 AND expires_at > NOW() AND created_at < $2"
		args = append(args, *before)
	} else {
		conditions = "user_id = $1 AND expires_at > NOW()"
	}

	// Fetch the newest page, then reverse so callers always see ascending
	// creation order.
	query := fmt.Sprintf(`
		SELECT id, user_id, action, entity_kind, payload, created_at, expires_at
		FROM action_history
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d`, conditions, limit)

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	items := make([]*domain.HistoryItem, len(rows))
	for i, row := range rows {
		items[len(rows)-1-i] = row.toDomain()
	}
	return items, nil
}

type historyRow struct {
	ID         string    `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	Action     string    `db:"action"`
	EntityKind string    `db:"entity_kind"`
	Payload    []byte    `db:"payload"`
	CreatedAt  time.Time `db:"created_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}

func (r *historyRow) toDomain() *domain.HistoryItem {
	item := &domain.HistoryItem{
		ID:         r.ID,
		UserID:     r.UserID,
		Action:     domain.ActionType(r.Action),
		EntityKind: domain.EntityKind(r.EntityKind),
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &item.Payload); err != nil {
			logger.Warn("[HistoryRepository] corrupt payload for item %s: %v", r.ID, err)
		}
	}
	return item
}
