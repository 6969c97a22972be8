package mongodb

import (
	"context"
	"fmt"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB History Adapter
// =============================================================================

const collectionActionHistory = "action_history"

// HistoryAdapter implements out.HistoryRepository using MongoDB. It is the
// alternative history backend, selected when MONGODB_URL is configured.
// Like the Postgres backend, reads filter on expires_at, so expired items are
// never served; the TTL index is storage garbage collection on top of that,
// whereas the Postgres backend leaves expired rows in place.
type HistoryAdapter struct {
	collection *mongo.Collection
}

// NewHistoryAdapter creates a new MongoDB history adapter.
func NewHistoryAdapter(db *mongo.Database) *HistoryAdapter {
	return &HistoryAdapter{collection: db.Collection(collectionActionHistory)}
}

var _ out.HistoryRepository = (*HistoryAdapter)(nil)

// EnsureIndexes creates necessary indexes for the collection.
func (a *HistoryAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (a *HistoryAdapter) Append(ctx context.Context, item *domain.HistoryItem) error {
	doc := historyDocument{
		ID:         item.ID,
		UserID:     item.UserID.String(),
		Action:     string(item.Action),
		EntityKind: string(item.EntityKind),
		Payload:    item.Payload,
		CreatedAt:  item.CreatedAt,
		ExpiresAt:  item.ExpiresAt,
	}
	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (a *HistoryAdapter) LoadUnexpired(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]*domain.HistoryItem, error) {
	filter := bson.M{
		"user_id":    userID.String(),
		"expires_at": bson.M{"$gt": time.Now()},
	}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": *before}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	// Newest page first from the cursor; reverse into ascending order.
	items := make([]*domain.HistoryItem, len(docs))
	for i, doc := range docs {
		items[len(docs)-1-i] = doc.toDomain()
	}
	return items, nil
}

// =============================================================================
// Document Model
// =============================================================================

type historyDocument struct {
	ID         string               `bson:"_id"`
	UserID     string               `bson:"user_id"`
	Action     string               `bson:"action"`
	EntityKind string               `bson:"entity_kind"`
	Payload    domain.ActionPayload `bson:"payload"`
	CreatedAt  time.Time            `bson:"created_at"`
	ExpiresAt  time.Time            `bson:"expires_at"`
}

func (d *historyDocument) toDomain() *domain.HistoryItem {
	userID, _ := uuid.Parse(d.UserID)
	return &domain.HistoryItem{
		ID:         d.ID,
		UserID:     userID,
		Action:     domain.ActionType(d.Action),
		EntityKind: domain.EntityKind(d.EntityKind),
		Payload:    d.Payload,
		CreatedAt:  d.CreatedAt,
		ExpiresAt:  d.ExpiresAt,
	}
}
