package out

import (
	"context"

	"sync_server/core/domain"
)

// ConflictResolver is the outbound port to the external resolution
// collaborator (the device UI). The core never renders UI itself.
//
// Resolve blocks until a decision is made. A cancelled resolution is
// reported as common.ErrMutationCancelled, which abandons the triggering
// mutation: no write is performed and no undo entry is recorded.
type ConflictResolver interface {
	Resolve(ctx context.Context, conflict *domain.ConflictRecord) (*domain.Resolution, error)
}

// ResolverFunc adapts a function to the ConflictResolver port.
type ResolverFunc func(ctx context.Context, conflict *domain.ConflictRecord) (*domain.Resolution, error)

func (f ResolverFunc) Resolve(ctx context.Context, conflict *domain.ConflictRecord) (*domain.Resolution, error) {
	return f(ctx, conflict)
}
