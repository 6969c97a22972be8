package history

import (
	"context"
	"fmt"

	"sync_server/core/domain"
	"sync_server/core/port/in"

	"github.com/google/uuid"
)

// Service implements in.HistoryService over the per-user engine registry.
type Service struct {
	registry *Registry
}

// NewService creates the history service.
func NewService(registry *Registry) in.HistoryService {
	return &Service{registry: registry}
}

func (s *Service) Undo(ctx context.Context, userID uuid.UUID) (*in.HistoryResult, error) {
	eng := s.registry.ForUser(ctx, userID)

	item, err := eng.Undo()
	if err != nil {
		return nil, err
	}
	if item == nil {
		// The in-memory window may start after older persisted history;
		// fetch a page and retry once.
		n, loadErr := eng.LoadMore(ctx)
		if loadErr != nil || n == 0 {
			return &in.HistoryResult{}, loadErr
		}
		if item, err = eng.Undo(); err != nil {
			return nil, err
		}
		if item == nil {
			return &in.HistoryResult{}, nil
		}
	}

	warnings, err := eng.ApplyInverse(ctx, item)
	if err != nil {
		eng.revertUndo()
		return nil, fmt.Errorf("undo %s: %w", item.Action, err)
	}
	return &in.HistoryResult{Item: item, Warnings: warnings}, nil
}

func (s *Service) Redo(ctx context.Context, userID uuid.UUID) (*in.HistoryResult, error) {
	eng := s.registry.ForUser(ctx, userID)

	item, err := eng.Redo()
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &in.HistoryResult{}, nil
	}

	warnings, err := eng.ApplyForward(ctx, item)
	if err != nil {
		eng.revertRedo()
		return nil, fmt.Errorf("redo %s: %w", item.Action, err)
	}
	return &in.HistoryResult{Item: item, Warnings: warnings}, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*domain.HistoryItem, int, error) {
	eng := s.registry.ForUser(ctx, userID)
	items, current := eng.Items()
	return items, current, nil
}
