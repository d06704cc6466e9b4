package bakery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// EditEventQuantity overwrites the quantity of one production or sale row.
// Callers re-fetch History afterwards; nothing is aggregated here.
func (s *Service) EditEventQuantity(ctx context.Context, kind models.EventKind, id uuid.UUID, quantity int, expectedRevision *int64) error {
	if err := validateEventRef(kind, id); err != nil {
		return err
	}
	if quantity < 0 {
		return models.NewValidationError("quantity", "must be a non-negative integer")
	}

	if err := s.store.UpdateEventQuantity(ctx, kind, id, quantity, expectedRevision); err != nil {
		s.storeFailed("update_"+string(kind), err)
		return fmt.Errorf("edit %s quantity: %w", kind, err)
	}
	s.logger.Info("event quantity edited",
		zap.String("kind", string(kind)),
		zap.String("event_id", id.String()),
		zap.Int("quantity", quantity),
	)
	return nil
}

// DeleteEvent removes one production or sale row.
func (s *Service) DeleteEvent(ctx context.Context, kind models.EventKind, id uuid.UUID) error {
	if err := validateEventRef(kind, id); err != nil {
		return err
	}

	if err := s.store.DeleteEvent(ctx, kind, id); err != nil {
		s.storeFailed("delete_"+string(kind), err)
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	s.logger.Info("event deleted", zap.String("kind", string(kind)), zap.String("event_id", id.String()))
	return nil
}

func validateEventRef(kind models.EventKind, id uuid.UUID) error {
	if kind != models.KindProduction && kind != models.KindSale {
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}
	if id == uuid.Nil {
		return models.NewValidationError("id", "must be a valid event id")
	}
	return nil
}
