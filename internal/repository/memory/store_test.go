package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

func TestStore_EventLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return clock }))

	p, err := s.InsertProduct(ctx, models.NewProduct{Name: "Croissant", Price: decimal.NewFromInt(2), Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Revision)

	batch, err := s.InsertProductionEvents(ctx, []models.NewProductionEvent{{ProductID: p.ID, Quantity: 12, UnitPrice: p.Price}})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, clock, batch[0].CreatedAt)

	clock = clock.Add(2 * time.Hour)
	sales, err := s.InsertSaleEvents(ctx, []models.NewSaleEvent{{ProductID: p.ID, Quantity: 3, RecordedBy: "sales"}})
	require.NoError(t, err)

	rev := int64(1)
	require.NoError(t, s.UpdateEventQuantity(ctx, models.KindSale, sales[0].ID, 4, &rev))
	err = s.UpdateEventQuantity(ctx, models.KindSale, sales[0].ID, 5, &rev)
	assert.ErrorIs(t, err, models.ErrConflict, "stale revision must be rejected")

	require.NoError(t, s.UpdateEventQuantity(ctx, models.KindSale, sales[0].ID, 6, nil))
	listed, err := s.ListSaleEvents(ctx, models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 6, listed[0].Quantity)
	assert.Equal(t, int64(3), listed[0].Revision)

	require.NoError(t, s.DeleteEvent(ctx, models.KindProduction, batch[0].ID))
	assert.ErrorIs(t, s.DeleteEvent(ctx, models.KindProduction, batch[0].ID), models.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEventQuantity(ctx, models.KindProduction, uuid.New(), 1, nil), models.ErrNotFound)
}

func TestStore_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := uuid.New()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	var evs []models.ProductionEvent
	for i := 0; i < 4; i++ {
		evs = append(evs, models.ProductionEvent{ID: uuid.New(), ProductID: pid, Quantity: i + 1, CreatedAt: base.AddDate(0, 0, i)})
	}
	s.Seed(nil, evs, nil)

	since := base.AddDate(0, 0, 1)
	got, err := s.ListProductionEvents(ctx, models.EventFilter{Since: &since, Descending: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Quantity)
	assert.Equal(t, 2, got[2].Quantity)
}

func TestStore_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.InsertProduct(ctx, models.NewProduct{Name: "Bun", Price: decimal.NewFromInt(1), Active: true})
	require.NoError(t, err)

	inactive := false
	updated, err := s.UpdateProduct(ctx, p.ID, models.ProductPatch{Active: &inactive}, nil)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Bun", updated.Name)
	assert.Equal(t, int64(2), updated.Revision)

	stale := int64(1)
	_, err = s.UpdateProduct(ctx, p.ID, models.ProductPatch{Active: &inactive}, &stale)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = s.UpdateProduct(ctx, uuid.New(), models.ProductPatch{Active: &inactive}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
