package bakery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/metrics"
	"github.com/mamadbah2/bakery/internal/repository"
	"github.com/mamadbah2/bakery/internal/repository/memory"
)

var (
	clockNow  = time.Date(2025, 4, 14, 15, 0, 0, 0, time.UTC)
	yesterday = clockNow.AddDate(0, 0, -1)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc   *Service
	store *memory.Store
	bread models.Product
	cake  models.Product
	old   models.Product
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	f := fixture{
		store: memory.New(memory.WithClock(func() time.Time { return clockNow })),
		bread: models.Product{ID: uuid.New(), Name: "Bread", Price: dec("2.00"), Active: true, Revision: 1},
		cake:  models.Product{ID: uuid.New(), Name: "Cake", Price: dec("5.50"), Active: true, Revision: 1},
		old:   models.Product{ID: uuid.New(), Name: "Old Roll", Price: dec("1.00"), Active: false, Revision: 1},
	}
	f.store.Seed([]models.Product{f.bread, f.cake, f.old}, nil, nil)
	opts = append([]Option{WithClock(func() time.Time { return clockNow })}, opts...)
	f.svc = NewService(f.store, nil, opts...)
	return f
}

func TestRecordProduction_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		lines []ProductionLine
	}{
		{"empty submission", nil},
		{"negative quantity", []ProductionLine{{ProductID: f.bread.ID, Quantity: -1}}},
		{"only zero lines", []ProductionLine{{ProductID: f.bread.ID, Quantity: 0}}},
		{"unknown product", []ProductionLine{{ProductID: uuid.New(), Quantity: 3}}},
		{"inactive product", []ProductionLine{{ProductID: f.old.ID, Quantity: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordProduction(ctx, tt.lines)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestRecordProduction_UsesCurrentPriceAndSkipsZeroLines(t *testing.T) {
	reg := metrics.NewRegistry()
	f := newFixture(t, WithMetrics(reg))

	events, err := f.svc.RecordProduction(context.Background(), []ProductionLine{
		{ProductID: f.bread.ID, Quantity: 10},
		{ProductID: f.cake.ID, Quantity: 0},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 10, events[0].Quantity)
	assert.True(t, events[0].UnitPrice.Equal(dec("2")))
	assert.Equal(t, clockNow, events[0].CreatedAt)
}

func TestRecordSales_StockCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Seed(nil, []models.ProductionEvent{
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 10, UnitPrice: dec("2"), CreatedAt: clockNow.Add(-time.Hour)},
		{ID: uuid.New(), ProductID: f.cake.ID, Quantity: 5, UnitPrice: dec("5.5"), CreatedAt: yesterday},
	}, nil)

	_, err := f.svc.RecordSales(ctx, "Father", []SaleLine{{ProductID: f.bread.ID, Quantity: 11}})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	_, err = f.svc.RecordSales(ctx, "Father", []SaleLine{
		{ProductID: f.bread.ID, Quantity: 6},
		{ProductID: f.bread.ID, Quantity: 5},
	})
	assert.ErrorIs(t, err, models.ErrInsufficientStock, "lines for the same product are summed")

	// Yesterday's cake does not count toward today's stock.
	_, err = f.svc.RecordSales(ctx, "Father", []SaleLine{{ProductID: f.cake.ID, Quantity: 1}})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	_, err = f.svc.RecordSales(ctx, "Father", []SaleLine{{ProductID: f.old.ID, Quantity: 1}})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.RecordSales(ctx, "  ", []SaleLine{{ProductID: f.bread.ID, Quantity: 1}})
	assert.ErrorIs(t, err, models.ErrValidation)

	events, err := f.svc.RecordSales(ctx, "Father", []SaleLine{{ProductID: f.bread.ID, Quantity: 7}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UnitPrice)
	assert.True(t, events[0].UnitPrice.Equal(dec("2")))
	assert.Equal(t, "Father", events[0].RecordedBy)

	board, err := f.svc.SalesBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2, "inactive products are hidden")
	assert.Equal(t, "Bread", board[0].Product.Name)
	assert.Equal(t, 10, board[0].Produced)
	assert.Equal(t, 7, board[0].Sold)
	assert.Equal(t, 3, board[0].Available)
	assert.True(t, board[0].MadeValue.Equal(dec("20")))
	assert.True(t, board[0].SoldValue.Equal(dec("14")))
	assert.Equal(t, 0, board[1].Available)
}

func TestHistory_RefetchAfterMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batchID, saleID := uuid.New(), uuid.New()
	f.store.Seed(nil,
		[]models.ProductionEvent{{ID: batchID, ProductID: f.bread.ID, Quantity: 10, UnitPrice: dec("2"), CreatedAt: clockNow, Revision: 1}},
		[]models.SaleEvent{{ID: saleID, ProductID: f.bread.ID, Quantity: 7, CreatedAt: clockNow, Revision: 1}},
	)

	days, err := f.svc.History(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].TotalRevenue.Equal(dec("14")))
	assert.True(t, days[0].TotalUnsoldValue.Equal(dec("6")))

	require.NoError(t, f.svc.EditEventQuantity(ctx, models.KindSale, saleID, 12, nil))
	days, err = f.svc.History(ctx, HistoryQuery{})
	require.NoError(t, err)
	bread, ok := days[0].Product(f.bread.ID)
	require.True(t, ok)
	assert.Equal(t, 0, bread.Unsold, "oversold days clamp to zero")
	assert.True(t, bread.Revenue.Equal(dec("24")))

	require.NoError(t, f.svc.DeleteEvent(ctx, models.KindProduction, batchID))
	days, err = f.svc.History(ctx, HistoryQuery{WithEvents: true})
	require.NoError(t, err)
	bread, _ = days[0].Product(f.bread.ID)
	assert.Equal(t, 0, bread.Produced)
	assert.Len(t, bread.SaleEvents, 1)
}

func TestHistory_Since(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(nil, []models.ProductionEvent{
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 1, UnitPrice: dec("2"), CreatedAt: clockNow},
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 1, UnitPrice: dec("2"), CreatedAt: yesterday},
	}, nil)

	days, err := f.svc.History(context.Background(), HistoryQuery{Since: models.DayKey("2025-04-14")})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, models.DayKey("2025-04-14"), days[0].Day)
}

func TestDay_EmptyDay(t *testing.T) {
	f := newFixture(t)
	day, err := f.svc.Day(context.Background(), models.DayKey("2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, "Thursday, 10 April 2025", day.Label)
	assert.Empty(t, day.Products)
	assert.True(t, day.TotalRevenue.IsZero())
}

func TestLedger_TrimsBeforeSince(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(nil, []models.ProductionEvent{
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 10, UnitPrice: dec("2"), CreatedAt: yesterday},
	}, []models.SaleEvent{
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 4, CreatedAt: yesterday},
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 2, CreatedAt: clockNow},
	})

	days, err := f.svc.Ledger(context.Background(), models.DayKey("2025-04-14"))
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Entries, 1)
	assert.Equal(t, 6, days[0].Entries[0].Opening)
	assert.Equal(t, 4, days[0].Entries[0].Closing)
}

func TestListProducts_ActiveFirst(t *testing.T) {
	f := newFixture(t)

	all, err := f.svc.ListProducts(context.Background(), false)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Bread", "Cake", "Old Roll"}, names)

	active, err := f.svc.ListProducts(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	p, err := f.svc.FindProduct(context.Background(), "bread")
	require.NoError(t, err)
	assert.Equal(t, f.bread.ID, p.ID)

	_, err = f.svc.FindProduct(context.Background(), "old roll")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, models.NewProduct{Name: " ", Price: dec("1")})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.CreateProduct(ctx, models.NewProduct{Name: "Scone", Price: dec("-1")})
	assert.ErrorIs(t, err, models.ErrValidation)

	scone, err := f.svc.CreateProduct(ctx, models.NewProduct{Name: " Scone ", Price: dec("3.25"), Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Scone", scone.Name)

	price := dec("3.50")
	updated, err := f.svc.UpdateProduct(ctx, scone.ID, models.ProductPatch{Price: &price}, &scone.Revision)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))

	_, err = f.svc.SetProductActive(ctx, scone.ID, false, &scone.Revision)
	assert.ErrorIs(t, err, models.ErrConflict, "stale revision")

	off, err := f.svc.SetProductActive(ctx, scone.ID, false, nil)
	require.NoError(t, err)
	assert.False(t, off.Active)

	_, err = f.svc.UpdateProduct(ctx, scone.ID, models.ProductPatch{}, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.UpdateProduct(ctx, uuid.New(), models.ProductPatch{Price: &price}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// countingStore wraps a Store and fails or blocks on demand.
type countingStore struct {
	repository.Store
	calls   atomic.Int32
	failOn  string
	blockOn string
}

var errBoom = errors.New("connection refused")

func (c *countingStore) hit(ctx context.Context, op string) error {
	c.calls.Add(1)
	if op == c.blockOn {
		<-ctx.Done()
		return ctx.Err()
	}
	if op == c.failOn {
		return models.Unavailable(op, errBoom)
	}
	return nil
}

func (c *countingStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	if err := c.hit(ctx, "products"); err != nil {
		return nil, err
	}
	return c.Store.ListProducts(ctx)
}

func (c *countingStore) ListSaleEvents(ctx context.Context, f models.EventFilter) ([]models.SaleEvent, error) {
	if err := c.hit(ctx, "sales"); err != nil {
		return nil, err
	}
	return c.Store.ListSaleEvents(ctx, f)
}

func (c *countingStore) UpdateEventQuantity(ctx context.Context, kind models.EventKind, id uuid.UUID, qty int, rev *int64) error {
	if err := c.hit(ctx, "update"); err != nil {
		return err
	}
	return c.Store.UpdateEventQuantity(ctx, kind, id, qty, rev)
}

func TestSnapshot_AnyFailureFailsWhole(t *testing.T) {
	reg := metrics.NewRegistry()
	store := &countingStore{Store: memory.New(), failOn: "sales"}
	svc := NewService(store, nil, WithMetrics(reg))

	_, err := svc.History(context.Background(), HistoryQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBoom)
}

func TestSnapshot_Timeout(t *testing.T) {
	store := &countingStore{Store: memory.New(), blockOn: "products"}
	svc := NewService(store, nil, WithFetchTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Snapshot(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEditEventQuantity_ValidatesBeforeStore(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc := NewService(store, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.EditEventQuantity(ctx, models.KindSale, uuid.New(), -1, nil), models.ErrValidation)
	assert.ErrorIs(t, svc.EditEventQuantity(ctx, models.EventKind("refund"), uuid.New(), 1, nil), models.ErrValidation)
	assert.ErrorIs(t, svc.EditEventQuantity(ctx, models.KindSale, uuid.Nil, 1, nil), models.ErrValidation)
	assert.ErrorIs(t, svc.DeleteEvent(ctx, models.KindProduction, uuid.Nil), models.ErrValidation)
	assert.Equal(t, int32(0), store.calls.Load())

	err := svc.EditEventQuantity(ctx, models.KindSale, uuid.New(), 0, nil)
	assert.ErrorIs(t, err, models.ErrNotFound, "zero is a valid quantity; the row is simply missing")
	assert.Equal(t, int32(1), store.calls.Load())
}
