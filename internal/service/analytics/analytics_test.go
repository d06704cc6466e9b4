package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

var now = time.Date(2025, 4, 16, 15, 0, 0, 0, time.UTC) // Wednesday

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2025, month, day, hour, 0, 0, 0, time.UTC)
}

type fixture struct {
	bread, cake, pie models.Product
	ghost            uuid.UUID
	in               reconciliation.Input
}

func newFixture() fixture {
	f := fixture{
		bread: models.Product{ID: uuid.New(), Name: "Bread", Price: dec("2"), Active: true},
		cake:  models.Product{ID: uuid.New(), Name: "Cake", Price: dec("5"), Active: true},
		pie:   models.Product{ID: uuid.New(), Name: "Pie", Price: dec("3"), Active: true},
		ghost: uuid.New(),
	}
	f.in = reconciliation.Input{
		Products: []models.Product{f.bread, f.cake, f.pie},
		Production: []models.ProductionEvent{
			{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 10, UnitPrice: dec("2"), CreatedAt: at(4, 15, 9)},
			{ID: uuid.New(), ProductID: f.cake.ID, Quantity: 4, UnitPrice: dec("5"), CreatedAt: at(4, 16, 8)},
			{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 5, UnitPrice: dec("1.5"), CreatedAt: at(4, 1, 9)},
			{ID: uuid.New(), ProductID: f.cake.ID, Quantity: 3, UnitPrice: dec("5"), CreatedAt: at(3, 30, 9)},
		},
		Sales: []models.SaleEvent{
			{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 7, CreatedAt: at(4, 15, 10)},
			{ID: uuid.New(), ProductID: f.cake.ID, Quantity: 4, CreatedAt: at(4, 16, 9)},
			{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 1, CreatedAt: at(4, 16, 10)},
			{ID: uuid.New(), ProductID: f.ghost, Quantity: 2, CreatedAt: at(4, 16, 11)},
		},
	}
	return f
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeToday, r)

	r, err = ParseRange(" Month ")
	require.NoError(t, err)
	assert.Equal(t, RangeMonth, r)

	_, err = ParseRange("decade")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRangeStart(t *testing.T) {
	assert.Equal(t, at(4, 16, 0), RangeToday.Start(now, time.UTC))
	assert.Equal(t, at(4, 9, 15), RangeWeek.Start(now, time.UTC))
	assert.Equal(t, at(3, 16, 15), RangeMonth.Start(now, time.UTC))
	assert.Equal(t, time.Date(2024, 4, 16, 15, 0, 0, 0, time.UTC), RangeYear.Start(now, time.UTC))
}

func TestBuildDashboard_Week(t *testing.T) {
	f := newFixture()
	d := BuildDashboard(f.in, RangeWeek, now, time.UTC, reconciliation.PriceCurrent)

	assert.True(t, d.TotalRevenue.Equal(dec("36")), d.TotalRevenue.String())
	assert.Equal(t, 14, d.TotalMade)
	assert.Equal(t, 14, d.TotalSold)
	assert.True(t, d.UnsoldValue.Equal(dec("4")))

	require.Len(t, d.Performance, 4)
	names := []string{d.Performance[0].Name, d.Performance[1].Name, d.Performance[2].Name, d.Performance[3].Name}
	assert.Equal(t, []string{"Cake", "Bread", "Pie", models.UnknownProductName}, names)
	assert.Equal(t, 2, d.Performance[1].Unsold)
	assert.True(t, d.Performance[3].Unknown)
	assert.Equal(t, 2, d.Performance[3].Sold)

	require.NotNil(t, d.BestSeller)
	assert.Equal(t, "Bread", d.BestSeller.Name)
	assert.Equal(t, 8, d.BestSeller.Quantity)
	require.NotNil(t, d.WorstSeller)
	assert.Equal(t, "Cake", d.WorstSeller.Name)

	require.Len(t, d.Chart, 2)
	assert.Equal(t, ChartPoint{Key: "2025-04-15", Label: "15 Apr", TotalSales: d.Chart[0].TotalSales}, d.Chart[0])
	assert.True(t, d.Chart[0].TotalSales.Equal(dec("14")))
	assert.Equal(t, "2025-04-16", d.Chart[1].Key)
	assert.True(t, d.Chart[1].TotalSales.Equal(dec("22")))
}

func TestBuildDashboard_ChartBuckets(t *testing.T) {
	f := newFixture()

	today := BuildDashboard(f.in, RangeToday, now, time.UTC, reconciliation.PriceCurrent)
	keys := make([]string, len(today.Chart))
	for i, cp := range today.Chart {
		keys[i] = cp.Key
	}
	assert.Equal(t, []string{"2025-04-16T09", "2025-04-16T10", "2025-04-16T11"}, keys)
	assert.Equal(t, "09:00", today.Chart[0].Label)
	assert.Equal(t, 4, today.TotalMade)

	year := BuildDashboard(f.in, RangeYear, now, time.UTC, reconciliation.PriceCurrent)
	require.Len(t, year.Chart, 1)
	assert.Equal(t, "2025-04", year.Chart[0].Key)
	assert.Equal(t, "Apr 2025", year.Chart[0].Label)
	assert.Equal(t, 22, year.TotalMade)
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(reconciliation.Input{}, RangeMonth, now, nil, reconciliation.PriceCurrent)
	assert.Nil(t, d.BestSeller)
	assert.Nil(t, d.WorstSeller)
	assert.Empty(t, d.Performance)
	assert.Empty(t, d.Chart)
	assert.True(t, d.TotalRevenue.IsZero())
}

func TestBuildDashboard_SnapshotPricing(t *testing.T) {
	f := newFixture()
	captured := dec("1.5")
	f.in.Sales = []models.SaleEvent{
		{ID: uuid.New(), ProductID: f.bread.ID, Quantity: 2, UnitPrice: &captured, CreatedAt: at(4, 16, 10)},
	}

	current := BuildDashboard(f.in, RangeToday, now, time.UTC, reconciliation.PriceCurrent)
	snapshot := BuildDashboard(f.in, RangeToday, now, time.UTC, reconciliation.PriceSnapshot)
	assert.True(t, current.TotalRevenue.Equal(dec("4")))
	assert.True(t, snapshot.TotalRevenue.Equal(dec("3")))
}

func TestBuildProductionStats(t *testing.T) {
	f := newFixture()
	stats := BuildProductionStats(f.in, now, time.UTC)

	assert.Equal(t, at(4, 13, 0), stats.WeekStart, "week starts on Sunday")
	assert.Equal(t, at(4, 1, 0), stats.MonthStart)
	assert.Equal(t, 14, stats.WeekCount)
	assert.Equal(t, 19, stats.MonthCount)
	assert.True(t, stats.MonthValue.Equal(dec("47.5")), stats.MonthValue.String())
	assert.Equal(t, "Bread", stats.TopSeller)

	f.in.Sales = nil
	assert.Equal(t, NoTopSeller, BuildProductionStats(f.in, now, time.UTC).TopSeller)
}

func TestWeekStart_OnSunday(t *testing.T) {
	sunday := time.Date(2025, 4, 13, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, at(4, 13, 0), WeekStart(sunday, time.UTC))
}

func TestBuildProductionHistory(t *testing.T) {
	f := newFixture()
	f.in.Production = append(f.in.Production, models.ProductionEvent{
		ID: uuid.New(), ProductID: f.ghost, Quantity: 1, UnitPrice: dec("9"), CreatedAt: at(4, 15, 12),
	})

	days := BuildProductionHistory(f.in, time.UTC)
	require.Len(t, days, 4)
	assert.Equal(t, models.DayKey("2025-04-16"), days[0].Day)
	assert.Equal(t, models.DayKey("2025-03-30"), days[3].Day)

	d15 := days[1]
	assert.Equal(t, models.DayKey("2025-04-15"), d15.Day)
	assert.Equal(t, 11, d15.TotalItems)
	assert.True(t, d15.TotalValue.Equal(dec("29")))
	require.Len(t, d15.Batches, 2)
	assert.True(t, d15.Batches[0].Unknown, "newest batch first")
	assert.Equal(t, models.UnknownProductName, d15.Batches[0].ProductName)
	assert.Equal(t, "Bread", d15.Batches[1].ProductName)
}

type fakeSource struct {
	in    reconciliation.Input
	since *time.Time
}

func (f *fakeSource) Snapshot(_ context.Context, since *time.Time) (reconciliation.Input, error) {
	f.since = since
	return f.in, nil
}
func (f *fakeSource) Location() *time.Location { return time.UTC }
func (f *fakeSource) Now() time.Time           { return now }

func TestService_FetchWindows(t *testing.T) {
	src := &fakeSource{in: newFixture().in}
	svc := NewService(src, reconciliation.PriceCurrent, nil)
	ctx := context.Background()

	_, err := svc.Dashboard(ctx, RangeWeek)
	require.NoError(t, err)
	require.NotNil(t, src.since)
	assert.Equal(t, at(4, 9, 15), *src.since)

	_, err = svc.ProductionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, at(4, 1, 0), *src.since, "month start is earlier than week start")

	_, err = svc.ProductionHistory(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, src.since)
}
