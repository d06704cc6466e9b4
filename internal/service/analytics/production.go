package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

// NoTopSeller is reported when nothing sold this month.
const NoTopSeller = "None"

// ProductionStats backs the production dashboard.
type ProductionStats struct {
	WeekStart  time.Time       `json:"week_start"`
	MonthStart time.Time       `json:"month_start"`
	WeekCount  int             `json:"week_count"`
	MonthCount int             `json:"month_count"`
	MonthValue decimal.Decimal `json:"month_value"`
	TopSeller  string          `json:"top_seller"`
}

// WeekStart is local midnight of the Sunday starting now's week.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), now.Day()-int(now.Weekday()), 0, 0, 0, 0, loc)
}

// MonthStart is local midnight of the first day of now's month.
func MonthStart(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
}

// BuildProductionStats counts units made this week and this month, values
// this month's batches at their recorded unit price and names the product
// that sold the most units this month.
func BuildProductionStats(in reconciliation.Input, now time.Time, loc *time.Location) ProductionStats {
	if loc == nil {
		loc = time.UTC
	}
	stats := ProductionStats{
		WeekStart:  WeekStart(now, loc),
		MonthStart: MonthStart(now, loc),
		MonthValue: decimal.Zero,
		TopSeller:  NoTopSeller,
	}

	for _, ev := range in.Production {
		if !ev.CreatedAt.Before(stats.WeekStart) {
			stats.WeekCount += ev.Quantity
		}
		if !ev.CreatedAt.Before(stats.MonthStart) {
			stats.MonthCount += ev.Quantity
			stats.MonthValue = stats.MonthValue.Add(ev.UnitPrice.Mul(decimal.NewFromInt(int64(ev.Quantity))))
		}
	}

	catalog := reconciliation.NewCatalog(in.Products)
	sold := make(map[string]int)
	for _, ev := range in.Sales {
		if ev.CreatedAt.Before(stats.MonthStart) {
			continue
		}
		p, _ := catalog.Resolve(ev.ProductID)
		sold[p.Name] += ev.Quantity
	}
	best := 0
	for name, qty := range sold {
		if qty > best || (qty == best && qty > 0 && name < stats.TopSeller) {
			best, stats.TopSeller = qty, name
		}
	}
	return stats
}

// ProductionBatch is a production event with its product resolved.
type ProductionBatch struct {
	models.ProductionEvent
	ProductName string          `json:"product_name"`
	Unknown     bool            `json:"unknown"`
	Value       decimal.Decimal `json:"value"`
}

// ProductionDay groups the batches made on one day.
type ProductionDay struct {
	Day        models.DayKey     `json:"day"`
	Label      string            `json:"label"`
	TotalItems int               `json:"total_items"`
	TotalValue decimal.Decimal   `json:"total_value"`
	Batches    []ProductionBatch `json:"batches"`
}

// BuildProductionHistory groups production batches by day, newest day and
// newest batch first. Values use each batch's recorded unit price.
func BuildProductionHistory(in reconciliation.Input, loc *time.Location) []ProductionDay {
	if loc == nil {
		loc = time.UTC
	}
	catalog := reconciliation.NewCatalog(in.Products)

	days := make(map[models.DayKey]*ProductionDay)
	for _, ev := range in.Production {
		key := models.DayKeyOf(ev.CreatedAt, loc)
		day, ok := days[key]
		if !ok {
			day = &ProductionDay{Day: key, Label: key.Label(loc), TotalValue: decimal.Zero}
			days[key] = day
		}
		p, known := catalog.Resolve(ev.ProductID)
		value := ev.UnitPrice.Mul(decimal.NewFromInt(int64(ev.Quantity)))
		day.TotalItems += ev.Quantity
		day.TotalValue = day.TotalValue.Add(value)
		day.Batches = append(day.Batches, ProductionBatch{
			ProductionEvent: ev,
			ProductName:     p.Name,
			Unknown:         !known,
			Value:           value,
		})
	}

	out := make([]ProductionDay, 0, len(days))
	for _, day := range days {
		sort.Slice(day.Batches, func(i, j int) bool {
			a, b := day.Batches[i], day.Batches[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return lessID(a.ID, b.ID)
		})
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

func lessID(a, b uuid.UUID) bool { return a.String() < b.String() }
