// Package analytics derives the admin and production dashboards from a
// store snapshot. Everything except Service is a pure function of its input.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

// Range is the dashboard time window.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// ParseRange defaults to today.
func ParseRange(value string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(value))); r {
	case "":
		return RangeToday, nil
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r, nil
	default:
		return "", models.NewValidationError("range", fmt.Sprintf("unsupported range %q", value))
	}
}

// Start is the inclusive lower bound of the window ending at now: local
// midnight for today, otherwise now minus a week, month or year.
func (r Range) Start(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	}
}

// SellerStat names a product and the units it sold in the window.
type SellerStat struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// ProductPerformance is one product's totals over the whole window.
type ProductPerformance struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Name        string          `json:"name"`
	Unknown     bool            `json:"unknown"`
	Made        int             `json:"made"`
	Sold        int             `json:"sold"`
	Unsold      int             `json:"unsold"`
	Revenue     decimal.Decimal `json:"revenue"`
	UnsoldValue decimal.Decimal `json:"unsold_value"`
}

// ChartPoint is one revenue bucket. Key sorts chronologically; Label is for display only.
type ChartPoint struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

// Dashboard is the admin analytics view.
type Dashboard struct {
	Range        Range                `json:"range"`
	From         time.Time            `json:"from"`
	TotalRevenue decimal.Decimal      `json:"total_revenue"`
	TotalMade    int                  `json:"total_made"`
	TotalSold    int                  `json:"total_sold"`
	UnsoldValue  decimal.Decimal      `json:"unsold_value"`
	BestSeller   *SellerStat          `json:"best_seller"`
	WorstSeller  *SellerStat          `json:"worst_seller"`
	Performance  []ProductPerformance `json:"performance"`
	Chart        []ChartPoint         `json:"chart"`
}

// BuildDashboard aggregates the window [r.Start(now), now]. Unsold units are
// computed per product over the whole window, not per day.
func BuildDashboard(in reconciliation.Input, r Range, now time.Time, loc *time.Location, pricing reconciliation.PricingPolicy) Dashboard {
	if loc == nil {
		loc = time.UTC
	}
	from := r.Start(now, loc)
	catalog := reconciliation.NewCatalog(in.Products)

	perf := make(map[uuid.UUID]*ProductPerformance, len(in.Products))
	for _, p := range in.Products {
		perf[p.ID] = &ProductPerformance{ProductID: p.ID, Name: p.Name, Revenue: decimal.Zero, UnsoldValue: decimal.Zero}
	}
	row := func(id uuid.UUID) *ProductPerformance {
		if pp, ok := perf[id]; ok {
			return pp
		}
		pp := &ProductPerformance{ProductID: id, Name: models.UnknownProductName, Unknown: true, Revenue: decimal.Zero, UnsoldValue: decimal.Zero}
		perf[id] = pp
		return pp
	}
	inWindow := func(t time.Time) bool { return !t.Before(from) && !t.After(now) }

	d := Dashboard{Range: r, From: from, TotalRevenue: decimal.Zero, UnsoldValue: decimal.Zero}

	for _, ev := range in.Production {
		if !inWindow(ev.CreatedAt) {
			continue
		}
		row(ev.ProductID).Made += ev.Quantity
		d.TotalMade += ev.Quantity
	}

	chart := make(map[string]*ChartPoint)
	for _, ev := range in.Sales {
		if !inWindow(ev.CreatedAt) {
			continue
		}
		product, _ := catalog.Resolve(ev.ProductID)
		value := pricing.SalePrice(ev, product.Price).Mul(decimal.NewFromInt(int64(ev.Quantity)))

		pp := row(ev.ProductID)
		pp.Sold += ev.Quantity
		pp.Revenue = pp.Revenue.Add(value)
		d.TotalSold += ev.Quantity
		d.TotalRevenue = d.TotalRevenue.Add(value)

		key, label := bucket(r, ev.CreatedAt.In(loc))
		cp, ok := chart[key]
		if !ok {
			cp = &ChartPoint{Key: key, Label: label, TotalSales: decimal.Zero}
			chart[key] = cp
		}
		cp.TotalSales = cp.TotalSales.Add(value)
	}

	d.Performance = make([]ProductPerformance, 0, len(perf))
	for id, pp := range perf {
		pp.Unsold = max(0, pp.Made-pp.Sold)
		product, _ := catalog.Resolve(id)
		pp.UnsoldValue = product.Price.Mul(decimal.NewFromInt(int64(pp.Unsold)))
		d.UnsoldValue = d.UnsoldValue.Add(pp.UnsoldValue)
		d.Performance = append(d.Performance, *pp)
	}
	sort.Slice(d.Performance, func(i, j int) bool {
		a, b := d.Performance[i], d.Performance[j]
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ProductID.String() < b.ProductID.String()
	})

	d.BestSeller, d.WorstSeller = sellers(d.Performance)

	d.Chart = make([]ChartPoint, 0, len(chart))
	for _, cp := range chart {
		d.Chart = append(d.Chart, *cp)
	}
	sort.Slice(d.Chart, func(i, j int) bool { return d.Chart[i].Key < d.Chart[j].Key })
	return d
}

// sellers picks the best seller (most units sold) and the worst seller
// (fewest units sold among products made in the window). Ties go to the
// name that sorts first. Either may be nil.
func sellers(perf []ProductPerformance) (best, worst *SellerStat) {
	byName := make([]ProductPerformance, len(perf))
	copy(byName, perf)
	sort.SliceStable(byName, func(i, j int) bool { return byName[i].Name < byName[j].Name })

	for _, pp := range byName {
		if pp.Sold > 0 && (best == nil || pp.Sold > best.Quantity) {
			best = &SellerStat{ProductID: pp.ProductID, Name: pp.Name, Quantity: pp.Sold}
		}
		if pp.Made > 0 && (worst == nil || pp.Sold < worst.Quantity) {
			worst = &SellerStat{ProductID: pp.ProductID, Name: pp.Name, Quantity: pp.Sold}
		}
	}
	return best, worst
}

// bucket returns the sortable key and display label of a sale's chart bucket:
// hourly for today, daily for week and month, monthly for year.
func bucket(r Range, t time.Time) (key, label string) {
	switch r {
	case RangeToday:
		return t.Format("2006-01-02T15"), t.Format("15:00")
	case RangeYear:
		return t.Format("2006-01"), t.Format("Jan 2006")
	default:
		return t.Format("2006-01-02"), t.Format("2 Jan")
	}
}
