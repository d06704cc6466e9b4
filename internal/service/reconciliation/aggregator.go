// Package reconciliation turns the append-only production and sale logs into
// per-day, per-product stock and revenue summaries.
//
// Everything here is pure computation over in-memory slices: no I/O, no
// failure states. Callers fetch the three record sets and re-run Aggregate
// after every mutation.
package reconciliation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// Input is the raw material of one reconciliation run.
type Input struct {
	Products   []models.Product
	Production []models.ProductionEvent
	Sales      []models.SaleEvent
}

// PricingPolicy selects the unit price used to value sales.
type PricingPolicy string

const (
	// PriceCurrent values every sale at the product's current price, so a
	// price edit revalues history.
	PriceCurrent PricingPolicy = "current"
	// PriceSnapshot values a sale at the price captured when it was logged,
	// falling back to the current price for rows without a snapshot.
	PriceSnapshot PricingPolicy = "snapshot"
)

// ParsePricingPolicy maps configuration strings to a policy.
func ParsePricingPolicy(value string) (PricingPolicy, error) {
	switch PricingPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PriceCurrent:
		return PriceCurrent, nil
	case PriceSnapshot:
		return PriceSnapshot, nil
	default:
		return "", fmt.Errorf("unknown pricing policy %q", value)
	}
}

type options struct {
	loc     *time.Location
	pricing PricingPolicy
	events  bool
}

// Option customises Aggregate.
type Option func(*options)

// WithLocation sets the reporting timezone used to derive day keys.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithPricing sets the sale valuation policy.
func WithPricing(p PricingPolicy) Option {
	return func(o *options) {
		if p != "" {
			o.pricing = p
		}
	}
}

// WithEvents attaches the raw events to each product summary.
func WithEvents(enabled bool) Option {
	return func(o *options) { o.events = enabled }
}

func newOptions(opts []Option) options {
	o := options{loc: time.UTC, pricing: PriceCurrent}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Catalog resolves product ids. Missing ids resolve to the Unknown sentinel.
type Catalog map[uuid.UUID]models.Product

// NewCatalog indexes products by id.
func NewCatalog(products []models.Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

// Resolve never fails: an unresolved reference yields the Unknown sentinel and false.
func (c Catalog) Resolve(id uuid.UUID) (models.Product, bool) {
	if p, ok := c[id]; ok {
		return p, true
	}
	return models.UnknownProduct(id), false
}

type dayAcc struct {
	summary  models.DailySummary
	products map[uuid.UUID]*models.DailyProductSummary
}

// Aggregate reconciles the input into daily summaries, most recent day first.
func Aggregate(in Input, opts ...Option) []models.DailySummary {
	o := newOptions(opts)
	catalog := NewCatalog(in.Products)
	days := make(map[models.DayKey]*dayAcc)

	bucket := func(createdAt time.Time, productID uuid.UUID) (*dayAcc, *models.DailyProductSummary) {
		key := models.DayKeyOf(createdAt, o.loc)
		day, ok := days[key]
		if !ok {
			day = &dayAcc{
				summary: models.DailySummary{
					Day:              key,
					Label:            key.Label(o.loc),
					TotalRevenue:     decimal.Zero,
					TotalUnsoldValue: decimal.Zero,
				},
				products: make(map[uuid.UUID]*models.DailyProductSummary),
			}
			days[key] = day
		}

		ps, ok := day.products[productID]
		if !ok {
			product, known := catalog.Resolve(productID)
			ps = &models.DailyProductSummary{
				ProductID:   productID,
				ProductName: product.Name,
				Unknown:     !known,
				Price:       product.Price,
				Revenue:     decimal.Zero,
				UnsoldValue: decimal.Zero,
			}
			day.products[productID] = ps
		}
		return day, ps
	}

	for _, ev := range in.Production {
		day, ps := bucket(ev.CreatedAt, ev.ProductID)
		ps.Produced += ev.Quantity
		day.summary.TotalProduced += ev.Quantity
		if o.events {
			ps.ProductionEvents = append(ps.ProductionEvents, ev)
		}
	}

	for _, ev := range in.Sales {
		day, ps := bucket(ev.CreatedAt, ev.ProductID)
		ps.Sold += ev.Quantity

		delta := decimal.NewFromInt(int64(ev.Quantity)).Mul(o.pricing.SalePrice(ev, ps.Price))
		ps.Revenue = ps.Revenue.Add(delta)
		day.summary.TotalRevenue = day.summary.TotalRevenue.Add(delta)
		day.summary.TotalItemsSold += ev.Quantity
		if o.events {
			ps.SaleEvents = append(ps.SaleEvents, ev)
		}
	}

	out := make([]models.DailySummary, 0, len(days))
	for _, day := range days {
		for _, ps := range day.products {
			ps.Unsold = max(0, ps.Produced-ps.Sold)
			if ps.Unsold > 0 {
				ps.UnsoldValue = decimal.NewFromInt(int64(ps.Unsold)).Mul(ps.Price)
				day.summary.TotalUnsoldValue = day.summary.TotalUnsoldValue.Add(ps.UnsoldValue)
			}
			sortEvents(ps)
			day.summary.Products = append(day.summary.Products, *ps)
		}
		sort.Slice(day.summary.Products, func(i, j int) bool {
			a, b := day.summary.Products[i], day.summary.Products[j]
			if a.ProductName != b.ProductName {
				return a.ProductName < b.ProductName
			}
			return a.ProductID.String() < b.ProductID.String()
		})
		out = append(out, day.summary)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// SalePrice is the unit price a sale is valued at under the policy.
func (p PricingPolicy) SalePrice(ev models.SaleEvent, current decimal.Decimal) decimal.Decimal {
	if p == PriceSnapshot && ev.UnitPrice != nil {
		return *ev.UnitPrice
	}
	return current
}

func sortEvents(ps *models.DailyProductSummary) {
	sort.Slice(ps.ProductionEvents, func(i, j int) bool {
		a, b := ps.ProductionEvents[i], ps.ProductionEvents[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	sort.Slice(ps.SaleEvents, func(i, j int) bool {
		a, b := ps.SaleEvents[i], ps.SaleEvents[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Totals sums a set of daily summaries.
type Totals struct {
	Revenue     decimal.Decimal `json:"revenue"`
	UnsoldValue decimal.Decimal `json:"unsold_value"`
	ItemsSold   int             `json:"items_sold"`
	Produced    int             `json:"produced"`
}

// Sum adds up revenue, unsold value and quantities across days.
func Sum(days []models.DailySummary) Totals {
	t := Totals{Revenue: decimal.Zero, UnsoldValue: decimal.Zero}
	for _, d := range days {
		t.Revenue = t.Revenue.Add(d.TotalRevenue)
		t.UnsoldValue = t.UnsoldValue.Add(d.TotalUnsoldValue)
		t.ItemsSold += d.TotalItemsSold
		t.Produced += d.TotalProduced
	}
	return t
}
