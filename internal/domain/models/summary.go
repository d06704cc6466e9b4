package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyProductSummary reconciles one product within one day bucket.
// It is derived on every query and never persisted.
type DailyProductSummary struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unknown     bool            `json:"unknown"`
	Price       decimal.Decimal `json:"price"`
	Produced    int             `json:"produced"`
	Sold        int             `json:"sold"`
	Unsold      int             `json:"unsold"`
	Revenue     decimal.Decimal `json:"revenue"`
	UnsoldValue decimal.Decimal `json:"unsold_value"`

	ProductionEvents []ProductionEvent `json:"production_events,omitempty"`
	SaleEvents       []SaleEvent       `json:"sale_events,omitempty"`
}

// DailySummary groups the product summaries of one calendar day.
type DailySummary struct {
	Day              DayKey                `json:"day"`
	Label            string                `json:"label"`
	TotalRevenue     decimal.Decimal       `json:"total_revenue"`
	TotalUnsoldValue decimal.Decimal       `json:"total_unsold_value"`
	TotalItemsSold   int                   `json:"total_items_sold"`
	TotalProduced    int                   `json:"total_produced"`
	Products         []DailyProductSummary `json:"products"`
}

// Product returns the summary for id within the day, if present.
func (d DailySummary) Product(id uuid.UUID) (DailyProductSummary, bool) {
	for _, p := range d.Products {
		if p.ProductID == id {
			return p, true
		}
	}
	return DailyProductSummary{}, false
}
