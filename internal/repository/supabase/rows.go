package supabase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

const (
	tableProducts   = "products"
	tableProduction = "inventory_batches"
	tableSales      = "sales_logs"
)

type productRow struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	ImageURL     *string         `json:"image_url"`
	IsActive     bool            `json:"is_active"`
	Revision     int64           `json:"revision"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (r productRow) toModel() models.Product {
	p := models.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.DefaultPrice,
		Active:    r.IsActive,
		Revision:  r.Revision,
		CreatedAt: r.CreatedAt,
	}
	if r.ImageURL != nil {
		p.ImageRef = *r.ImageURL
	}
	return p
}

type batchRow struct {
	ID           uuid.UUID       `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	ProductID    uuid.UUID       `json:"product_id"`
	QuantityMade int             `json:"quantity_made"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Revision     int64           `json:"revision"`
}

func (r batchRow) toModel() models.ProductionEvent {
	return models.ProductionEvent{
		ID:        r.ID,
		ProductID: r.ProductID,
		Quantity:  r.QuantityMade,
		UnitPrice: r.UnitPrice,
		CreatedAt: r.CreatedAt,
		Revision:  r.Revision,
	}
}

type saleRow struct {
	ID           uuid.UUID        `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	ProductID    uuid.UUID        `json:"product_id"`
	QuantitySold int              `json:"quantity_sold"`
	LoggedBy     string           `json:"logged_by"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Revision     int64            `json:"revision"`
}

func (r saleRow) toModel() models.SaleEvent {
	return models.SaleEvent{
		ID:         r.ID,
		ProductID:  r.ProductID,
		Quantity:   r.QuantitySold,
		UnitPrice:  r.UnitPrice,
		RecordedBy: r.LoggedBy,
		CreatedAt:  r.CreatedAt,
		Revision:   r.Revision,
	}
}

type newBatchRow struct {
	ProductID    uuid.UUID       `json:"product_id"`
	QuantityMade int             `json:"quantity_made"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

type newSaleRow struct {
	ProductID    uuid.UUID        `json:"product_id"`
	QuantitySold int              `json:"quantity_sold"`
	LoggedBy     string           `json:"logged_by"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
}

type newProductRow struct {
	Name         string          `json:"name"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	ImageURL     *string         `json:"image_url,omitempty"`
	IsActive     bool            `json:"is_active"`
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func eventTable(kind models.EventKind) (table, quantityColumn string, ok bool) {
	switch kind {
	case models.KindProduction:
		return tableProduction, "quantity_made", true
	case models.KindSale:
		return tableSales, "quantity_sold", true
	default:
		return "", "", false
	}
}
