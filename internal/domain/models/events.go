package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind distinguishes the two append-only event logs.
type EventKind string

const (
	KindProduction EventKind = "production"
	KindSale       EventKind = "sale"
)

// ParseEventKind accepts the canonical names plus the table-ish aliases used by clients.
func ParseEventKind(value string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "production", "inventory", "batch", "inventory_batches":
		return KindProduction, nil
	case "sale", "sales", "sales_logs":
		return KindSale, nil
	default:
		return "", NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", value))
	}
}

// ProductionEvent records N units of a product made at CreatedAt.
// UnitPrice is frozen at record time.
type ProductionEvent struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	Revision  int64           `json:"revision"`
}

// SaleEvent records N units of a product sold at CreatedAt.
// UnitPrice is the price snapshot taken when the sale was logged; rows
// logged before snapshots existed carry nil.
type SaleEvent struct {
	ID         uuid.UUID        `json:"id"`
	ProductID  uuid.UUID        `json:"product_id"`
	Quantity   int              `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	RecordedBy string           `json:"recorded_by"`
	CreatedAt  time.Time        `json:"created_at"`
	Revision   int64            `json:"revision"`
}

// NewProductionEvent is one row of a bulk production insert.
type NewProductionEvent struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewSaleEvent is one row of a bulk sale insert.
type NewSaleEvent struct {
	ProductID  uuid.UUID
	Quantity   int
	RecordedBy string
	UnitPrice  *decimal.Decimal
}

// EventFilter narrows event listings. Since is inclusive, Until exclusive.
type EventFilter struct {
	Since      *time.Time
	Until      *time.Time
	Descending bool
}

// Match reports whether t falls inside the filter window.
func (f EventFilter) Match(t time.Time) bool {
	if f.Since != nil && t.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !t.Before(*f.Until) {
		return false
	}
	return true
}
