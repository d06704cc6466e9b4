package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnknownProductName labels summaries whose product reference no longer resolves.
const UnknownProductName = "Unknown"

// Product is a sellable bakery item. Price is the current unit price.
type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Active    bool            `json:"active"`
	Revision  int64           `json:"revision"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewProduct carries the fields required to register a product.
type NewProduct struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image_ref,omitempty"`
	Active   bool            `json:"active"`
}

// ProductPatch is a partial product update; nil fields are left untouched.
type ProductPatch struct {
	Name   *string          `json:"name,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Active *bool            `json:"active,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Active == nil
}

// Apply returns a copy of product with the patch fields applied.
func (p ProductPatch) Apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Active != nil {
		product.Active = *p.Active
	}
	return product
}

// UnknownProduct is the sentinel used when an event references a missing product id.
func UnknownProduct(id uuid.UUID) Product {
	return Product{ID: id, Name: UnknownProductName, Price: decimal.Zero}
}
