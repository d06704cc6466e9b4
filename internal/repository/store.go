// Package repository defines the contract of the remote store holding the
// products, inventory_batches and sales_logs tables.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// Store is the collaborator the bakery service reads from and writes to.
//
// Failures other than domain errors are wrapped with models.ErrStoreUnavailable.
// expectedRevision, when non-nil, turns an update into a compare-and-swap that
// fails with models.ErrConflict; nil means last write wins.
type Store interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListProductionEvents(ctx context.Context, filter models.EventFilter) ([]models.ProductionEvent, error)
	ListSaleEvents(ctx context.Context, filter models.EventFilter) ([]models.SaleEvent, error)

	InsertProductionEvents(ctx context.Context, batch []models.NewProductionEvent) ([]models.ProductionEvent, error)
	InsertSaleEvents(ctx context.Context, batch []models.NewSaleEvent) ([]models.SaleEvent, error)
	UpdateEventQuantity(ctx context.Context, kind models.EventKind, id uuid.UUID, quantity int, expectedRevision *int64) error
	DeleteEvent(ctx context.Context, kind models.EventKind, id uuid.UUID) error

	UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch, expectedRevision *int64) (models.Product, error)
	InsertProduct(ctx context.Context, product models.NewProduct) (models.Product, error)
}
