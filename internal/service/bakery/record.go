package bakery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

// ProductionLine is one row of the production form.
type ProductionLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

// SaleLine is one row of the sales form.
type SaleLine struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

// StockItem is an active product with today's movements.
type StockItem struct {
	Product   models.Product  `json:"product"`
	Produced  int             `json:"produced"`
	Sold      int             `json:"sold"`
	Available int             `json:"available"`
	MadeValue decimal.Decimal `json:"made_value"`
	SoldValue decimal.Decimal `json:"sold_value"`
}

// RecordProduction stores one production batch per non-zero line at the
// product's current price. Zero lines are skipped; an all-zero submission is
// rejected.
func (s *Service) RecordProduction(ctx context.Context, lines []ProductionLine) ([]models.ProductionEvent, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("lines", "at least one line is required")
	}
	for i, line := range lines {
		if line.Quantity < 0 {
			return nil, models.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "must not be negative")
		}
	}

	products, err := s.listProducts(ctx)
	if err != nil {
		return nil, err
	}
	catalog := reconciliation.NewCatalog(products)

	batch := make([]models.NewProductionEvent, 0, len(lines))
	units := 0
	for i, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		p, err := activeProduct(catalog, line.ProductID, i)
		if err != nil {
			return nil, err
		}
		batch = append(batch, models.NewProductionEvent{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
		units += line.Quantity
	}
	if len(batch) == 0 {
		return nil, models.NewValidationError("lines", "nothing to record")
	}

	events, err := s.store.InsertProductionEvents(ctx, batch)
	if err != nil {
		s.storeFailed("insert_production", err)
		return nil, fmt.Errorf("record production: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ProducedUnits.Add(float64(units))
	}
	s.logger.Info("production recorded", zap.Int("batches", len(events)), zap.Int("units", units))
	return events, nil
}

// RecordSales stores one sale per non-zero line, capturing the current price.
// Lines are checked against today's available stock; summed quantities per
// product must not exceed it.
func (s *Service) RecordSales(ctx context.Context, recordedBy string, lines []SaleLine) ([]models.SaleEvent, error) {
	recordedBy = strings.TrimSpace(recordedBy)
	if recordedBy == "" {
		return nil, models.NewValidationError("recorded_by", "must not be empty")
	}
	if len(lines) == 0 {
		return nil, models.NewValidationError("lines", "at least one line is required")
	}
	for i, line := range lines {
		if line.Quantity < 0 {
			return nil, models.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "must not be negative")
		}
	}

	board, err := s.SalesBoard(ctx)
	if err != nil {
		return nil, err
	}
	stock := make(map[uuid.UUID]StockItem, len(board))
	for _, item := range board {
		stock[item.Product.ID] = item
	}

	requested := make(map[uuid.UUID]int)
	batch := make([]models.NewSaleEvent, 0, len(lines))
	units := 0
	for i, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		item, ok := stock[line.ProductID]
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "unknown or inactive product")
		}
		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > item.Available {
			if s.metrics != nil {
				s.metrics.RejectedSaleLines.Inc()
			}
			return nil, fmt.Errorf("%s: %d requested, %d available: %w",
				item.Product.Name, requested[line.ProductID], item.Available, models.ErrInsufficientStock)
		}
		price := item.Product.Price
		batch = append(batch, models.NewSaleEvent{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			RecordedBy: recordedBy,
			UnitPrice:  &price,
		})
		units += line.Quantity
	}
	if len(batch) == 0 {
		return nil, models.NewValidationError("lines", "nothing to record")
	}

	events, err := s.store.InsertSaleEvents(ctx, batch)
	if err != nil {
		s.storeFailed("insert_sales", err)
		return nil, fmt.Errorf("record sales: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SoldUnits.Add(float64(units))
	}
	s.logger.Info("sales recorded",
		zap.String("recorded_by", recordedBy),
		zap.Int("rows", len(events)),
		zap.Int("units", units),
	)
	return events, nil
}

// SalesBoard lists active products with today's produced, sold and
// available units, sorted by name.
func (s *Service) SalesBoard(ctx context.Context) ([]StockItem, error) {
	today := s.Today()
	in, err := s.window(ctx, today, today)
	if err != nil {
		return nil, err
	}

	items := make(map[uuid.UUID]*StockItem)
	for _, p := range in.Products {
		if !p.Active {
			continue
		}
		items[p.ID] = &StockItem{Product: p, MadeValue: decimal.Zero, SoldValue: decimal.Zero}
	}
	for _, ev := range in.Production {
		if item, ok := items[ev.ProductID]; ok {
			item.Produced += ev.Quantity
			item.MadeValue = item.MadeValue.Add(ev.UnitPrice.Mul(decimal.NewFromInt(int64(ev.Quantity))))
		}
	}
	for _, ev := range in.Sales {
		if item, ok := items[ev.ProductID]; ok {
			item.Sold += ev.Quantity
		}
	}

	out := make([]StockItem, 0, len(items))
	for _, item := range items {
		item.Available = item.Produced - item.Sold
		if item.Available < 0 {
			item.Available = 0
		}
		item.SoldValue = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Sold)))
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product.Name != out[j].Product.Name {
			return out[i].Product.Name < out[j].Product.Name
		}
		return out[i].Product.ID.String() < out[j].Product.ID.String()
	})
	return out, nil
}

func activeProduct(catalog reconciliation.Catalog, id uuid.UUID, line int) (models.Product, error) {
	p, ok := catalog.Resolve(id)
	if !ok {
		return models.Product{}, models.NewValidationError(fmt.Sprintf("lines[%d].product_id", line), "unknown product")
	}
	if !p.Active {
		return models.Product{}, models.NewValidationError(fmt.Sprintf("lines[%d].product_id", line), "product is inactive")
	}
	return p, nil
}
