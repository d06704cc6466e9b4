package bakery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// ListProducts returns active products first, then by name.
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	products, err := s.listProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// FindProduct matches an active product by name, ignoring case.
func (s *Service) FindProduct(ctx context.Context, name string) (models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Product{}, models.NewValidationError("name", "must not be empty")
	}

	products, err := s.ListProducts(ctx, true)
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return models.Product{}, fmt.Errorf("product %q: %w", name, models.ErrNotFound)
}

// CreateProduct registers a product.
func (s *Service) CreateProduct(ctx context.Context, np models.NewProduct) (models.Product, error) {
	np.Name = strings.TrimSpace(np.Name)
	if np.Name == "" {
		return models.Product{}, models.NewValidationError("name", "must not be empty")
	}
	if np.Price.IsNegative() {
		return models.Product{}, models.NewValidationError("price", "must not be negative")
	}

	p, err := s.store.InsertProduct(ctx, np)
	if err != nil {
		s.storeFailed("insert_product", err)
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("product_id", p.ID.String()), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct applies a partial update. Changing the price affects every
// past summary valued at current price.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch, expectedRevision *int64) (models.Product, error) {
	if id == uuid.Nil {
		return models.Product{}, models.NewValidationError("id", "must be a valid product id")
	}
	if patch.Empty() {
		return models.Product{}, models.NewValidationError("patch", "at least one field must change")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Product{}, models.NewValidationError("name", "must not be empty")
		}
		patch.Name = &name
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return models.Product{}, models.NewValidationError("price", "must not be negative")
	}

	p, err := s.store.UpdateProduct(ctx, id, patch, expectedRevision)
	if err != nil {
		s.storeFailed("update_product", err)
		return models.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.logger.Info("product updated", zap.String("product_id", p.ID.String()), zap.Int64("revision", p.Revision))
	return p, nil
}

// SetProductActive toggles whether a product is offered on the forms.
func (s *Service) SetProductActive(ctx context.Context, id uuid.UUID, active bool, expectedRevision *int64) (models.Product, error) {
	return s.UpdateProduct(ctx, id, models.ProductPatch{Active: &active}, expectedRevision)
}

func (s *Service) listProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		s.storeFailed("list_products", err)
		return nil, models.Unavailable("list products", err)
	}
	return products, nil
}
