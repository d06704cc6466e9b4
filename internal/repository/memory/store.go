// Package memory is an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps the three tables in maps guarded by a single mutex.
type Store struct {
	mu         sync.RWMutex
	products   map[uuid.UUID]models.Product
	production map[uuid.UUID]models.ProductionEvent
	sales      map[uuid.UUID]models.SaleEvent
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source for inserted rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		products:   make(map[uuid.UUID]models.Product),
		production: make(map[uuid.UUID]models.ProductionEvent),
		sales:      make(map[uuid.UUID]models.SaleEvent),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads rows verbatim, keeping their ids and timestamps.
func (s *Store) Seed(products []models.Product, production []models.ProductionEvent, sales []models.SaleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, ev := range production {
		s.production[ev.ID] = ev
	}
	for _, ev := range sales {
		s.sales[ev.ID] = ev
	}
}

func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) ListProductionEvents(_ context.Context, filter models.EventFilter) ([]models.ProductionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProductionEvent, 0, len(s.production))
	for _, ev := range s.production {
		if filter.Match(ev.CreatedAt) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID, filter.Descending)
	})
	return out, nil
}

func (s *Store) ListSaleEvents(_ context.Context, filter models.EventFilter) ([]models.SaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SaleEvent, 0, len(s.sales))
	for _, ev := range s.sales {
		if filter.Match(ev.CreatedAt) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID, filter.Descending)
	})
	return out, nil
}

func before(a, b time.Time, aID, bID uuid.UUID, desc bool) bool {
	if a.Equal(b) {
		return aID.String() < bID.String()
	}
	if desc {
		return a.After(b)
	}
	return a.Before(b)
}

func (s *Store) InsertProductionEvents(_ context.Context, batch []models.NewProductionEvent) ([]models.ProductionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]models.ProductionEvent, 0, len(batch))
	for _, row := range batch {
		ev := models.ProductionEvent{
			ID:        uuid.New(),
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			CreatedAt: now,
			Revision:  1,
		}
		s.production[ev.ID] = ev
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) InsertSaleEvents(_ context.Context, batch []models.NewSaleEvent) ([]models.SaleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]models.SaleEvent, 0, len(batch))
	for _, row := range batch {
		ev := models.SaleEvent{
			ID:         uuid.New(),
			ProductID:  row.ProductID,
			Quantity:   row.Quantity,
			UnitPrice:  row.UnitPrice,
			RecordedBy: row.RecordedBy,
			CreatedAt:  now,
			Revision:   1,
		}
		s.sales[ev.ID] = ev
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) UpdateEventQuantity(_ context.Context, kind models.EventKind, id uuid.UUID, quantity int, expectedRevision *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case models.KindProduction:
		ev, ok := s.production[id]
		if !ok {
			return fmt.Errorf("production event %s: %w", id, models.ErrNotFound)
		}
		if expectedRevision != nil && *expectedRevision != ev.Revision {
			return fmt.Errorf("production event %s: %w", id, models.ErrConflict)
		}
		ev.Quantity = quantity
		ev.Revision++
		s.production[id] = ev
	case models.KindSale:
		ev, ok := s.sales[id]
		if !ok {
			return fmt.Errorf("sale event %s: %w", id, models.ErrNotFound)
		}
		if expectedRevision != nil && *expectedRevision != ev.Revision {
			return fmt.Errorf("sale event %s: %w", id, models.ErrConflict)
		}
		ev.Quantity = quantity
		ev.Revision++
		s.sales[id] = ev
	default:
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, kind models.EventKind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case models.KindProduction:
		if _, ok := s.production[id]; !ok {
			return fmt.Errorf("production event %s: %w", id, models.ErrNotFound)
		}
		delete(s.production, id)
	case models.KindSale:
		if _, ok := s.sales[id]; !ok {
			return fmt.Errorf("sale event %s: %w", id, models.ErrNotFound)
		}
		delete(s.sales, id)
	default:
		return models.NewValidationError("kind", fmt.Sprintf("unsupported event kind %q", kind))
	}
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, id uuid.UUID, patch models.ProductPatch, expectedRevision *int64) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return models.Product{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	if expectedRevision != nil && *expectedRevision != p.Revision {
		return models.Product{}, fmt.Errorf("product %s: %w", id, models.ErrConflict)
	}

	p = patch.Apply(p)
	p.Revision++
	s.products[id] = p
	return p, nil
}

func (s *Store) InsertProduct(_ context.Context, np models.NewProduct) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Product{
		ID:        uuid.New(),
		Name:      np.Name,
		Price:     np.Price,
		ImageRef:  np.ImageRef,
		Active:    np.Active,
		Revision:  1,
		CreatedAt: s.now(),
	}
	s.products[p.ID] = p
	return p, nil
}
