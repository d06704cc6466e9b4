// Package bakery orchestrates the store and the reconciliation aggregator for
// the production, sales and admin views.
package bakery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/metrics"
	"github.com/mamadbah2/bakery/internal/repository"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

const defaultFetchTimeout = 10 * time.Second

// Service is shared by the HTTP handlers, chat commands and the reporting job.
type Service struct {
	store        repository.Store
	logger       *zap.Logger
	metrics      *metrics.Registry
	loc          *time.Location
	pricing      reconciliation.PricingPolicy
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the reporting timezone used for day keys.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPricing selects how sales are valued during aggregation.
func WithPricing(p reconciliation.PricingPolicy) Option {
	return func(s *Service) { s.pricing = p }
}

// WithFetchTimeout bounds every snapshot fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMetrics records reconciliation and store metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service around a store.
func NewService(store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		logger:       logger.Named("svc.bakery"),
		loc:          time.UTC,
		pricing:      reconciliation.PriceCurrent,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the reporting timezone.
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current time in the reporting timezone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Today returns the current day key.
func (s *Service) Today() models.DayKey { return models.DayKeyOf(s.now(), s.loc) }

// Snapshot fetches products and both event logs concurrently. Events are
// restricted to created_at >= since when since is set. Any failed fetch fails
// the whole snapshot; callers retry from scratch.
func (s *Service) Snapshot(ctx context.Context, since *time.Time) (reconciliation.Input, error) {
	return s.snapshot(ctx, models.EventFilter{Since: since, Descending: true})
}

func (s *Service) snapshot(ctx context.Context, filter models.EventFilter) (reconciliation.Input, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var in reconciliation.Input
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		products, err := s.store.ListProducts(gctx)
		if err != nil {
			s.storeFailed("list_products", err)
			return err
		}
		in.Products = products
		return nil
	})
	g.Go(func() error {
		production, err := s.store.ListProductionEvents(gctx, filter)
		if err != nil {
			s.storeFailed("list_production", err)
			return err
		}
		in.Production = production
		return nil
	})
	g.Go(func() error {
		sales, err := s.store.ListSaleEvents(gctx, filter)
		if err != nil {
			s.storeFailed("list_sales", err)
			return err
		}
		in.Sales = sales
		return nil
	})

	if err := g.Wait(); err != nil {
		return reconciliation.Input{}, models.Unavailable("snapshot", err)
	}
	return in, nil
}

// window returns a snapshot of events in [day start, day end).
func (s *Service) window(ctx context.Context, from, to models.DayKey) (reconciliation.Input, error) {
	since, until := from.Start(s.loc), to.End(s.loc)
	return s.snapshot(ctx, models.EventFilter{Since: &since, Until: &until, Descending: true})
}

func (s *Service) aggregate(in reconciliation.Input, withEvents bool) []models.DailySummary {
	start := time.Now()
	days := reconciliation.Aggregate(in,
		reconciliation.WithLocation(s.loc),
		reconciliation.WithPricing(s.pricing),
		reconciliation.WithEvents(withEvents),
	)
	if s.metrics != nil {
		s.metrics.ReconcileRuns.Inc()
		s.metrics.ReconcileSec.Observe(time.Since(start).Seconds())
	}
	return days
}

func (s *Service) storeFailed(op string, err error) {
	if !errors.Is(err, models.ErrStoreUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.logger.Warn("store call failed", zap.String("op", op), zap.Error(err))
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
