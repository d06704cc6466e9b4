package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

// Source supplies snapshots; the bakery service implements it.
type Source interface {
	Snapshot(ctx context.Context, since *time.Time) (reconciliation.Input, error)
	Location() *time.Location
	Now() time.Time
}

// Service fetches the window each view needs and runs the pure builders.
type Service struct {
	src     Source
	pricing reconciliation.PricingPolicy
	logger  *zap.Logger
}

// NewService builds an analytics service.
func NewService(src Source, pricing reconciliation.PricingPolicy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, pricing: pricing, logger: logger.Named("svc.analytics")}
}

// Dashboard returns the admin analytics for the range ending now.
func (s *Service) Dashboard(ctx context.Context, r Range) (Dashboard, error) {
	now, loc := s.src.Now(), s.src.Location()
	from := r.Start(now, loc)

	in, err := s.src.Snapshot(ctx, &from)
	if err != nil {
		return Dashboard{}, err
	}
	d := BuildDashboard(in, r, now, loc, s.pricing)
	s.logger.Debug("dashboard built",
		zap.String("range", string(r)),
		zap.Int("products", len(d.Performance)),
		zap.Int("chart_points", len(d.Chart)),
	)
	return d, nil
}

// ProductionStats returns the production dashboard counters.
func (s *Service) ProductionStats(ctx context.Context) (ProductionStats, error) {
	now, loc := s.src.Now(), s.src.Location()
	since := WeekStart(now, loc)
	if m := MonthStart(now, loc); m.Before(since) {
		since = m
	}

	in, err := s.src.Snapshot(ctx, &since)
	if err != nil {
		return ProductionStats{}, err
	}
	return BuildProductionStats(in, now, loc), nil
}

// ProductionHistory returns production batches grouped by day. A zero since
// means all history.
func (s *Service) ProductionHistory(ctx context.Context, since models.DayKey) ([]ProductionDay, error) {
	loc := s.src.Location()
	var from *time.Time
	if since != "" {
		start := since.Start(loc)
		from = &start
	}

	in, err := s.src.Snapshot(ctx, from)
	if err != nil {
		return nil, err
	}
	return BuildProductionHistory(in, loc), nil
}
