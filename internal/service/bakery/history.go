package bakery

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
)

// HistoryQuery scopes the admin history view. A zero Since means all history.
type HistoryQuery struct {
	Since      models.DayKey
	WithEvents bool
}

// History returns one summary per day with activity, most recent first.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]models.DailySummary, error) {
	var since *time.Time
	if q.Since != "" {
		start := q.Since.Start(s.loc)
		since = &start
	}

	in, err := s.Snapshot(ctx, since)
	if err != nil {
		return nil, err
	}
	return s.aggregate(in, q.WithEvents), nil
}

// Day returns the summary for a single day. A day without events yields an
// empty summary rather than an error.
func (s *Service) Day(ctx context.Context, day models.DayKey) (models.DailySummary, error) {
	in, err := s.window(ctx, day, day)
	if err != nil {
		return models.DailySummary{}, err
	}
	for _, summary := range s.aggregate(in, false) {
		if summary.Day == day {
			return summary, nil
		}
	}
	return models.DailySummary{
		Day:              day,
		Label:            day.Label(s.loc),
		TotalRevenue:     decimal.Zero,
		TotalUnsoldValue: decimal.Zero,
		Products:         []models.DailyProductSummary{},
	}, nil
}

// Ledger replays the full history so opening balances are correct, then
// trims days before since.
func (s *Service) Ledger(ctx context.Context, since models.DayKey) ([]reconciliation.LedgerDay, error) {
	in, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}

	days := reconciliation.BuildLedger(in, s.loc)
	if since == "" {
		return days, nil
	}
	out := days[:0]
	for _, d := range days {
		if d.Day >= since {
			out = append(out, d)
		}
	}
	return out, nil
}
