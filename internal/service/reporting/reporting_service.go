package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/metrics"
	"github.com/mamadbah2/bakery/internal/repository/sheets"
)

const dateLayout = "2006-01-02"

// DaySource yields the reconciled summary of one day.
type DaySource interface {
	Day(ctx context.Context, day models.DayKey) (models.DailySummary, error)
	Location() *time.Location
}

// Archive stores digests; the MongoDB repository implements it.
type Archive interface {
	SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error
}

// Notifier delivers the digest text; the WhatsApp service implements it.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Service builds end-of-day digests and fans them out to the configured sinks.
type Service struct {
	src       DaySource
	archive   Archive
	sheet     sheets.Repository
	notifier  Notifier
	recipient string
	metrics   *metrics.Registry
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures optional sinks.
type Option func(*Service)

// WithArchive enables the MongoDB archive.
func WithArchive(a Archive) Option { return func(s *Service) { s.archive = a } }

// WithSheet enables the Google Sheets export.
func WithSheet(r sheets.Repository) Option { return func(s *Service) { s.sheet = r } }

// WithNotifier sends the digest text to recipient.
func WithNotifier(n Notifier, recipient string) Option {
	return func(s *Service) {
		s.notifier = n
		s.recipient = recipient
	}
}

// WithMetrics counts published digests and sink failures.
func WithMetrics(m *metrics.Registry) Option { return func(s *Service) { s.metrics = m } }

// WithClock overrides GeneratedAt timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a new reporting service instance.
func NewService(src DaySource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{src: src, logger: logger.Named("svc.reporting"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildDigest reconciles one day and renders it for archiving and chat.
func (s *Service) BuildDigest(ctx context.Context, day models.DayKey) (models.DailyDigest, string, error) {
	summary, err := s.src.Day(ctx, day)
	if err != nil {
		return models.DailyDigest{}, "", fmt.Errorf("build digest %s: %w", day, err)
	}

	digest := models.DailyDigest{
		Day:              string(summary.Day),
		Timezone:         s.src.Location().String(),
		TotalRevenue:     summary.TotalRevenue.StringFixed(2),
		TotalUnsoldValue: summary.TotalUnsoldValue.StringFixed(2),
		TotalItemsSold:   summary.TotalItemsSold,
		TotalProduced:    summary.TotalProduced,
		Lines:            make([]models.DigestLine, 0, len(summary.Products)),
		GeneratedAt:      s.now().UTC(),
	}
	for _, p := range summary.Products {
		digest.Lines = append(digest.Lines, models.DigestLine{
			ProductName: p.ProductName,
			Produced:    p.Produced,
			Sold:        p.Sold,
			Unsold:      p.Unsold,
			Revenue:     p.Revenue.StringFixed(2),
		})
	}

	return digest, FormatDigest(summary.Label, digest), nil
}

// Publish builds the digest for day and sends it to every configured sink.
// A failing sink does not stop the others; failures are joined.
func (s *Service) Publish(ctx context.Context, day models.DayKey) (models.DailyDigest, error) {
	digest, text, err := s.BuildDigest(ctx, day)
	if err != nil {
		return models.DailyDigest{}, err
	}

	var errs []error
	fail := func(sink string, err error) {
		s.logger.Error("digest sink failed", zap.String("sink", sink), zap.String("day", digest.Day), zap.Error(err))
		if s.metrics != nil {
			s.metrics.DigestSinkErrors.WithLabelValues(sink).Inc()
		}
		errs = append(errs, fmt.Errorf("%s: %w", sink, err))
	}

	if s.archive != nil {
		if err := s.archive.SaveDailyDigest(ctx, digest); err != nil {
			fail("mongodb", err)
		}
	}

	if s.sheet != nil {
		if err := s.exportToSheet(ctx, digest); err != nil {
			fail("sheets", err)
		}
	}

	if s.notifier != nil && s.recipient != "" {
		req := models.OutboundMessageRequest{To: s.recipient, Message: text}
		if err := s.notifier.SendOutbound(ctx, req); err != nil {
			fail("whatsapp", err)
		}
	}

	if s.metrics != nil && len(errs) == 0 {
		s.metrics.DigestsPublished.Inc()
	}
	s.logger.Info("digest published",
		zap.String("day", digest.Day),
		zap.String("revenue", digest.TotalRevenue),
		zap.Int("failed_sinks", len(errs)),
	)
	return digest, errors.Join(errs...)
}

// exportToSheet appends one row per product unless the day was already exported.
func (s *Service) exportToSheet(ctx context.Context, digest models.DailyDigest) error {
	rows, err := s.sheet.ReadRange(ctx, sheets.DigestRange)
	if err != nil {
		return fmt.Errorf("load exported days: %w", err)
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		exported, err := parseDate(row[0])
		if err != nil {
			continue
		}
		if exported.Format(dateLayout) == digest.Day {
			s.logger.Debug("digest already exported", zap.String("day", digest.Day))
			return nil
		}
	}

	out := make([][]interface{}, 0, len(digest.Lines))
	generated := digest.GeneratedAt.Format(time.RFC3339)
	for _, line := range digest.Lines {
		out = append(out, []interface{}{digest.Day, line.ProductName, line.Produced, line.Sold, line.Unsold, line.Revenue, generated})
	}
	if len(out) == 0 {
		out = append(out, []interface{}{digest.Day, "", 0, 0, 0, "0.00", generated})
	}
	return s.sheet.WriteRows(ctx, sheets.DigestRange, out)
}

// FormatDigest renders the chat message for a digest.
func FormatDigest(label string, d models.DailyDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bakery digest, %s\n", label)
	fmt.Fprintf(&b, "Revenue: %s | Unsold value: %s\n", d.TotalRevenue, d.TotalUnsoldValue)
	fmt.Fprintf(&b, "Sold %d of %d made", d.TotalItemsSold, d.TotalProduced)
	if len(d.Lines) == 0 {
		b.WriteString("\nNo activity recorded.")
		return b.String()
	}
	for _, line := range d.Lines {
		fmt.Fprintf(&b, "\n- %s: made %d, sold %d, left %d, revenue %s",
			line.ProductName, line.Produced, line.Sold, line.Unsold, line.Revenue)
	}
	return b.String()
}

func parseDate(value interface{}) (time.Time, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}
