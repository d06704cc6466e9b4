package reporting

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/metrics"
)

var generatedAt = time.Date(2025, 4, 14, 21, 0, 0, 0, time.UTC)

type fakeSource struct {
	summary models.DailySummary
	err     error
}

func (f fakeSource) Day(_ context.Context, day models.DayKey) (models.DailySummary, error) {
	if f.err != nil {
		return models.DailySummary{}, f.err
	}
	s := f.summary
	s.Day = day
	s.Label = day.Label(time.UTC)
	return s, nil
}

func (fakeSource) Location() *time.Location { return time.UTC }

type fakeArchive struct {
	saved []models.DailyDigest
	err   error
}

func (f *fakeArchive) SaveDailyDigest(_ context.Context, d models.DailyDigest) error {
	f.saved = append(f.saved, d)
	return f.err
}

type fakeSheet struct {
	existing [][]interface{}
	written  [][]interface{}
	ranges   []string
}

func (f *fakeSheet) WriteRow(ctx context.Context, r string, values []interface{}) error {
	return f.WriteRows(ctx, r, [][]interface{}{values})
}

func (f *fakeSheet) WriteRows(_ context.Context, r string, rows [][]interface{}) error {
	f.ranges = append(f.ranges, r)
	f.written = append(f.written, rows...)
	return nil
}

func (f *fakeSheet) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.existing, nil
}

type fakeNotifier struct {
	sent []models.OutboundMessageRequest
}

func (f *fakeNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = append(f.sent, req)
	return nil
}

func summary() models.DailySummary {
	return models.DailySummary{
		TotalRevenue:     decimal.RequireFromString("25"),
		TotalUnsoldValue: decimal.RequireFromString("6"),
		TotalItemsSold:   9,
		TotalProduced:    12,
		Products: []models.DailyProductSummary{
			{ProductID: uuid.New(), ProductName: "Bread", Produced: 10, Sold: 7, Unsold: 3, Revenue: decimal.RequireFromString("14")},
			{ProductID: uuid.New(), ProductName: "Cake", Produced: 2, Sold: 2, Unsold: 0, Revenue: decimal.RequireFromString("11")},
		},
	}
}

func TestBuildDigest(t *testing.T) {
	svc := NewService(fakeSource{summary: summary()}, nil, WithClock(func() time.Time { return generatedAt }))

	digest, text, err := svc.BuildDigest(context.Background(), models.DayKey("2025-04-14"))
	require.NoError(t, err)

	assert.Equal(t, "2025-04-14", digest.Day)
	assert.Equal(t, "UTC", digest.Timezone)
	assert.Equal(t, "25.00", digest.TotalRevenue)
	assert.Equal(t, "6.00", digest.TotalUnsoldValue)
	require.Len(t, digest.Lines, 2)
	assert.Equal(t, models.DigestLine{ProductName: "Bread", Produced: 10, Sold: 7, Unsold: 3, Revenue: "14.00"}, digest.Lines[0])
	assert.Equal(t, generatedAt, digest.GeneratedAt)

	assert.Contains(t, text, "Bakery digest, Monday, 14 April 2025")
	assert.Contains(t, text, "Sold 9 of 12 made")
	assert.Contains(t, text, "- Cake: made 2, sold 2, left 0, revenue 11.00")
}

func TestFormatDigest_NoActivity(t *testing.T) {
	text := FormatDigest("Sunday, 13 April 2025", models.DailyDigest{TotalRevenue: "0.00", TotalUnsoldValue: "0.00"})
	assert.Contains(t, text, "No activity recorded.")
}

func TestPublish_AllSinks(t *testing.T) {
	archive, sheet, notifier := &fakeArchive{}, &fakeSheet{}, &fakeNotifier{}
	reg := metrics.NewRegistry()
	svc := NewService(fakeSource{summary: summary()}, nil,
		WithArchive(archive),
		WithSheet(sheet),
		WithNotifier(notifier, "221700000000"),
		WithMetrics(reg),
	)

	digest, err := svc.Publish(context.Background(), models.DayKey("2025-04-14"))
	require.NoError(t, err)

	require.Len(t, archive.saved, 1)
	assert.Equal(t, digest.Day, archive.saved[0].Day)

	require.Len(t, sheet.written, 2)
	assert.Equal(t, []string{"Digest!A:G"}, sheet.ranges)
	assert.Equal(t, "Bread", sheet.written[0][1])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "221700000000", notifier.sent[0].To)
}

func TestPublish_SinkFailureDoesNotStopOthers(t *testing.T) {
	errDown := errors.New("server selection timeout")
	archive, notifier := &fakeArchive{err: errDown}, &fakeNotifier{}
	svc := NewService(fakeSource{summary: summary()}, nil,
		WithArchive(archive),
		WithNotifier(notifier, "221700000000"),
	)

	_, err := svc.Publish(context.Background(), models.DayKey("2025-04-14"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
	assert.Contains(t, err.Error(), "mongodb")
	assert.Len(t, notifier.sent, 1)
}

func TestPublish_CountsOnlyCleanDigests(t *testing.T) {
	reg := metrics.NewRegistry()
	failing := NewService(fakeSource{summary: summary()}, nil,
		WithArchive(&fakeArchive{err: errors.New("server selection timeout")}),
		WithMetrics(reg),
	)
	_, err := failing.Publish(context.Background(), models.DayKey("2025-04-14"))
	require.Error(t, err)

	body := scrape(t, reg)
	assert.Contains(t, body, "bakery_digests_published_total 0")
	assert.Contains(t, body, `bakery_digest_sink_errors_total{sink="mongodb"} 1`)

	clean := NewService(fakeSource{summary: summary()}, nil, WithArchive(&fakeArchive{}), WithMetrics(reg))
	_, err = clean.Publish(context.Background(), models.DayKey("2025-04-15"))
	require.NoError(t, err)
	assert.Contains(t, scrape(t, reg), "bakery_digests_published_total 1")
}

func scrape(t *testing.T, reg *metrics.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPublish_SkipsAlreadyExportedDay(t *testing.T) {
	sheet := &fakeSheet{existing: [][]interface{}{
		{"day", "product"},
		{"2025-04-14", "Bread", 10, 7, 3, "14.00", "2025-04-14T21:00:00Z"},
	}}
	svc := NewService(fakeSource{summary: summary()}, nil, WithSheet(sheet))

	_, err := svc.Publish(context.Background(), models.DayKey("2025-04-14"))
	require.NoError(t, err)
	assert.Empty(t, sheet.written)
}

func TestPublish_SourceFailure(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewService(fakeSource{err: models.ErrStoreUnavailable}, nil, WithArchive(archive))

	_, err := svc.Publish(context.Background(), models.DayKey("2025-04-14"))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Empty(t, archive.saved)
}
