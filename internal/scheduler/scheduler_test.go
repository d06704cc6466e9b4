package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

type recordingPublisher struct {
	days        []models.DayKey
	hadDeadline bool
}

func (r *recordingPublisher) Publish(ctx context.Context, day models.DayKey) (models.DailyDigest, error) {
	_, r.hadDeadline = ctx.Deadline()
	r.days = append(r.days, day)
	return models.DailyDigest{Day: string(day)}, nil
}

func TestPublishDailyDigest_UsesReportingTimezone(t *testing.T) {
	pub := &recordingPublisher{}
	loc := time.FixedZone("UTC+8", 8*60*60)
	s := NewScheduler("0 21 * * *", loc, pub, nil)
	// 20:30 UTC is already the next day at UTC+8.
	s.now = func() time.Time { return time.Date(2025, 4, 14, 20, 30, 0, 0, time.UTC) }

	s.publishDailyDigest()

	require.Len(t, pub.days, 1)
	assert.Equal(t, models.DayKey("2025-04-15"), pub.days[0])
	assert.True(t, pub.hadDeadline)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler("every evening", time.UTC, &recordingPublisher{}, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler("0 21 * * *", nil, &recordingPublisher{}, nil)
	require.NoError(t, s.Start())
	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 21, entries[0].Next.In(time.UTC).Hour())
	s.Stop()
}
