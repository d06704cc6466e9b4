package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// Publisher publishes the digest of one day.
type Publisher interface {
	Publish(ctx context.Context, day models.DayKey) (models.DailyDigest, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	loc       *time.Location
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a scheduler whose cron expressions are evaluated in loc.
func NewScheduler(spec string, loc *time.Location, publisher Publisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	// Standard 5-field parser: min, hour, dom, month, dow.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:      c,
		spec:      spec,
		loc:       loc,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("scheduler"),
	}
}

// Start registers the nightly digest and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec), zap.String("timezone", s.loc.String()))

	if _, err := s.cron.AddFunc(s.spec, s.publishDailyDigest); err != nil {
		s.logger.Error("failed to schedule daily digest", zap.Error(err))
		return fmt.Errorf("schedule daily digest %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) publishDailyDigest() {
	day := models.DayKeyOf(s.now(), s.loc)
	s.logger.Info("publishing daily digest", zap.String("day", string(day)))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.publisher.Publish(ctx, day); err != nil {
		s.logger.Error("failed to publish daily digest", zap.String("day", string(day)), zap.Error(err))
		return
	}
	s.logger.Info("daily digest published successfully", zap.String("day", string(day)))
}
