package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"standupboard/internal/session"

	"github.com/robfig/cron/v3"
)

const (
	PurgeSessionsSpec     = "0 * * * *"
	EvictFeedsSpec        = "*/5 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	purgeSessionsTimeout  = 5 * time.Minute
)

// Purger deletes stored entries by key prefix that were last written before cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, prefix string, cutoff time.Time) (int64, error)
}

// Evictor drops feeds that were not used for a while.
type Evictor interface {
	EvictIdle(now time.Time) int
}

type Scheduler struct {
	ctx        context.Context
	cron       *cron.Cron
	purger     Purger
	sessionTTL time.Duration
	caches     []Evictor
	now        func() time.Time
	log        *slog.Logger
}

func New(
	ctx context.Context,
	purger Purger,
	sessionTTL time.Duration,
	caches []Evictor,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:        ctx,
		cron:       c,
		purger:     purger,
		sessionTTL: sessionTTL,
		caches:     caches,
		now:        time.Now,
		log:        log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessionTTL > 0 {
		if _, err := s.cron.AddFunc(PurgeSessionsSpec, s.purgeSessions); err != nil {
			return fmt.Errorf("add purge sessions job: %w", err)
		}
	}

	if _, err := s.cron.AddFunc(EvictFeedsSpec, s.evictFeeds); err != nil {
		return fmt.Errorf("add evict feeds job: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(s.ctx, purgeSessionsTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if err := s.PurgeSessions(ctx); err != nil {
		s.log.ErrorContext(ctx, "Failed to purge stale sessions",
			"error", err,
			"sessionTTL", s.sessionTTL.String())
	}
}

// PurgeSessions deletes browser and user sessions older than the session TTL.
func (s *Scheduler) PurgeSessions(ctx context.Context) error {
	cutoff := s.now().Add(-s.sessionTTL)

	var (
		errs   []error
		purged int64
	)

	for _, prefix := range []string{session.SlotKeyPrefix, session.UserKeyPrefix} {
		n, err := s.purger.PurgeBefore(ctx, prefix, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge before (prefix = %s): %w", prefix, err))
			continue
		}

		purged += n
	}

	if purged > 0 {
		s.log.InfoContext(ctx, "Stale sessions are purged",
			"purged", purged,
			"cutoff", cutoff)
	}

	return errors.Join(errs...)
}

func (s *Scheduler) evictFeeds() {
	if evicted := s.EvictFeeds(); evicted > 0 {
		s.log.InfoContext(s.ctx, "Idle feeds are evicted",
			"evicted", evicted)
	}
}

func (s *Scheduler) EvictFeeds() int {
	now := s.now()
	evicted := 0

	for _, cache := range s.caches {
		evicted += cache.EvictIdle(now)
	}

	return evicted
}
