package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/metrics"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	defaultSweepInterval  = time.Minute
	defaultPublishTimeout = 10 * time.Second
)

// ErrSweepInProgress is returned when a sweep is requested while another one is still running.
var ErrSweepInProgress = errors.New("publication sweep already in progress")

// SweepReport summarises one sweep.
type SweepReport struct {
	// Due is the number of scheduled posts whose time had passed when the sweep started.
	Due int
	// Published counts posts this sweep transitioned and announced.
	Published int
	// Skipped counts due posts that were no longer scheduled when claimed.
	Skipped int
	// Failed counts posts left scheduled because publishing or persisting failed.
	Failed int
}

// PublicationSweeper periodically moves due scheduled posts to published.
//
// Each post is claimed with a conditional update (status must still be scheduled)
// committed on its own, so only one sweep or read announces it. The Publisher is
// called after the claim commits and never holds a database connection. A failed or
// timed-out publish releases the claim and the post is retried on the next tick.
type PublicationSweeper struct {
	db        *gorm.DB
	publisher Publisher
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	running   atomic.Bool
	logger    zerolog.Logger
}

// NewPublicationSweeper creates a sweeper running once per minute with a 10s publish timeout.
func NewPublicationSweeper(gdb *gorm.DB, publisher Publisher) *PublicationSweeper {
	if publisher == nil {
		publisher = LogPublisher{}
	}
	return &PublicationSweeper{
		db:        gdb,
		publisher: publisher,
		interval:  defaultSweepInterval,
		timeout:   defaultPublishTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logging.With().Str("component", "publication-sweeper").Logger(),
	}
}

// WithInterval sets the time between sweeps. Non-positive values are ignored.
func (s *PublicationSweeper) WithInterval(d time.Duration) *PublicationSweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithPublishTimeout bounds each Publisher call. Non-positive values are ignored.
func (s *PublicationSweeper) WithPublishTimeout(d time.Duration) *PublicationSweeper {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithClock replaces the time source used to decide which posts are due.
func (s *PublicationSweeper) WithClock(now func() time.Time) *PublicationSweeper {
	if now != nil {
		s.now = func() time.Time { return now().UTC() }
	}
	return s
}

// Serve runs a sweep immediately and then on every tick until ctx is cancelled.
// It implements suture.Service.
func (s *PublicationSweeper) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("publication sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("publication sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PublicationSweeper) String() string {
	return "publication-sweeper"
}

func (s *PublicationSweeper) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		s.logger.Debug().Msg("previous sweep still running, skipping tick")
	case err != nil:
		s.logger.Error().Err(err).Msg("publication sweep failed")
	case report.Due > 0:
		s.logger.Info().
			Int("due", report.Due).
			Int("published", report.Published).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("publication sweep finished")
	}
}

// RunOnce performs a single sweep. Only one sweep runs at a time; a concurrent call
// returns ErrSweepInProgress without touching any post.
func (s *PublicationSweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if !s.running.CompareAndSwap(false, true) {
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return report, ErrSweepInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(started).Seconds()) }()

	now := s.now()
	runLog := s.logger.With().Str("sweep_id", uuid.NewString()).Logger()

	var due []db.Post
	if err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", db.PostStatusScheduled, now).
		Order("scheduled_at asc, id asc").
		Find(&due).Error; err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		return report, storageError(err, nil)
	}
	report.Due = len(due)

	for i := range due {
		if ctx.Err() != nil {
			break
		}

		published, err := s.publish(ctx, &due[i], now)
		switch {
		case err != nil && publishFailureReason(err) == "skipped":
			report.Skipped++
		case err != nil:
			report.Failed++
			metrics.PublishFailures.WithLabelValues(publishFailureReason(err)).Inc()
			runLog.Warn().Err(err).Uint("post_id", due[i].ID).Msg("post not published, will retry next sweep")
		case published:
			report.Published++
			metrics.PostsPublished.WithLabelValues("sweep").Inc()
			runLog.Info().Uint("post_id", due[i].ID).Msg("scheduled post published")
		default:
			report.Skipped++
		}
	}

	metrics.SweepRuns.WithLabelValues("completed").Inc()
	return report, nil
}

// PublishDue publishes one post if it is scheduled and due. It reports whether this
// call performed the transition.
func (s *PublicationSweeper) PublishDue(ctx context.Context, postID uint) (bool, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return false, storageError(err, ErrPostNotFound)
	}

	now := s.now()
	if !post.IsDue(now) {
		return false, nil
	}

	published, err := s.publish(ctx, &post, now)
	if err != nil {
		if reason := publishFailureReason(err); reason != "skipped" {
			metrics.PublishFailures.WithLabelValues(reason).Inc()
		}
		return false, err
	}
	if published {
		metrics.PostsPublished.WithLabelValues("read").Inc()
	}
	return published, nil
}

// publish claims the post, then announces it with no transaction open. A failed
// announcement releases the claim so the next sweep retries the post.
func (s *PublicationSweeper) publish(ctx context.Context, post *db.Post, now time.Time) (bool, error) {
	claimed, err := s.claim(ctx, post.ID, now)
	if err != nil || !claimed {
		return false, err
	}

	announced := *post
	announced.Status = db.PostStatusPublished

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.publisher.Publish(callCtx, announced); err != nil {
		publishErr := fmt.Errorf("%w: post %d: %w", ErrExternalPublish, post.ID, err)
		// ctx 可能已被取消，撤销认领仍然要落库
		if releaseErr := s.release(context.WithoutCancel(ctx), post.ID); releaseErr != nil {
			return false, errors.Join(publishErr, releaseErr)
		}
		return false, publishErr
	}

	post.Status = db.PostStatusPublished
	return true, nil
}

// claim 用条件更新抢占帖子，只有仍处于 scheduled 的行会被改写。
func (s *PublicationSweeper) claim(ctx context.Context, postID uint, now time.Time) (bool, error) {
	claimed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Post{}).
			Where("id = ? AND status = ? AND scheduled_at <= ?", postID, db.PostStatusScheduled, now).
			Update("status", db.PostStatusPublished)
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, storageError(err, nil)
	}
	return claimed, nil
}

// release 把认领过的帖子退回 scheduled。
func (s *PublicationSweeper) release(ctx context.Context, postID uint) error {
	err := s.db.WithContext(ctx).Model(&db.Post{}).
		Where("id = ? AND status = ?", postID, db.PostStatusPublished).
		Update("status", db.PostStatusScheduled).Error
	return storageError(err, nil)
}
