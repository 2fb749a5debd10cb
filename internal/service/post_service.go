package service

import (
	"context"
	"strings"
	"time"

	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultScheduleGrace = 5 * time.Second

// Promoter publishes a scheduled post whose time has come. The read path uses it
// so a due post is never handed out as scheduled.
type Promoter interface {
	PublishDue(ctx context.Context, postID uint) (bool, error)
}

// PostService wraps post related database operations.
type PostService struct {
	db       *gorm.DB
	grace    time.Duration
	now      func() time.Time
	promoter Promoter
}

// PostFilter describes filters for listing posts. Set fields are combined with AND.
type PostFilter struct {
	UserID    *uint
	Status    db.PostStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title       string `validate:"min=16,max=100"`
	Body        string `validate:"min=100"`
	ScheduledAt *time.Time
	// Draft keeps the post out of the publication flow until it is explicitly scheduled or published.
	Draft bool
}

// PostPatch carries a partial update. Nil fields leave the stored value untouched.
type PostPatch struct {
	Title       *string `validate:"omitnil,min=16,max=100"`
	Body        *string `validate:"omitnil,min=100"`
	ScheduledAt *time.Time
	Status      *db.PostStatus
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{
		db:    gdb,
		grace: defaultScheduleGrace,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithScheduleGrace sets how far in the past scheduled_at may lie before it is rejected.
func (s *PostService) WithScheduleGrace(d time.Duration) *PostService {
	if d < 0 {
		return s
	}
	s.grace = d
	return s
}

// WithClock overrides the time source, mainly for tests.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	if now != nil {
		s.now = func() time.Time { return now().UTC() }
	}
	return s
}

// WithPromoter wires the component that publishes due posts observed on reads.
func (s *PostService) WithPromoter(p Promoter) *PostService {
	s.promoter = p
	return s
}

// Create persists a new post owned by the caller. A future scheduled_at makes it
// scheduled, anything else is published immediately.
func (s *PostService) Create(ctx context.Context, owner Identity, input PostInput) (*db.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.now()
	scheduledAt, err := s.normalizeSchedule(input.ScheduledAt, now)
	if err != nil {
		return nil, err
	}

	status := db.InitialStatus(scheduledAt, now)
	if input.Draft {
		status = db.PostStatusDraft
	}

	post := db.Post{
		UserID:      owner.UserID,
		Title:       input.Title,
		Body:        input.Body,
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, storageError(err, nil)
	}
	return &post, nil
}

// Update applies a partial update to an existing post. Only the owner or an admin may do so.
func (s *PostService) Update(ctx context.Context, id uint, requester Identity, patch PostPatch) (*db.Post, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if patch.Body != nil {
		trimmed := strings.TrimSpace(*patch.Body)
		patch.Body = &trimmed
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var post db.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			return err
		}
		if !requester.CanModify(post.UserID) {
			return ErrNotPostOwner
		}

		updates, err := s.applyPatch(&post, patch, s.now())
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&db.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&post, id).Error
	})
	if err != nil {
		return nil, storageError(err, ErrPostNotFound)
	}

	if post.IsDue(s.now()) {
		s.promote(ctx, &post)
	}
	return &post, nil
}

// Delete removes a post and its reactions. Only the owner or an admin may do so.
func (s *PostService) Delete(ctx context.Context, id uint, requester Identity) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			return err
		}
		if !requester.CanModify(post.UserID) {
			return ErrNotPostOwner
		}

		if err := tx.Where("post_id = ?", id).Delete(&db.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Post{}, id).Error
	})
	return storageError(err, ErrPostNotFound)
}

// Get fetches a post by id and records one impression. The increment happens in SQL
// so concurrent readers never overwrite each other.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Post{}).
			Where("id = ?", id).
			UpdateColumn("impressions", gorm.Expr("impressions + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return tx.First(&post, id).Error
	})
	if err != nil {
		return nil, storageError(err, ErrPostNotFound)
	}
	metrics.PostImpressions.Inc()

	if post.IsDue(s.now()) {
		s.promote(ctx, &post)
	}
	return &post, nil
}

// Peek fetches a post without counting an impression.
func (s *PostService) Peek(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, storageError(err, ErrPostNotFound)
	}
	return &post, nil
}

// List returns posts matching filter, newest first. Due scheduled posts matching the
// filter are promoted before the query runs so the status filter sees their real state.
func (s *PostService) List(ctx context.Context, filter PostFilter) ([]db.Post, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidPostStatus
	}

	if err := s.promoteDue(ctx, filter); err != nil {
		return nil, err
	}

	var posts []db.Post
	query := s.applyFilters(s.db.WithContext(ctx).Model(&db.Post{}), filter)
	if err := query.Order("posts.created_at desc, posts.id desc").Find(&posts).Error; err != nil {
		return nil, storageError(err, nil)
	}
	return posts, nil
}

// ListByOwner returns every post of one user, newest first.
func (s *PostService) ListByOwner(ctx context.Context, ownerID uint) ([]db.Post, error) {
	return s.List(ctx, PostFilter{UserID: &ownerID})
}

func (s *PostService) promoteDue(ctx context.Context, filter PostFilter) error {
	if s.promoter == nil || filter.Status == db.PostStatusDraft {
		return nil
	}

	withoutStatus := filter
	withoutStatus.Status = ""

	var ids []uint
	query := s.applyFilters(s.db.WithContext(ctx).Model(&db.Post{}), withoutStatus)
	if err := query.
		Where("posts.status = ? AND posts.scheduled_at <= ?", db.PostStatusScheduled, s.now()).
		Pluck("posts.id", &ids).Error; err != nil {
		return storageError(err, nil)
	}

	for _, id := range ids {
		if _, err := s.promoter.PublishDue(ctx, id); err != nil {
			logging.Warn().Err(err).Uint("post_id", id).Msg("due post left scheduled; sweeper will retry")
		}
	}
	return nil
}

func (s *PostService) promote(ctx context.Context, post *db.Post) {
	if s.promoter == nil {
		return
	}
	if _, err := s.promoter.PublishDue(ctx, post.ID); err != nil {
		logging.Warn().Err(err).Uint("post_id", post.ID).Msg("due post left scheduled; sweeper will retry")
		return
	}

	var current db.Post
	if err := s.db.WithContext(ctx).Select("status", "scheduled_at").First(&current, post.ID).Error; err != nil {
		logging.Warn().Err(err).Uint("post_id", post.ID).Msg("reload after promotion failed")
		return
	}
	post.Status = current.Status
	post.ScheduledAt = current.ScheduledAt
}

// normalizeSchedule rejects times older than the grace window and stores UTC.
func (s *PostService) normalizeSchedule(scheduledAt *time.Time, now time.Time) (*time.Time, error) {
	if scheduledAt == nil || scheduledAt.IsZero() {
		return nil, nil
	}
	if scheduledAt.Before(now.Add(-s.grace)) {
		return nil, ErrScheduledInPast
	}
	utc := scheduledAt.UTC()
	return &utc, nil
}

// applyPatch mutates post in memory and returns the columns to persist.
func (s *PostService) applyPatch(post *db.Post, patch PostPatch, now time.Time) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if patch.Title != nil && *patch.Title != post.Title {
		post.Title = *patch.Title
		updates["title"] = post.Title
	}
	if patch.Body != nil && *patch.Body != post.Body {
		post.Body = *patch.Body
		updates["body"] = post.Body
	}

	if patch.Status == nil && patch.ScheduledAt == nil {
		return updates, nil
	}

	current := post.Status
	scheduledAt := post.ScheduledAt

	if patch.ScheduledAt != nil {
		if current == db.PostStatusPublished {
			return nil, ErrInvalidTransition
		}
		normalized, err := s.normalizeSchedule(patch.ScheduledAt, now)
		if err != nil {
			return nil, err
		}
		scheduledAt = normalized
	}

	target := current
	switch {
	case patch.Status != nil:
		if !patch.Status.Valid() {
			return nil, ErrInvalidPostStatus
		}
		target = *patch.Status
	case current == db.PostStatusScheduled:
		target = db.InitialStatus(scheduledAt, now)
	}

	if !db.CanTransition(current, target) {
		return nil, ErrInvalidTransition
	}

	switch target {
	case db.PostStatusScheduled:
		if scheduledAt == nil || !scheduledAt.After(now) {
			return nil, ErrScheduleRequired
		}
	case db.PostStatusPublished:
		if scheduledAt != nil && scheduledAt.After(now) {
			scheduledAt = nil
		}
	case db.PostStatusDraft:
	}

	post.Status = target
	post.ScheduledAt = scheduledAt
	updates["status"] = target
	updates["scheduled_at"] = scheduledAt
	return updates, nil
}

func (s *PostService) applyFilters(query *gorm.DB, filter PostFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("posts.user_id = ?", *filter.UserID)
	}

	if filter.Status != "" {
		query = query.Where("posts.status = ?", filter.Status)
	}

	if filter.StartDate != nil {
		query = query.Where("posts.created_at >= ?", filter.StartDate.UTC())
	}

	if filter.EndDate != nil {
		query = query.Where("posts.created_at <= ?", filter.EndDate.UTC())
	}

	return query
}
