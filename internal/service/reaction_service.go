package service

import (
	"context"
	"time"

	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/metrics"
	"gorm.io/gorm"
)

// ReactionService records one reaction per user per post.
type ReactionService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReactionService creates a ReactionService instance.
func NewReactionService(gdb *gorm.DB) *ReactionService {
	return &ReactionService{db: gdb, now: func() time.Time { return time.Now().UTC() }}
}

// Add records userID's reaction on postID. A second reaction from the same user fails
// with ErrReactionExists; the unique index catches callers racing past the pre-check.
func (s *ReactionService) Add(ctx context.Context, postID, userID uint, kind db.ReactionKind) (*db.Reaction, error) {
	if !kind.Valid() {
		return nil, ErrInvalidReaction
	}

	var reaction db.Reaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePostExists(tx, postID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&db.Reaction{}).
			Where("post_id = ? AND user_id = ?", postID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrReactionExists
		}

		reaction = db.Reaction{
			PostID:    postID,
			UserID:    userID,
			Kind:      kind,
			CreatedAt: s.now(),
		}
		if err := tx.Create(&reaction).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrReactionExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err, nil)
	}

	metrics.ReactionsAdded.WithLabelValues(string(kind)).Inc()
	return &reaction, nil
}

// Remove deletes userID's reaction on postID. Only the reacting user's own row is matched.
func (s *ReactionService) Remove(ctx context.Context, postID, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&db.Reaction{})
	if result.Error != nil {
		return storageError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ErrReactionNotFound
	}
	return nil
}

// ListForPost returns the reactions of a post in the order they were made.
func (s *ReactionService) ListForPost(ctx context.Context, postID uint) ([]db.Reaction, error) {
	if err := ensurePostExists(s.db.WithContext(ctx), postID); err != nil {
		return nil, storageError(err, nil)
	}

	var reactions []db.Reaction
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at asc, id asc").
		Find(&reactions).Error; err != nil {
		return nil, storageError(err, nil)
	}
	return reactions, nil
}

func ensurePostExists(tx *gorm.DB, postID uint) error {
	var count int64
	if err := tx.Model(&db.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPostNotFound
	}
	return nil
}
