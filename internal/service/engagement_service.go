package service

import (
	"context"

	"github.com/linkpulse/internal/db"
	"gorm.io/gorm"
)

const (
	defaultTopPostsLimit = 3
	maxTopPostsLimit     = 100
)

// ReactionBreakdown counts reactions per kind. Kinds without reactions stay at zero.
type ReactionBreakdown struct {
	Likes      int64
	Celebrate  int64
	Support    int64
	Love       int64
	Insightful int64
	Funny      int64
}

// Sum adds up every kind.
func (b ReactionBreakdown) Sum() int64 {
	return b.Likes + b.Celebrate + b.Support + b.Love + b.Insightful + b.Funny
}

func (b *ReactionBreakdown) add(kind db.ReactionKind, count int64) bool {
	switch kind {
	case db.ReactionLike:
		b.Likes += count
	case db.ReactionCelebrate:
		b.Celebrate += count
	case db.ReactionSupport:
		b.Support += count
	case db.ReactionLove:
		b.Love += count
	case db.ReactionInsightful:
		b.Insightful += count
	case db.ReactionFunny:
		b.Funny += count
	default:
		return false
	}
	return true
}

// EngagementSnapshot is derived on every request and never stored.
type EngagementSnapshot struct {
	PostID         uint
	TotalReactions int64
	Impressions    uint64
	// Engagement is the sum of all reaction counts, independent of impressions.
	Engagement    int64
	ReactionTypes ReactionBreakdown
}

// TopPost is one row of the impressions ranking.
type TopPost struct {
	PostID         uint
	Title          string
	Impressions    uint64
	TotalReactions int64
}

// EngagementService 从反应记录与浏览计数推导文章的互动数据。
type EngagementService struct {
	db *gorm.DB
}

// NewEngagementService creates an EngagementService instance.
func NewEngagementService(gdb *gorm.DB) *EngagementService {
	return &EngagementService{db: gdb}
}

// Compute groups the post's reactions by kind. Impressions are copied from post as-is.
func (s *EngagementService) Compute(ctx context.Context, post db.Post) (*EngagementSnapshot, error) {
	var rows []struct {
		Kind  db.ReactionKind
		Count int64
	}
	if err := s.db.WithContext(ctx).
		Model(&db.Reaction{}).
		Select("kind, COUNT(*) AS count").
		Where("post_id = ?", post.ID).
		Group("kind").
		Scan(&rows).Error; err != nil {
		return nil, storageError(err, nil)
	}

	snapshot := &EngagementSnapshot{
		PostID:      post.ID,
		Impressions: post.Impressions,
	}
	for _, row := range rows {
		if snapshot.ReactionTypes.add(row.Kind, row.Count) {
			snapshot.TotalReactions += row.Count
		}
	}
	snapshot.Engagement = snapshot.ReactionTypes.Sum()
	return snapshot, nil
}

// TopPosts ranks posts by impressions, highest first, oldest post first on ties.
// Reaction counts are reported alongside but do not affect the order.
func (s *EngagementService) TopPosts(ctx context.Context, limit int) ([]TopPost, error) {
	if limit <= 0 {
		limit = defaultTopPostsLimit
	}
	if limit > maxTopPostsLimit {
		limit = maxTopPostsLimit
	}

	var top []TopPost
	if err := s.db.WithContext(ctx).
		Table("posts p").
		Select("p.id AS post_id, p.title, p.impressions, COUNT(r.id) AS total_reactions").
		Joins("LEFT JOIN reactions r ON r.post_id = p.id").
		Group("p.id, p.title, p.impressions").
		Order("p.impressions DESC, p.id ASC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		return nil, storageError(err, nil)
	}
	return top, nil
}
