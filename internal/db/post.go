package db

import (
	"fmt"
	"time"
)

// PostStatus 表示文章的生命周期状态。
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
)

// Post 定义了文章模型
type Post struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"index;not null"`
	Title       string     `gorm:"size:100;not null"`
	Body        string     `gorm:"type:text;not null"`
	Status      PostStatus `gorm:"size:16;index:idx_posts_status_scheduled;not null;default:published"`
	ScheduledAt *time.Time `gorm:"index:idx_posts_status_scheduled"`
	Impressions uint64     `gorm:"not null;default:0"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
	Reactions   []Reaction `gorm:"constraint:OnDelete:CASCADE;"`
}

// TableName 指定自定义表名。
func (Post) TableName() string {
	return "posts"
}

// Valid 判断状态值是否属于已知的生命周期状态。
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished:
		return true
	default:
		return false
	}
}

// ParsePostStatus 将外部输入解析为生命周期状态。
func ParsePostStatus(raw string) (PostStatus, error) {
	status := PostStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown post status %q", raw)
	}
	return status, nil
}

// InitialStatus 根据计划发布时间推导新文章的初始状态：未来时间为 scheduled，其余直接发布。
func InitialStatus(scheduledAt *time.Time, now time.Time) PostStatus {
	if scheduledAt != nil && scheduledAt.After(now) {
		return PostStatusScheduled
	}
	return PostStatusPublished
}

// CanTransition 描述允许的状态迁移。published 是终态。
func CanTransition(from, to PostStatus) bool {
	switch from {
	case PostStatusDraft:
		return to == PostStatusDraft || to == PostStatusScheduled || to == PostStatusPublished
	case PostStatusScheduled:
		return to == PostStatusScheduled || to == PostStatusPublished || to == PostStatusDraft
	case PostStatusPublished:
		return to == PostStatusPublished
	default:
		return false
	}
}

// IsDue 判断计划中的文章是否已到发布时间。
func (p Post) IsDue(now time.Time) bool {
	return p.Status == PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}
