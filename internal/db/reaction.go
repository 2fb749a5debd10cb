package db

import (
	"fmt"
	"time"
)

// ReactionKind 表示用户对文章的反应类型。
type ReactionKind string

const (
	ReactionLike       ReactionKind = "like"
	ReactionCelebrate  ReactionKind = "celebrate"
	ReactionSupport    ReactionKind = "support"
	ReactionLove       ReactionKind = "love"
	ReactionInsightful ReactionKind = "insightful"
	ReactionFunny      ReactionKind = "funny"
)

// ReactionKinds 按固定顺序列出所有反应类型。
var ReactionKinds = []ReactionKind{
	ReactionLike,
	ReactionCelebrate,
	ReactionSupport,
	ReactionLove,
	ReactionInsightful,
	ReactionFunny,
}

// Reaction 记录某个用户对某篇文章的唯一一次反应。
type Reaction struct {
	ID        uint         `gorm:"primaryKey"`
	PostID    uint         `gorm:"not null;uniqueIndex:idx_reactions_post_user"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reactions_post_user;index"`
	Kind      ReactionKind `gorm:"size:16;not null"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (Reaction) TableName() string {
	return "reactions"
}

// Valid 判断反应类型是否受支持。
func (k ReactionKind) Valid() bool {
	for _, kind := range ReactionKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// ParseReactionKind 将外部输入解析为反应类型。
func ParseReactionKind(raw string) (ReactionKind, error) {
	kind := ReactionKind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown reaction kind %q", raw)
	}
	return kind, nil
}
