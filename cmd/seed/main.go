package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linkpulse/internal/config"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/service"
	"gorm.io/gorm"
)

const seedPassword = "linkpulse-demo-password"

var seedUsers = []service.RegisterInput{
	{Username: "alice-writer", Firstname: "Alice", Lastname: "Writer"},
	{Username: "bob-reader", Firstname: "Bob", Lastname: "Reader"},
	{Username: "carol-critic", Firstname: "Carol", Lastname: "Critic"},
}

type seedPost struct {
	title    string
	topic    string
	schedule time.Duration
	draft    bool
}

var seedPosts = []seedPost{
	{title: "Shipping the engagement dashboard", topic: "what we learned building the analytics views"},
	{title: "Notes from our first scheduling sprint", topic: "queueing posts for later and the sweeper behind it"},
	{title: "Why reactions beat simple likes", topic: "six reaction kinds and what they tell authors"},
	{title: "Launch announcement for next week", topic: "the upcoming launch", schedule: 7 * 24 * time.Hour},
	{title: "Unfinished thoughts on moderation", topic: "moderation tooling", draft: true},
}

type seedSummary struct {
	Users     int
	Posts     int
	Reactions int
}

// 测试数据生成器
func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := db.Init(cfg.DatabasePath); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}

	summary, err := seed(context.Background(), db.DB, time.Now().UTC())
	if err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("生成测试数据失败")
	}

	logging.Info().
		Int("users", summary.Users).
		Int("posts", summary.Posts).
		Int("reactions", summary.Reactions).
		Str("password", seedPassword).
		Msg("测试数据生成完成")
}

// seed 通过服务层写入演示数据，已存在的用户会被跳过。
func seed(ctx context.Context, gdb *gorm.DB, now time.Time) (seedSummary, error) {
	var summary seedSummary

	var count int64
	if err := gdb.WithContext(ctx).Model(&db.User{}).Count(&count).Error; err != nil {
		return summary, err
	}
	if count > 0 {
		logging.Info().Int64("users", count).Msg("用户已存在，跳过生成")
		return summary, nil
	}

	auth := service.NewAuthService(gdb, "seed", time.Hour)
	posts := service.NewPostService(gdb).WithClock(func() time.Time { return now })
	reactions := service.NewReactionService(gdb)

	identities := make([]service.Identity, 0, len(seedUsers))
	for _, input := range seedUsers {
		input.Password = seedPassword
		user, err := auth.Register(ctx, input)
		if err != nil {
			return summary, fmt.Errorf("register %s: %w", input.Username, err)
		}
		identities = append(identities, service.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
		summary.Users++
	}

	author := identities[0]
	for i, p := range seedPosts {
		input := service.PostInput{
			Title: p.title,
			Body:  seedBody(p.topic),
			Draft: p.draft,
		}
		if p.schedule > 0 {
			at := now.Add(p.schedule)
			input.ScheduledAt = &at
		}
		post, err := posts.Create(ctx, author, input)
		if err != nil {
			return summary, fmt.Errorf("create post %q: %w", p.title, err)
		}
		summary.Posts++

		if post.Status != db.PostStatusPublished {
			continue
		}
		for j, reader := range identities[1:] {
			kind := db.ReactionKinds[(i+j)%len(db.ReactionKinds)]
			if _, err := reactions.Add(ctx, post.ID, reader.UserID, kind); err != nil {
				return summary, fmt.Errorf("react to post %d: %w", post.ID, err)
			}
			summary.Reactions++
		}
	}

	return summary, nil
}

func seedBody(topic string) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(topic)
	b.WriteString("\n\n")
	b.WriteString("This is generated demo content about ")
	b.WriteString(topic)
	b.WriteString(". It exists so the feed, the reaction ledger and the engagement views have something to show.\n\n")
	b.WriteString("- first point\n- second point\n")
	return b.String()
}
