package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/linkpulse/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestSeedCreatesDemoData(t *testing.T) {
	gdb := setupSeedDB(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	summary, err := seed(context.Background(), gdb, now)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if summary.Users != len(seedUsers) || summary.Posts != len(seedPosts) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	// 3 篇已发布文章，各有 2 个读者反应
	if summary.Reactions != 6 {
		t.Fatalf("expected 6 reactions, got %d", summary.Reactions)
	}

	statuses := map[db.PostStatus]int64{}
	for _, status := range []db.PostStatus{db.PostStatusPublished, db.PostStatusScheduled, db.PostStatusDraft} {
		var n int64
		if err := gdb.Model(&db.Post{}).Where("status = ?", status).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", status, err)
		}
		statuses[status] = n
	}
	if statuses[db.PostStatusPublished] != 3 || statuses[db.PostStatusScheduled] != 1 || statuses[db.PostStatusDraft] != 1 {
		t.Fatalf("unexpected status distribution %v", statuses)
	}

	var reactions int64
	gdb.Model(&db.Reaction{}).Count(&reactions)
	if reactions != 6 {
		t.Fatalf("expected 6 stored reactions, got %d", reactions)
	}
}

func TestSeedSkipsPopulatedDatabase(t *testing.T) {
	gdb := setupSeedDB(t)
	now := time.Now().UTC()

	if _, err := seed(context.Background(), gdb, now); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	summary, err := seed(context.Background(), gdb, now)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if summary != (seedSummary{}) {
		t.Fatalf("expected second run to be a no-op, got %+v", summary)
	}

	var posts int64
	gdb.Model(&db.Post{}).Count(&posts)
	if posts != int64(len(seedPosts)) {
		t.Fatalf("expected %d posts, got %d", len(seedPosts), posts)
	}
}
