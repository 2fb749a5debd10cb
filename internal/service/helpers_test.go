package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linkpulse/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	validTitle = "Quarterly roadmap update for the team"
)

var validBody = strings.Repeat("Shipping notes and lessons learned. ", 4)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:linkpulse-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string, role db.Role) Identity {
	t.Helper()
	user := db.User{
		Username:  username,
		Firstname: "Test",
		Lastname:  "User",
		Password:  "not-a-real-hash",
		Role:      role,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return identityFromUser(user)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakePublisher records publish calls and fails for the ids listed in failFor.
type fakePublisher struct {
	mu      sync.Mutex
	calls   []uint
	failFor map[uint]error
	block   chan struct{}
	entered chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, post db.Post) error {
	if p.entered != nil {
		select {
		case p.entered <- struct{}{}:
		default:
		}
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[post.ID]; ok {
		return err
	}
	p.calls = append(p.calls, post.ID)
	return nil
}

func (p *fakePublisher) Calls() []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint(nil), p.calls...)
}

func (p *fakePublisher) Succeed(id uint) {
	p.mu.Lock()
	delete(p.failFor, id)
	p.mu.Unlock()
}

func ptr[T any](v T) *T {
	return &v
}

func loadPost(t *testing.T, gdb *gorm.DB, id uint) db.Post {
	t.Helper()
	var post db.Post
	if err := gdb.First(&post, id).Error; err != nil {
		t.Fatalf("load post %d: %v", id, err)
	}
	return post
}
