package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/linkpulse/internal/db"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, gdb *gorm.DB, owner Identity, impressions uint64) db.Post {
	t.Helper()
	post := db.Post{
		UserID:      owner.UserID,
		Title:       validTitle,
		Body:        validBody,
		Status:      db.PostStatusPublished,
		Impressions: impressions,
	}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func seedReactions(t *testing.T, gdb *gorm.DB, postID uint, kinds ...db.ReactionKind) {
	t.Helper()
	for i, kind := range kinds {
		user := createTestUser(t, gdb, fmt.Sprintf("reactor-%d-%d", postID, i), db.RoleUser)
		if err := gdb.Create(&db.Reaction{PostID: postID, UserID: user.UserID, Kind: kind}).Error; err != nil {
			t.Fatalf("seed reaction: %v", err)
		}
	}
}

func TestEngagementService_Compute(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	owner := createTestUser(t, gdb, "metrics-owner", db.RoleUser)

	post := seedPost(t, gdb, owner, 10)
	seedReactions(t, gdb, post.ID,
		db.ReactionLike, db.ReactionLike, db.ReactionLike,
		db.ReactionSupport, db.ReactionSupport,
	)

	snapshot, err := svc.Compute(context.Background(), post)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	want := ReactionBreakdown{Likes: 3, Support: 2}
	if snapshot.ReactionTypes != want {
		t.Fatalf("expected breakdown %+v, got %+v", want, snapshot.ReactionTypes)
	}
	if snapshot.TotalReactions != 5 || snapshot.Engagement != 5 {
		t.Fatalf("expected 5 reactions and engagement 5, got %d and %d", snapshot.TotalReactions, snapshot.Engagement)
	}
	if snapshot.Impressions != 10 {
		t.Fatalf("expected impressions 10, got %d", snapshot.Impressions)
	}
	if snapshot.TotalReactions != snapshot.ReactionTypes.Sum() {
		t.Fatalf("total %d does not match breakdown sum %d", snapshot.TotalReactions, snapshot.ReactionTypes.Sum())
	}
}

func TestEngagementService_ComputeWithoutReactions(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	owner := createTestUser(t, gdb, "quiet-owner", db.RoleUser)
	post := seedPost(t, gdb, owner, 0)

	snapshot, err := svc.Compute(context.Background(), post)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if snapshot.TotalReactions != 0 || snapshot.Engagement != 0 || snapshot.ReactionTypes != (ReactionBreakdown{}) {
		t.Fatalf("expected an all-zero snapshot, got %+v", snapshot)
	}
}

func TestEngagementService_TopPosts(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	owner := createTestUser(t, gdb, "ranking-owner", db.RoleUser)
	ctx := context.Background()

	fifty := seedPost(t, gdb, owner, 50)
	seedPost(t, gdb, owner, 30)
	eighty := seedPost(t, gdb, owner, 80)
	seedReactions(t, gdb, fifty.ID, db.ReactionLike, db.ReactionFunny)

	top, err := svc.TopPosts(ctx, 2)
	if err != nil {
		t.Fatalf("top posts: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(top))
	}
	if top[0].PostID != eighty.ID || top[1].PostID != fifty.ID {
		t.Fatalf("expected [%d %d], got [%d %d]", eighty.ID, fifty.ID, top[0].PostID, top[1].PostID)
	}
	if top[1].Impressions != 50 || top[1].TotalReactions != 2 {
		t.Fatalf("unexpected row %+v", top[1])
	}
	if top[0].TotalReactions != 0 {
		t.Fatalf("expected post without reactions to report 0, got %d", top[0].TotalReactions)
	}
}

func TestEngagementService_TopPostsTiesAndDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	owner := createTestUser(t, gdb, "ties-owner1", db.RoleUser)
	ctx := context.Background()

	var seeded []db.Post
	for i := 0; i < 5; i++ {
		seeded = append(seeded, seedPost(t, gdb, owner, 20))
	}

	top, err := svc.TopPosts(ctx, 0)
	if err != nil {
		t.Fatalf("top posts: %v", err)
	}
	if len(top) != defaultTopPostsLimit {
		t.Fatalf("expected default limit %d, got %d", defaultTopPostsLimit, len(top))
	}
	for i, row := range top {
		if row.PostID != seeded[i].ID {
			t.Fatalf("expected ties broken by ascending id, got %d at %d", row.PostID, i)
		}
	}

	all, err := svc.TopPosts(ctx, 1000)
	if err != nil {
		t.Fatalf("top posts with large limit: %v", err)
	}
	if len(all) != len(seeded) {
		t.Fatalf("expected %d posts, got %d", len(seeded), len(all))
	}
}

func TestReactionBreakdown_SumMatchesKinds(t *testing.T) {
	var b ReactionBreakdown
	for i, kind := range db.ReactionKinds {
		if !b.add(kind, int64(i+1)) {
			t.Fatalf("kind %q not counted", kind)
		}
	}
	if b.add(db.ReactionKind("meh"), 100) {
		t.Fatal("unknown kind should not be counted")
	}
	if b.Sum() != 21 {
		t.Fatalf("expected sum 21, got %d", b.Sum())
	}
}
