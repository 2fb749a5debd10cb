package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testPostTitle = "Launching our quarterly analytics"
	testPassword  = "correct-horse-battery"
)

var testPostBody = strings.Repeat("We measured every reaction and impression this quarter. ", 3)

type testEnv struct {
	gdb    *gorm.DB
	api    *API
	router *gin.Engine
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:linkpulse-handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// newTestEnv wires the handlers onto a bare engine. The production route table lives
// in the router package, which imports this one.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := setupHandlerTestDB(t)
	auth := service.NewAuthService(gdb, "handler-test-secret", time.Hour)
	api := NewAPI(gdb, auth, service.NewPostService(gdb))

	r := gin.New()
	r.Use(RequestLogger())
	r.Use(sessions.Sessions("linkpulse_session", cookie.NewStore([]byte("session-secret"))))

	authRequired := api.AuthRequired()
	r.POST("/auth/register", api.Register)
	r.POST("/auth/login", api.Login)
	r.POST("/auth/logout", api.Logout)
	r.GET("/auth/users/me", authRequired, api.Me)
	r.GET("/users", api.ListUsers)
	r.GET("/users/:id", api.GetUser)
	r.PUT("/users", authRequired, api.UpdateMe)
	r.DELETE("/users", authRequired, api.DeleteMe)
	r.GET("/posts", api.ListPosts)
	r.GET("/posts/my-posts", authRequired, api.ListMyPosts)
	r.GET("/posts/:id", api.GetPost)
	r.POST("/posts", authRequired, api.CreatePost)
	r.PUT("/posts/:id", authRequired, api.UpdatePost)
	r.DELETE("/posts/:id", authRequired, api.DeletePost)
	r.GET("/posts/:id/reactions", authRequired, api.ListReactions)
	r.POST("/posts/:id/reactions", authRequired, api.AddReaction)
	r.DELETE("/posts/:id/reactions", authRequired, api.RemoveReaction)
	r.GET("/analytics/posts/top", authRequired, api.GetTopPosts)
	r.GET("/analytics/:id/metrics", authRequired, api.GetPostMetrics)

	return &testEnv{gdb: gdb, api: api, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and returns a bearer token for it.
func (e *testEnv) signup(t *testing.T, username string) (string, uint) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username":  username,
		"firstname": "Grace",
		"lastname":  "Hopper",
		"password":  testPassword,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var user userResponse
	decodeJSON(t, rec, &user)

	rec = e.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var token tokenResponse
	decodeJSON(t, rec, &token)
	return token.AccessToken, user.ID
}

func (e *testEnv) promote(t *testing.T, userID uint) {
	t.Helper()
	if err := e.gdb.Model(&db.User{}).Where("id = ?", userID).Update("role", db.RoleAdmin).Error; err != nil {
		t.Fatalf("promote user: %v", err)
	}
}

func (e *testEnv) createPost(t *testing.T, token string, extra gin.H) postResponse {
	t.Helper()
	body := gin.H{"title": testPostTitle, "body": testPostBody}
	for k, v := range extra {
		body[k] = v
	}
	rec := e.do(t, http.MethodPost, "/posts", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var post postResponse
	decodeJSON(t, rec, &post)
	return post
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
