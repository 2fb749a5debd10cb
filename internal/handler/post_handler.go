package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/service"
)

type postResponse struct {
	ID          uint          `json:"id"`
	UserID      uint          `json:"user_id"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	BodyHTML    string        `json:"body_html"`
	Status      db.PostStatus `json:"status"`
	Impressions uint64        `json:"impressions"`
	ScheduledAt *time.Time    `json:"scheduled_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func newPostResponse(post db.Post) postResponse {
	return postResponse{
		ID:          post.ID,
		UserID:      post.UserID,
		Title:       post.Title,
		Body:        post.Body,
		BodyHTML:    renderBody(post.Body),
		Status:      post.Status,
		Impressions: post.Impressions,
		ScheduledAt: post.ScheduledAt,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
}

func newPostResponses(posts []db.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, newPostResponse(post))
	}
	return out
}

type createPostRequest struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Draft       bool       `json:"draft"`
}

type updatePostRequest struct {
	Title       *string        `json:"title"`
	Body        *string        `json:"body"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	Status      *db.PostStatus `json:"status"`
}

// ListPosts 获取文章列表，支持 user_id、status、start_date、end_date 过滤
func (a *API) ListPosts(c *gin.Context) {
	var filter service.PostFilter

	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的用户ID")
			return
		}
		id := uint(userID)
		filter.UserID = &id
	}

	filter.Status = db.PostStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))

	start, err := parseTimeQuery(c, "start_date", false)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, err := parseTimeQuery(c, "end_date", true)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}
	filter.StartDate = start
	filter.EndDate = end

	posts, err := a.posts.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponses(posts))
}

// ListMyPosts 获取当前用户的全部文章
func (a *API) ListMyPosts(c *gin.Context) {
	posts, err := a.posts.ListByOwner(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponses(posts))
}

// GetPost 获取单篇文章并记录一次浏览
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponse(*post))
}

// CreatePost 创建新文章
func (a *API) CreatePost(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req, "无效的文章数据") {
		return
	}

	post, err := a.posts.Create(c.Request.Context(), currentIdentity(c), service.PostInput{
		Title:       req.Title,
		Body:        req.Body,
		ScheduledAt: req.ScheduledAt,
		Draft:       req.Draft,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPostResponse(*post))
}

// UpdatePost 部分更新文章，仅作者或管理员可操作
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var req updatePostRequest
	if !bindJSON(c, &req, "无效的文章数据") {
		return
	}

	post, err := a.posts.Update(c.Request.Context(), id, currentIdentity(c), service.PostPatch{
		Title:       req.Title,
		Body:        req.Body,
		ScheduledAt: req.ScheduledAt,
		Status:      req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponse(*post))
}

// DeletePost 删除文章及其反应
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.posts.Delete(c.Request.Context(), id, currentIdentity(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
