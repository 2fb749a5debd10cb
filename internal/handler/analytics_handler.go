package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/service"
)

type reactionTypesResponse struct {
	Likes      int64 `json:"likes"`
	Celebrate  int64 `json:"celebrate"`
	Support    int64 `json:"support"`
	Love       int64 `json:"love"`
	Insightful int64 `json:"insightful"`
	Funny      int64 `json:"funny"`
}

type analyticsResponse struct {
	PostID         uint                  `json:"post_id"`
	TotalReactions int64                 `json:"total_reactions"`
	Impressions    uint64                `json:"impressions"`
	Engagements    int64                 `json:"engagements"`
	ReactionTypes  reactionTypesResponse `json:"reaction_types"`
}

type topPostResponse struct {
	ID             uint   `json:"id"`
	Title          string `json:"title"`
	Impressions    uint64 `json:"impressions"`
	TotalReactions int64  `json:"total_reactions"`
}

// GetPostMetrics 返回文章的互动统计，仅作者或管理员可查看。读取统计不计入浏览量。
func (a *API) GetPostMetrics(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Peek(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !currentIdentity(c).CanModify(post.UserID) {
		respondServiceError(c, service.ErrPermissionDenied)
		return
	}

	snapshot, err := a.engagement.Compute(c.Request.Context(), *post)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": analyticsResponse{
		PostID:         snapshot.PostID,
		TotalReactions: snapshot.TotalReactions,
		Impressions:    snapshot.Impressions,
		Engagements:    snapshot.Engagement,
		ReactionTypes: reactionTypesResponse{
			Likes:      snapshot.ReactionTypes.Likes,
			Celebrate:  snapshot.ReactionTypes.Celebrate,
			Support:    snapshot.ReactionTypes.Support,
			Love:       snapshot.ReactionTypes.Love,
			Insightful: snapshot.ReactionTypes.Insightful,
			Funny:      snapshot.ReactionTypes.Funny,
		},
	}})
}

// GetTopPosts 按浏览量返回排名靠前的文章，limit 默认 3
func (a *API) GetTopPosts(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的 limit 参数")
			return
		}
		limit = parsed
	}

	top, err := a.engagement.TopPosts(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]topPostResponse, 0, len(top))
	for _, row := range top {
		out = append(out, topPostResponse{
			ID:             row.PostID,
			Title:          row.Title,
			Impressions:    row.Impressions,
			TotalReactions: row.TotalReactions,
		})
	}
	c.JSON(http.StatusOK, gin.H{"top_posts": out})
}
