package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/db"
)

type reactionResponse struct {
	ID        uint            `json:"id"`
	PostID    uint            `json:"post_id"`
	UserID    uint            `json:"user_id"`
	Type      db.ReactionKind `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

func newReactionResponse(r db.Reaction) reactionResponse {
	return reactionResponse{
		ID:        r.ID,
		PostID:    r.PostID,
		UserID:    r.UserID,
		Type:      r.Kind,
		CreatedAt: r.CreatedAt,
	}
}

type reactionRequest struct {
	Type string `json:"type" form:"type" binding:"required"`
}

// ListReactions 获取文章的全部反应
func (a *API) ListReactions(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	reactions, err := a.reactions.ListForPost(c.Request.Context(), postID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]reactionResponse, 0, len(reactions))
	for _, r := range reactions {
		out = append(out, newReactionResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// AddReaction 记录当前用户对文章的反应，每人每篇仅一次
func (a *API) AddReaction(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var req reactionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "缺少反应类型")
		return
	}

	kind := db.ReactionKind(strings.ToLower(strings.TrimSpace(req.Type)))
	reaction, err := a.reactions.Add(c.Request.Context(), postID, currentIdentity(c).UserID, kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReactionResponse(*reaction))
}

// RemoveReaction 撤销当前用户的反应
func (a *API) RemoveReaction(c *gin.Context) {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.reactions.Remove(c.Request.Context(), postID, currentIdentity(c).UserID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
