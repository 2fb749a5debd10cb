package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/service"
)

type userPatchRequest struct {
	Username  *string `json:"username"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Password  *string `json:"password"`
}

// ListUsers 获取用户列表
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.users.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, newUserResponse(user))
	}
	c.JSON(http.StatusOK, out)
}

// GetUser 获取单个用户
func (a *API) GetUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	user, err := a.users.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// UpdateMe 更新当前用户资料，未提供的字段保持不变
func (a *API) UpdateMe(c *gin.Context) {
	var req userPatchRequest
	if !bindJSON(c, &req, "无效的用户数据") {
		return
	}

	user, err := a.users.Update(c.Request.Context(), currentIdentity(c), service.UserPatch{
		Username:  req.Username,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Password:  req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// DeleteMe 删除当前用户及其文章和反应
func (a *API) DeleteMe(c *gin.Context) {
	if err := a.users.Delete(c.Request.Context(), currentIdentity(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Status(http.StatusNoContent)
}
