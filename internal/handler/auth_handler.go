package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/service"
)

type userResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Role      db.Role   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user db.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// loginRequest accepts JSON or an OAuth2 password form.
type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Register 创建普通用户
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "无效的注册数据") {
		return
	}

	user, err := a.auth.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Password:  req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(*user))
}

// Login 校验凭证，返回 bearer token，同时写入会话 cookie
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	user, err := a.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, expiresAt, err := a.auth.IssueToken(*user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		logging.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to save login session")
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// Logout 清除会话。Bearer token 在过期前仍然有效。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logging.Warn().Err(err).Msg("failed to clear session")
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user.
func (a *API) Me(c *gin.Context) {
	user, err := a.users.Get(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}
