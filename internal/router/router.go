package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookieName = "linkpulse_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger())

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := api.AuthRequired()

	auth := r.Group("/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
		auth.GET("/users/me", authRequired, api.Me)
	}

	users := r.Group("/users")
	{
		users.GET("", api.ListUsers)
		users.GET("/:id", api.GetUser)
		users.PUT("", authRequired, api.UpdateMe)
		users.DELETE("", authRequired, api.DeleteMe)
	}

	posts := r.Group("/posts")
	{
		posts.GET("", api.ListPosts)
		posts.GET("/my-posts", authRequired, api.ListMyPosts)
		posts.GET("/:id", api.GetPost)
		posts.POST("", authRequired, api.CreatePost)
		posts.PUT("/:id", authRequired, api.UpdatePost)
		posts.DELETE("/:id", authRequired, api.DeletePost)

		posts.GET("/:id/reactions", authRequired, api.ListReactions)
		posts.POST("/:id/reactions", authRequired, api.AddReaction)
		posts.DELETE("/:id/reactions", authRequired, api.RemoveReaction)
	}

	analytics := r.Group("/analytics")
	analytics.Use(authRequired)
	{
		analytics.GET("/posts/top", api.GetTopPosts)
		analytics.GET("/:id/metrics", api.GetPostMetrics)
	}

	return r
}
