package handler

import (
	"github.com/linkpulse/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	auth       *service.AuthService
	users      *service.UserService
	posts      *service.PostService
	reactions  *service.ReactionService
	engagement *service.EngagementService
}

// NewAPI constructs a handler set with shared services. posts and auth are built by the
// caller because they carry the sweeper wiring and signing secret.
func NewAPI(db *gorm.DB, auth *service.AuthService, posts *service.PostService) *API {
	return &API{
		db:         db,
		auth:       auth,
		users:      service.NewUserService(db),
		posts:      posts,
		reactions:  service.NewReactionService(db),
		engagement: service.NewEngagementService(db),
	}
}

// DB exposes the underlying gorm instance, used by the health check.
func (a *API) DB() *gorm.DB {
	return a.db
}
