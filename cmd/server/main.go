package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/config"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/handler"
	"github.com/linkpulse/internal/logging"
	"github.com/linkpulse/internal/router"
	"github.com/linkpulse/internal/service"
	"github.com/linkpulse/internal/supervisor"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	if cfg.SuperRootUserName != "" && cfg.SuperRootPassword != "" {
		if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
			logger := logging.Logger()
			logger.Fatal().Err(err).Msg("failed to provision admin user")
		}
	}

	var publisher service.Publisher = service.LogPublisher{}
	if cfg.PublishWebhookURL != "" {
		publisher = service.NewWebhookPublisher(cfg.PublishWebhookURL)
		logging.Info().Str("url", cfg.PublishWebhookURL).Msg("publishing scheduled posts to webhook")
	}
	publisher = service.NewBreakerPublisher(publisher, service.BreakerConfig{Name: "publish-webhook"})

	sweeper := service.NewPublicationSweeper(db.DB, publisher).
		WithInterval(cfg.SweepInterval).
		WithPublishTimeout(cfg.PublishTimeout)

	posts := service.NewPostService(db.DB).
		WithScheduleGrace(cfg.ScheduleGrace).
		WithPromoter(sweeper)
	auth := service.NewAuthService(db.DB, cfg.JWTSecret, cfg.TokenExpiration)

	api := handler.NewAPI(db.DB, auth, posts)
	r := router.SetupRouter(api, cfg.SessionSecret)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddWorker(sweeper)
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", cfg.ListenAddr).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("linkpulse server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped with error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}
	logging.Info().Msg("linkpulse server stopped")
}
