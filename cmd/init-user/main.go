package main

import (
	"flag"
	"os"

	"github.com/linkpulse/internal/config"
	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
)

// 创建或提升管理员账号。默认读取 SUPER_ROOT_USER_NAME / SUPER_ROOT_PASSWORD。
func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	username := flag.String("username", cfg.SuperRootUserName, "admin username")
	password := flag.String("password", cfg.SuperRootPassword, "admin password")
	flag.Parse()

	if *username == "" || *password == "" {
		logging.Error().Msg("用户名和密码不能为空")
		os.Exit(2)
	}

	if err := db.Init(cfg.DatabasePath); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}

	if err := db.EnsureUser(*username, *password); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Str("username", *username).Msg("创建管理员失败")
	}

	logging.Info().Str("username", *username).Msg("管理员账号已就绪")
}
