package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	JWTSecret         string
	TokenExpiration   time.Duration
	SweepInterval     time.Duration
	PublishTimeout    time.Duration
	ScheduleGrace     time.Duration
	PublishWebhookURL string
	LogLevel          string
	LogFormat         string
	SuperRootUserName string
	SuperRootPassword string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 当前目录存在 .env 时会先载入，已存在的环境变量不会被覆盖。
func Load() AppConfig {
	_ = godotenv.Load()

	port := envOr("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	tokenMinutes := 60
	if raw := strings.TrimSpace(os.Getenv("TOKEN_EXPIRATION_MINUTES")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			tokenMinutes = parsed
		}
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOr("DATABASE_PATH", "linkpulse.db"),
		SessionSecret:     envOr("SESSION_SECRET", "linkpulse-dev-secret"),
		GinMode:           envOr("GIN_MODE", "release"),
		JWTSecret:         envOr("JWT_SECRET", "linkpulse-dev-jwt-secret"),
		TokenExpiration:   time.Duration(tokenMinutes) * time.Minute,
		SweepInterval:     durationOr("SWEEP_INTERVAL", time.Minute),
		PublishTimeout:    durationOr("PUBLISH_TIMEOUT", 10*time.Second),
		ScheduleGrace:     durationOr("SCHEDULE_GRACE", 5*time.Second),
		PublishWebhookURL: strings.TrimSpace(os.Getenv("PUBLISH_WEBHOOK_URL")),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// durationOr 接受 Go 时长格式（如 "30s"、"1m"），非法或非正值时回退到默认值。
func durationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
