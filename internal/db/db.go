package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// sqlitePragmas 打开外键约束（级联删除依赖它），并让并发写入等待而不是立即失败。
const sqlitePragmas = "_foreign_keys=1&_busy_timeout=5000"

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 linkpulse.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "linkpulse.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := Open(path, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return err
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Open 打开 SQLite 连接。SQLite 同一时刻只允许一个写事务，这里把连接池限制为 1，
// 让事务在连接池上排队，而不是在库内部报 "database is locked"。
func Open(dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	gdb, err := gorm.Open(sqlite.Open(dsn+separator+sqlitePragmas), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		// 时间统一以 UTC 存储，scheduled_at 的字符串比较依赖这一点
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return gdb, nil
}

// Migrate 为核心模型创建表、唯一索引与外键。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&User{},
		&Post{},
		&Reaction{},
	)
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
