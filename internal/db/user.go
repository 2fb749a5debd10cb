package db

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role 表示账号的权限级别。
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User 定义了用户模型
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:32;uniqueIndex;not null"`
	Firstname string `gorm:"size:32;not null"`
	Lastname  string `gorm:"size:32;not null"`
	Password  string `gorm:"size:128;not null"`
	Role      Role   `gorm:"size:16;not null;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Posts     []Post     `gorm:"constraint:OnDelete:CASCADE;"`
	Reactions []Reaction `gorm:"constraint:OnDelete:CASCADE;"`
}

// TableName 指定自定义表名。
func (User) TableName() string {
	return "users"
}

// IsAdmin 判断账号是否拥有管理员权限。
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的管理员账号。
func EnsureUser(username, password string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{
			Username:  trimmedUser,
			Firstname: "Super",
			Lastname:  "Root",
			Password:  string(hashed),
			Role:      RoleAdmin,
		}).Error
	}

	if existing.Role != RoleAdmin {
		return DB.Model(&existing).Update("role", RoleAdmin).Error
	}

	return nil
}
