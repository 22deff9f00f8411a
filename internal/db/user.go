package db

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 是管理端登录账号。HabitLoop 是单人应用，
// 正常情况下只存在启动时引导出来的那一个账号。
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"` // bcrypt 哈希
}

// EnsureUser 按环境变量提供的凭据在启动时引导管理员账号。
// 凭据缺省时跳过；账号已存在时不改写原密码。
func EnsureUser(username, password string) error {
	name := strings.TrimSpace(username)
	secret := strings.TrimSpace(password)
	if name == "" || secret == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var count int64
	if err := DB.Model(&User{}).Where("username = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup user %s: %w", name, err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := DB.Create(&User{Username: name, Password: string(hashed)}).Error; err != nil {
		return fmt.Errorf("create user %s: %w", name, err)
	}
	return nil
}
