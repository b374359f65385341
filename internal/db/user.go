package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// Username 为登录名，onboarding 后要求小写字母/数字/下划线
// Timezone 存 IANA 时区名，打卡与结算默认使用它
// Score 是聚合总分（信誉分或经验值，取决于计分策略），
// 不变量：最终应与该用户全部 LedgerEvent.Delta 之和一致
type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null"`
	Password    string `gorm:"not null"`
	DisplayName string
	Timezone    string
	Score       int `gorm:"not null;default:0"`
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
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

		return DB.Create(&User{Username: trimmedUser, Password: string(hashed)}).Error
	}

	return nil
}
