package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/scoring"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 在用户名已被占用时返回
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUsername 在用户名不符合规则时返回
	ErrInvalidUsername = errors.New("username must be 3-20 lowercase letters, numbers or underscores")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ProfileService 负责 onboarding 与个人档案维护
type ProfileService struct {
	db *gorm.DB
}

// ProfileInput 定义完善档案时的可配置字段
type ProfileInput struct {
	Username    string
	DisplayName string
	Timezone    string
}

// NewProfileService 构造 ProfileService
func NewProfileService(gdb *gorm.DB) *ProfileService {
	return &ProfileService{db: gdb}
}

// Get 返回用户档案
func (s *ProfileService) Get(userID uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Complete 完善档案：用户名查重、时区校验后落库
func (s *ProfileService) Complete(userID uint, input ProfileInput) (*db.User, error) {
	username := strings.TrimSpace(strings.ToLower(input.Username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	timezone := strings.TrimSpace(input.Timezone)
	if _, err := scoring.ResolveLocation(timezone); err != nil {
		return nil, err
	}

	var taken db.User
	err := s.db.Where("username = ? AND id <> ?", username, userID).First(&taken).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	user.Username = username
	user.DisplayName = strings.TrimSpace(input.DisplayName)
	user.Timezone = timezone

	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return user, nil
}

// IsUsernameAvailable 查询用户名是否可用
func (s *ProfileService) IsUsernameAvailable(username string, excludeUserID uint) (bool, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !usernamePattern.MatchString(username) {
		return false, ErrInvalidUsername
	}

	var count int64
	if err := s.db.Model(&db.User{}).
		Where("username = ? AND id <> ?", username, excludeUserID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count == 0, nil
}
