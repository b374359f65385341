package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCircleNotFound 在圈子或邀请码不存在时返回
	ErrCircleNotFound = errors.New("circle not found")
	// ErrNotCircleMember 在访问者不是圈内成员时返回
	ErrNotCircleMember = errors.New("not a member of this circle")
	// ErrInvalidCircleName 在圈名不符合规则时返回
	ErrInvalidCircleName = errors.New("circle name must be 2-50 characters")
)

// CircleService 负责好友圈与排行榜
type CircleService struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

// LeaderboardEntry 是排行榜上的一行
type LeaderboardEntry struct {
	UserID      uint
	Username    string
	DisplayName string
	Score       int
}

// CircleFeedItem 是圈内动态里的一条记录
type CircleFeedItem struct {
	Username  string
	Delta     int
	Cause     string
	Label     string
	CreatedAt time.Time
}

// NewCircleService 构造 CircleService
func NewCircleService(gdb *gorm.DB) *CircleService {
	return &CircleService{db: gdb, sanitizer: bluemonday.StrictPolicy()}
}

// Create 创建圈子，创建者自动成为 owner 成员
func (s *CircleService) Create(ownerID uint, name string) (*db.Circle, error) {
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(name))
	if len(cleaned) < 2 || len(cleaned) > 50 {
		return nil, ErrInvalidCircleName
	}

	circle := db.Circle{
		Name:     cleaned,
		OwnerID:  ownerID,
		JoinCode: newJoinCode(),
	}

	if err := s.db.Create(&circle).Error; err != nil {
		return nil, fmt.Errorf("create circle: %w", err)
	}

	membership := db.CircleMembership{
		CircleID: circle.ID,
		UserID:   ownerID,
		Role:     db.CircleRoleOwner,
	}
	if err := s.db.Create(&membership).Error; err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	return &circle, nil
}

// Join 凭邀请码加入圈子，重复加入按无操作处理
func (s *CircleService) Join(userID uint, code string) (*db.Circle, error) {
	var circle db.Circle
	if err := s.db.Where("join_code = ?", strings.TrimSpace(strings.ToLower(code))).
		First(&circle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCircleNotFound
		}
		return nil, fmt.Errorf("find circle by code: %w", err)
	}

	membership := db.CircleMembership{
		CircleID: circle.ID,
		UserID:   userID,
		Role:     db.CircleRoleMember,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error; err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}

	return &circle, nil
}

// Leave 退出圈子。物理删除成员行，保证退出后还能凭码重新加入
func (s *CircleService) Leave(userID, circleID uint) error {
	if err := s.db.Unscoped().
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		Delete(&db.CircleMembership{}).Error; err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// Mine 返回用户加入的全部圈子
func (s *CircleService) Mine(userID uint) ([]db.Circle, error) {
	var circles []db.Circle
	if err := s.db.Model(&db.Circle{}).
		Joins("JOIN circle_memberships ON circle_memberships.circle_id = circles.id").
		Where("circle_memberships.user_id = ? AND circle_memberships.deleted_at IS NULL", userID).
		Find(&circles).Error; err != nil {
		return nil, fmt.Errorf("list my circles: %w", err)
	}
	return circles, nil
}

// Leaderboard 返回圈内成员按总分倒序的前 25 名，仅成员可见
func (s *CircleService) Leaderboard(circleID, viewerID uint) ([]LeaderboardEntry, error) {
	if err := s.requireMember(circleID, viewerID); err != nil {
		return nil, err
	}

	var entries []LeaderboardEntry
	if err := s.db.Model(&db.User{}).
		Select("users.id AS user_id, users.username, users.display_name, users.score").
		Joins("JOIN circle_memberships ON circle_memberships.user_id = users.id").
		Where("circle_memberships.circle_id = ? AND circle_memberships.deleted_at IS NULL", circleID).
		Order("users.score DESC").
		Limit(25).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	return entries, nil
}

// Feed 返回圈内成员最近的账本动态，仅成员可见
func (s *CircleService) Feed(circleID, viewerID uint, limit int) ([]CircleFeedItem, error) {
	if err := s.requireMember(circleID, viewerID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 30
	}

	type feedRow struct {
		Username  string
		Delta     int
		Cause     string
		TaskTitle string
		CreatedAt time.Time
	}

	var rows []feedRow
	if err := s.db.Model(&db.LedgerEvent{}).
		Select("users.username, ledger_events.delta, ledger_events.cause, tasks.title AS task_title, ledger_events.created_at").
		Joins("JOIN users ON users.id = ledger_events.user_id").
		Joins("JOIN circle_memberships ON circle_memberships.user_id = ledger_events.user_id").
		Joins("LEFT JOIN tasks ON tasks.id = ledger_events.task_id").
		Where("circle_memberships.circle_id = ? AND circle_memberships.deleted_at IS NULL", circleID).
		Order("ledger_events.created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list circle feed: %w", err)
	}

	items := make([]CircleFeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, CircleFeedItem{
			Username:  row.Username,
			Delta:     row.Delta,
			Cause:     row.Cause,
			Label:     feedLabel(row.Cause, row.TaskTitle),
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (s *CircleService) requireMember(circleID, userID uint) error {
	var count int64
	if err := s.db.Model(&db.CircleMembership{}).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if count == 0 {
		return ErrNotCircleMember
	}
	return nil
}

// newJoinCode 取 uuid 去连字符后的前 8 位作为邀请码
func newJoinCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
