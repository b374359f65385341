package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/habitloop/internal/db"
	"gorm.io/gorm"
)

// LedgerService 提供账本流水的只读视图：动态与近七日统计
type LedgerService struct {
	db *gorm.DB
}

// FeedItem 是动态流里的一条记录，带人类可读的描述
type FeedItem struct {
	ID        uint
	CreatedAt time.Time
	Delta     int
	Cause     string
	TaskID    *uint
	Label     string
}

// DailyTotal 汇总某一天的打卡次数与得分
type DailyTotal struct {
	Day    string
	Count  int
	Points int
}

// NewLedgerService 构造 LedgerService
func NewLedgerService(gdb *gorm.DB) *LedgerService {
	return &LedgerService{db: gdb}
}

// Feed 返回用户最近的账本事件，按时间倒序
func (s *LedgerService) Feed(userID uint, limit int) ([]FeedItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	type feedRow struct {
		ID        uint
		CreatedAt time.Time
		Delta     int
		Cause     string
		TaskID    *uint
		TaskTitle string
	}

	var rows []feedRow
	if err := s.db.Model(&db.LedgerEvent{}).
		Select("ledger_events.id, ledger_events.created_at, ledger_events.delta, ledger_events.cause, ledger_events.task_id, tasks.title AS task_title").
		Joins("LEFT JOIN tasks ON tasks.id = ledger_events.task_id").
		Where("ledger_events.user_id = ?", userID).
		Order("ledger_events.created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list ledger feed: %w", err)
	}

	items := make([]FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, FeedItem{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			Delta:     row.Delta,
			Cause:     row.Cause,
			TaskID:    row.TaskID,
			Label:     feedLabel(row.Cause, row.TaskTitle),
		})
	}
	return items, nil
}

// Last7 返回最近七天（含今天）的每日打卡次数与得分
func (s *LedgerService) Last7(userID uint) ([]DailyTotal, error) {
	start := time.Now().UTC().AddDate(0, 0, -6)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	var completions []db.TaskCompletion
	if err := s.db.Where("user_id = ? AND completed_at >= ?", userID, startDay).
		Order("completed_at ASC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("list recent completions: %w", err)
	}

	totals := make([]DailyTotal, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := startDay.AddDate(0, 0, i).Format("2006-01-02")
		totals[i] = DailyTotal{Day: day}
		index[day] = i
	}

	for _, c := range completions {
		day := c.CompletedAt.UTC().Format("2006-01-02")
		if i, ok := index[day]; ok {
			totals[i].Count++
			totals[i].Points += c.PointsAwarded
		}
	}

	return totals, nil
}

// LedgerSum 返回用户账本全部 delta 之和，供核对聚合总分
func (s *LedgerService) LedgerSum(userID uint) (int, error) {
	var sum sql.NullInt64
	if err := s.db.Model(&db.LedgerEvent{}).
		Select("SUM(delta)").
		Where("user_id = ?", userID).
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("sum ledger deltas: %w", err)
	}
	if !sum.Valid {
		return 0, nil
	}
	return int(sum.Int64), nil
}

func feedLabel(cause, taskTitle string) string {
	if taskTitle == "" {
		taskTitle = "a task"
	}
	switch cause {
	case db.CauseTaskCompletion:
		return fmt.Sprintf("Completed “%s”", taskTitle)
	case db.CauseTaskMissed:
		return fmt.Sprintf("Missed “%s”", taskTitle)
	default:
		return cause
	}
}
