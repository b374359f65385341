package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SchedulerService 包装 cron 定时任务。
// 结算本身是幂等的，客户端触发与这里的服务端扫清可以安全并存。
type SchedulerService struct {
	cron *cron.Cron
}

// NewSchedulerService 构造 SchedulerService
func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleDailySettlement 在每天 HH:MM 对所有有活跃任务的用户跑一次漏打卡结算
func (s *SchedulerService) ScheduleDailySettlement(timeStr string, gdb *gorm.DB, scores *ScoreService) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, func() {
		if err := SettleAllUsers(gdb, scores); err != nil {
			log.Printf("settlement sweep: %v", err)
		}
	})
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SettleAllUsers 对所有拥有活跃任务的用户执行结算。
// 单个用户失败只记录并继续，留待下次扫清或该用户自己的会话触发重试。
func SettleAllUsers(gdb *gorm.DB, scores *ScoreService) error {
	var userIDs []uint
	if err := gdb.Model(&db.Task{}).
		Where("active = ?", true).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return fmt.Errorf("list users with active tasks: %w", err)
	}

	for _, userID := range userIDs {
		if _, err := scores.SettleMissed(userID, ""); err != nil {
			log.Printf("settle user %d: %v", userID, err)
		}
	}
	return nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron 字段顺序: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
