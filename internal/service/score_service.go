package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/scoring"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTaskNotFound 在指定任务不存在时返回
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden 在任务不属于当前用户时返回
	ErrForbidden = errors.New("task belongs to another user")
	// ErrTaskInactive 在任务已停用时返回
	ErrTaskInactive = errors.New("task is inactive")
	// ErrDuplicateCompletion 在同一周期重复打卡时返回
	ErrDuplicateCompletion = errors.New("task already completed for this period")
)

// ScoreService 承载打卡计分与漏打卡结算两条编排流程。
// 两条流程都只通过唯一索引和原子自增保证幂等，不做应用层加锁；
// 多步写入之间没有事务，失败后由调用方整体重试（重试是安全的）。
type ScoreService struct {
	db     *gorm.DB
	policy scoring.Policy
}

// CompletionResult 是一次打卡的返回结构
type CompletionResult struct {
	CompletionID  uint
	PointsAwarded int
	StreakAfter   int
	CompletedOn   scoring.DateKey
}

// SettleResult 汇总一次漏打卡结算
type SettleResult struct {
	DailyBucketClosed  scoring.DateKey
	WeeklyBucketClosed scoring.DateKey
	PenalizedDaily     int
	PenalizedWeekly    int
}

// NewScoreService 构造 ScoreService
func NewScoreService(gdb *gorm.DB, policy scoring.Policy) *ScoreService {
	return &ScoreService{db: gdb, policy: policy}
}

// Policy 暴露当前生效的计分策略
func (s *ScoreService) Policy() scoring.Policy {
	return s.policy
}

// Complete 处理一次打卡：校验归属，计算桶/连续数/加分，
// 写入打卡记录、账本事件并原子累加总分。
// 打卡记录写入成功即视为提交点，其后的写入失败不回滚，
// 调用方重试时会收到 ErrDuplicateCompletion，此时账本可在下次补齐。
func (s *ScoreService) Complete(taskID, userID uint, occurredAt time.Time, timezone string) (*CompletionResult, error) {
	var task db.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	if task.UserID != userID {
		return nil, ErrForbidden
	}
	if !task.Active {
		return nil, ErrTaskInactive
	}

	freq, err := scoring.ParseFrequency(task.Frequency)
	if err != nil {
		return nil, err
	}

	loc, err := s.resolveLocation(userID, timezone)
	if err != nil {
		return nil, err
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	bucket := scoring.BucketFor(freq, occurredAt, loc)

	lastBucket, err := s.lastCompletionBucket(taskID)
	if err != nil {
		return nil, err
	}

	streakAfter, err := scoring.Streak(freq, lastBucket, bucket)
	if err != nil {
		return nil, err
	}

	points := s.policy.Award(freq, streakAfter)

	completion := db.TaskCompletion{
		TaskID:        taskID,
		UserID:        userID,
		CompletedOn:   string(bucket),
		CompletedAt:   occurredAt,
		PointsAwarded: points,
		StreakAfter:   streakAfter,
	}

	// 唯一索引 (task_id, completed_on) 负责并发下的先写者胜出
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
	if res.Error != nil {
		return nil, fmt.Errorf("insert completion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateCompletion
	}

	if err := s.appendLedger(userID, points, db.CauseTaskCompletion, &taskID, bucket, string(freq)); err != nil {
		return nil, err
	}

	if err := s.applyScoreDelta(userID, points); err != nil {
		return nil, err
	}

	return &CompletionResult{
		CompletionID:  completion.ID,
		PointsAwarded: points,
		StreakAfter:   streakAfter,
		CompletedOn:   bucket,
	}, nil
}

// SettleMissed 扫描用户的活跃周期任务，对最近一个已关闭的桶内
// 没有打卡的任务各记一笔罚分，并推进水位线防止重复扣罚。
// 任意次重复调用都是安全的：水位线跳过已结算的桶，
// 罚分插入的唯一索引把竞态输家变成无操作。
func (s *ScoreService) SettleMissed(userID uint, timezone string) (*SettleResult, error) {
	loc, err := s.resolveLocation(userID, timezone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	closedDaily := scoring.DayBucket(now, loc).AddDays(-1)
	closedWeekly := scoring.WeekBucket(now, loc).AddDays(-7)

	result := &SettleResult{
		DailyBucketClosed:  closedDaily,
		WeeklyBucketClosed: closedWeekly,
	}

	penalized, err := s.settleFrequency(userID, scoring.FrequencyDaily, closedDaily, loc)
	result.PenalizedDaily = penalized
	if err != nil {
		return result, err
	}

	penalized, err = s.settleFrequency(userID, scoring.FrequencyWeekly, closedWeekly, loc)
	result.PenalizedWeekly = penalized
	if err != nil {
		return result, err
	}

	return result, nil
}

// settleFrequency 对单一频率类别逐任务结算。
// 写入失败中止本类别剩余任务，未处理的任务留待下次调用重试。
func (s *ScoreService) settleFrequency(userID uint, freq scoring.Frequency, closedBucket scoring.DateKey, loc *time.Location) (int, error) {
	var tasks []db.Task
	if err := s.db.Where("user_id = ? AND active = ? AND frequency = ?", userID, true, string(freq)).
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("list %s tasks: %w", freq, err)
	}

	penalized := 0
	for _, task := range tasks {
		// 水位线已覆盖该桶则视为已结算
		if task.LastPenalizedOn != nil && scoring.DateKey(*task.LastPenalizedOn) >= closedBucket {
			continue
		}

		completed, err := s.hasCompletionInBucket(task.ID, closedBucket)
		if err != nil {
			return penalized, err
		}

		if !completed {
			recorded, err := s.recordPenalty(userID, task.ID, freq, closedBucket, loc)
			if err != nil {
				return penalized, err
			}
			if recorded {
				penalized++
			}
		}

		// 无论是否扣罚都推进水位线
		if err := s.advanceWatermark(task.ID, closedBucket); err != nil {
			return penalized, err
		}
	}

	return penalized, nil
}

// recordPenalty 写入一笔罚分并原子扣减总分。
// 唯一索引冲突说明另一次结算已经落账，按无操作处理。
func (s *ScoreService) recordPenalty(userID, taskID uint, freq scoring.Frequency, bucket scoring.DateKey, loc *time.Location) (bool, error) {
	delta := scoring.MissPenalty(freq)

	event := db.LedgerEvent{
		UserID: userID,
		Delta:  delta,
		Cause:  db.CauseTaskMissed,
		TaskID: &taskID,
		Bucket: string(bucket),
		Meta:   fmt.Sprintf(`{"freq":%q,"tz":%q}`, freq, loc.String()),
	}

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&event)
	if res.Error != nil {
		return false, fmt.Errorf("insert penalty event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := s.applyScoreDelta(userID, delta); err != nil {
		return true, err
	}
	return true, nil
}

func (s *ScoreService) lastCompletionBucket(taskID uint) (*scoring.DateKey, error) {
	var completion db.TaskCompletion
	err := s.db.Where("task_id = ?", taskID).
		Order("completed_on DESC").
		First(&completion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load last completion: %w", err)
	}

	key := scoring.DateKey(completion.CompletedOn)
	return &key, nil
}

func (s *ScoreService) hasCompletionInBucket(taskID uint, bucket scoring.DateKey) (bool, error) {
	var count int64
	if err := s.db.Model(&db.TaskCompletion{}).
		Where("task_id = ? AND completed_on = ?", taskID, string(bucket)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check completion in bucket: %w", err)
	}
	return count > 0, nil
}

func (s *ScoreService) appendLedger(userID uint, delta int, cause string, taskID *uint, bucket scoring.DateKey, freq string) error {
	event := db.LedgerEvent{
		UserID: userID,
		Delta:  delta,
		Cause:  cause,
		TaskID: taskID,
		Bucket: string(bucket),
		Meta:   fmt.Sprintf(`{"freq":%q}`, freq),
	}
	if err := s.db.Create(&event).Error; err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// applyScoreDelta 用单条 UPDATE 原子累加总分，
// 绝不在应用侧读旧值再写新值
func (s *ScoreService) applyScoreDelta(userID uint, delta int) error {
	if err := s.db.Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("score", gorm.Expr("score + ?", delta)).Error; err != nil {
		return fmt.Errorf("apply score delta: %w", err)
	}
	return nil
}

// advanceWatermark 仅在新桶不早于当前水位线时推进，保证单调不减
func (s *ScoreService) advanceWatermark(taskID uint, bucket scoring.DateKey) error {
	if err := s.db.Model(&db.Task{}).
		Where("id = ? AND (last_penalized_on IS NULL OR last_penalized_on < ?)", taskID, string(bucket)).
		UpdateColumn("last_penalized_on", string(bucket)).Error; err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// resolveLocation 解析时区：显式参数优先，其次用户档案，最后 UTC
func (s *ScoreService) resolveLocation(userID uint, timezone string) (*time.Location, error) {
	if timezone != "" {
		return scoring.ResolveLocation(timezone)
	}

	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.UTC, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return scoring.ResolveLocation(user.Timezone)
}
