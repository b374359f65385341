package db

import (
	"time"

	"gorm.io/gorm"
)

// Task 定义了周期任务模型
// Frequency 取 daily/weekly/none；LastPenalizedOn 是结算水位线，
// 只由漏打卡结算流程推进且单调不减
type Task struct {
	gorm.Model
	UserID          uint `gorm:"index"`
	User            User `gorm:"constraint:OnDelete:CASCADE"`
	Title           string
	Frequency       string
	Active          bool    `gorm:"not null;default:true"`
	LastPenalizedOn *string `gorm:"size:10"`
}

// TaskCompletion 记录一次打卡
// Task + CompletedOn 采用唯一索引保证同一周期至多打卡一次，
// 第二次写入同桶必须以冲突失败而不是静默去重
type TaskCompletion struct {
	gorm.Model
	TaskID        uint   `gorm:"index;index:idx_task_completion_unique,unique"`
	Task          Task   `gorm:"constraint:OnDelete:CASCADE"`
	UserID        uint   `gorm:"index"`
	CompletedOn   string `gorm:"size:10;index:idx_task_completion_unique,unique"`
	CompletedAt   time.Time
	PointsAwarded int
	StreakAfter   int
}

// TableName 重写确保唯一索引作用到 task_id + completed_on
func (TaskCompletion) TableName() string {
	return "task_completions"
}

// 账本事件的成因
const (
	CauseTaskCompletion = "task_completion"
	CauseTaskMissed     = "task_missed"
)

// LedgerEvent 是只追加的计分流水，永不更新或删除
// Task + Bucket + Cause 采用唯一索引：同一任务同一桶的同类事件
// 在并发下至多落账一次，结算竞态输家以冲突收场而不是重复扣分
type LedgerEvent struct {
	gorm.Model
	UserID uint `gorm:"index"`
	Delta  int
	Cause  string `gorm:"index:idx_ledger_task_bucket_cause,unique"`
	TaskID *uint  `gorm:"index:idx_ledger_task_bucket_cause,unique"`
	Bucket string `gorm:"size:10;index:idx_ledger_task_bucket_cause,unique"`
	Meta   string
}
