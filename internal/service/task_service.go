package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/scoring"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// ErrInvalidTaskTitle 在标题为空或超长时返回
var ErrInvalidTaskTitle = errors.New("task title must be 2-80 characters")

// TaskService 负责任务的增删改查，归属校验由本层完成
type TaskService struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

// TaskInput 定义创建/更新任务时可配置字段
type TaskInput struct {
	Title     string
	Frequency string
	Active    *bool
}

// TodayItem 是今日视图里的单个任务：当前周期是否已打卡，
// 以及现在打卡会得到的连续数
type TodayItem struct {
	Task               db.Task
	CompletedForPeriod bool
	StreakPotential    int
}

// NewTaskService 构造 TaskService
func NewTaskService(gdb *gorm.DB) *TaskService {
	return &TaskService{db: gdb, sanitizer: bluemonday.StrictPolicy()}
}

// Create 新建任务
func (s *TaskService) Create(userID uint, input TaskInput) (*db.Task, error) {
	title, err := s.cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}

	freq, err := scoring.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, err
	}

	task := db.Task{
		UserID:    userID,
		Title:     title,
		Frequency: string(freq),
		Active:    true,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Get 按 ID 获取任务并校验归属
func (s *TaskService) Get(taskID, userID uint) (*db.Task, error) {
	var task db.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return &task, nil
}

// List 返回用户的全部活跃任务，按创建时间正序
func (s *TaskService) List(userID uint) ([]db.Task, error) {
	var tasks []db.Task
	if err := s.db.Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update 局部更新任务：仅修改传入的字段
func (s *TaskService) Update(taskID, userID uint, input TaskInput) (*db.Task, error) {
	task, err := s.Get(taskID, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Title) != "" {
		title, err := s.cleanTitle(input.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}
	if strings.TrimSpace(input.Frequency) != "" {
		freq, err := scoring.ParseFrequency(input.Frequency)
		if err != nil {
			return nil, err
		}
		task.Frequency = string(freq)
	}
	if input.Active != nil {
		task.Active = *input.Active
	}

	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete 删除任务及级联的打卡记录
func (s *TaskService) Delete(taskID, userID uint) error {
	if _, err := s.Get(taskID, userID); err != nil {
		return err
	}
	if err := s.db.Delete(&db.Task{}, taskID).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Today 返回今日视图：每个活跃任务当前周期的打卡状态与潜在连续数
func (s *TaskService) Today(userID uint, loc *time.Location) ([]TodayItem, error) {
	tasks, err := s.List(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	todayKey := scoring.DayBucket(now, loc)
	weekKey := scoring.WeekBucket(now, loc)

	items := make([]TodayItem, 0, len(tasks))
	for _, task := range tasks {
		freq, err := scoring.ParseFrequency(task.Frequency)
		if err != nil {
			return nil, err
		}

		currentKey := todayKey
		if freq == scoring.FrequencyWeekly {
			currentKey = weekKey
		}

		var count int64
		if err := s.db.Model(&db.TaskCompletion{}).
			Where("task_id = ? AND completed_on = ?", task.ID, string(currentKey)).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check period completion: %w", err)
		}

		var lastKey *scoring.DateKey
		var last db.TaskCompletion
		err = s.db.Where("task_id = ?", task.ID).Order("completed_on DESC").First(&last).Error
		if err == nil {
			key := scoring.DateKey(last.CompletedOn)
			lastKey = &key
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load last completion: %w", err)
		}

		potential, err := scoring.Streak(freq, lastKey, currentKey)
		if err != nil {
			return nil, err
		}

		items = append(items, TodayItem{
			Task:               task,
			CompletedForPeriod: freq != scoring.FrequencyNone && count > 0,
			StreakPotential:    potential,
		})
	}

	return items, nil
}

func (s *TaskService) cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(raw))
	if len(title) < 2 || len(title) > 80 {
		return "", ErrInvalidTaskTitle
	}
	return title, nil
}
