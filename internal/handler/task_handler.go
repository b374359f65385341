package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/scoring"
	"github.com/habitloop/internal/service"
)

type taskPayload struct {
	Title     string `json:"title"`
	Frequency string `json:"frequency"`
	Active    *bool  `json:"active"`
}

type taskView struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	Frequency       string  `json:"frequency"`
	Active          bool    `json:"active"`
	LastPenalizedOn *string `json:"last_penalized_on,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type todayTaskView struct {
	taskView
	CompletedForPeriod bool `json:"completed_for_period"`
	StreakPotential    int  `json:"streak_potential"`
}

type completePayload struct {
	CompletedAt string `json:"completed_at"`
	Timezone    string `json:"tz"`
}

func toTaskView(task db.Task) taskView {
	return taskView{
		ID:              task.ID,
		Title:           task.Title,
		Frequency:       task.Frequency,
		Active:          task.Active,
		LastPenalizedOn: task.LastPenalizedOn,
		CreatedAt:       task.CreatedAt.Format(time.RFC3339),
	}
}

// CreateTask 新建任务
func (a *API) CreateTask(c *gin.Context) {
	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	task, err := a.tasks.Create(currentUserID(c), service.TaskInput{
		Title:     payload.Title,
		Frequency: payload.Frequency,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": toTaskView(*task)})
}

// ListTasks 返回当前用户的活跃任务
func (a *API) ListTasks(c *gin.Context) {
	tasks, err := a.tasks.List(currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, toTaskView(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

// TodayTasks 返回今日视图：各任务当前周期的打卡状态与潜在连续数
func (a *API) TodayTasks(c *gin.Context) {
	loc, err := scoring.ResolveLocation(c.Query("tz"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	items, err := a.tasks.Today(currentUserID(c), loc)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	views := make([]todayTaskView, 0, len(items))
	for _, item := range items {
		views = append(views, todayTaskView{
			taskView:           toTaskView(item.Task),
			CompletedForPeriod: item.CompletedForPeriod,
			StreakPotential:    item.StreakPotential,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

// UpdateTask 局部更新任务
func (a *API) UpdateTask(c *gin.Context) {
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	task, err := a.tasks.Update(taskID, currentUserID(c), service.TaskInput{
		Title:     payload.Title,
		Frequency: payload.Frequency,
		Active:    payload.Active,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": toTaskView(*task)})
}

// DeleteTask 删除任务
func (a *API) DeleteTask(c *gin.Context) {
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	if err := a.tasks.Delete(taskID, currentUserID(c)); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CompleteTask 打卡：计算归档桶、连续数与加分并落账
func (a *API) CompleteTask(c *gin.Context) {
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	var payload completePayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}

	occurredAt := time.Now()
	if payload.CompletedAt != "" {
		parsed, err := time.Parse(time.RFC3339, payload.CompletedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid completed_at timestamp"})
			return
		}
		occurredAt = parsed
	}

	result, err := a.scores.Complete(taskID, currentUserID(c), occurredAt, payload.Timezone)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completionId":  result.CompletionID,
		"pointsAwarded": result.PointsAwarded,
		"streakAfter":   result.StreakAfter,
		"completedOn":   string(result.CompletedOn),
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
