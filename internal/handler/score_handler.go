package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/scoring"
)

type settlePayload struct {
	Timezone string `json:"tz"`
}

// SettleMissed 结算漏打卡：对最近关闭的日桶/周桶逐任务扣罚。
// 幂等操作，重复调用不会二次扣罚。
func (a *API) SettleMissed(c *gin.Context) {
	var payload settlePayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}

	result, err := a.scores.SettleMissed(currentUserID(c), payload.Timezone)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"daily_bucket":    string(result.DailyBucketClosed),
		"weekly_bucket":   string(result.WeeklyBucketClosed),
		"penalizedDaily":  result.PenalizedDaily,
		"penalizedWeekly": result.PenalizedWeekly,
	})
}

// ScoreFeed 返回当前用户最近的账本动态
func (a *API) ScoreFeed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := a.ledger.Feed(currentUserID(c), limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type feedView struct {
		ID    uint   `json:"id"`
		TS    string `json:"ts"`
		Delta int    `json:"delta"`
		Cause string `json:"cause"`
		Label string `json:"label"`
	}

	views := make([]feedView, 0, len(items))
	for _, item := range items {
		views = append(views, feedView{
			ID:    item.ID,
			TS:    item.CreatedAt.Format(time.RFC3339),
			Delta: item.Delta,
			Cause: item.Cause,
			Label: item.Label,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}

// StatsLast7 返回近七日的每日打卡次数与得分
func (a *API) StatsLast7(c *gin.Context) {
	totals, err := a.ledger.Last7(currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type dayView struct {
		Day    string `json:"day"`
		Count  int    `json:"count"`
		Points int    `json:"points"`
	}

	views := make([]dayView, 0, len(totals))
	for _, total := range totals {
		views = append(views, dayView{Day: total.Day, Count: total.Count, Points: total.Points})
	}
	c.JSON(http.StatusOK, gin.H{"days": views})
}

// Score 返回当前用户的聚合总分；xp 策略下附带等级
func (a *API) Score(c *gin.Context) {
	user, err := a.profiles.Get(currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	resp := gin.H{
		"score":  user.Score,
		"policy": a.scores.Policy().Name(),
	}
	if a.scores.Policy().Name() == "xp" {
		resp["level"] = scoring.LevelFromXP(user.Score)
		resp["nextLevelXp"] = scoring.XPForLevel(scoring.LevelFromXP(user.Score) + 1)
	}
	c.JSON(http.StatusOK, resp)
}
