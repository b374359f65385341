package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type circlePayload struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	CircleID uint   `json:"circleId"`
}

// CreateCircle 创建圈子并返回邀请码
func (a *API) CreateCircle(c *gin.Context) {
	var payload circlePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	circle, err := a.circles.Create(currentUserID(c), payload.Name)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": circle.ID, "join_code": circle.JoinCode})
}

// JoinCircle 凭邀请码加入圈子
func (a *API) JoinCircle(c *gin.Context) {
	var payload circlePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	circle, err := a.circles.Join(currentUserID(c), payload.Code)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"circleId": circle.ID})
}

// LeaveCircle 退出圈子
func (a *API) LeaveCircle(c *gin.Context) {
	var payload circlePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.CircleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if err := a.circles.Leave(currentUserID(c), payload.CircleID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MyCircles 返回当前用户加入的圈子
func (a *API) MyCircles(c *gin.Context) {
	circles, err := a.circles.Mine(currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type circleView struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		JoinCode string `json:"join_code"`
	}

	views := make([]circleView, 0, len(circles))
	for _, circle := range circles {
		views = append(views, circleView{ID: circle.ID, Name: circle.Name, JoinCode: circle.JoinCode})
	}
	c.JSON(http.StatusOK, gin.H{"circles": views})
}

// CircleLeaderboard 返回圈内成员按总分倒序的排行榜
func (a *API) CircleLeaderboard(c *gin.Context) {
	circleID, ok := pathID(c)
	if !ok {
		return
	}

	entries, err := a.circles.Leaderboard(circleID, currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type memberView struct {
		UserID      uint   `json:"user_id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Score       int    `json:"score"`
	}

	views := make([]memberView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, memberView{
			UserID:      entry.UserID,
			Username:    entry.Username,
			DisplayName: entry.DisplayName,
			Score:       entry.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": views})
}

// CircleFeed 返回圈内成员的最近账本动态
func (a *API) CircleFeed(c *gin.Context) {
	circleID, ok := pathID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	items, err := a.circles.Feed(circleID, currentUserID(c), limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type feedView struct {
		Username string `json:"username"`
		Delta    int    `json:"delta"`
		Cause    string `json:"cause"`
		Label    string `json:"label"`
		TS       string `json:"ts"`
	}

	views := make([]feedView, 0, len(items))
	for _, item := range items {
		views = append(views, feedView{
			Username: item.Username,
			Delta:    item.Delta,
			Cause:    item.Cause,
			Label:    item.Label,
			TS:       item.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}
