package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/service"
)

type profilePayload struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}

type profileView struct {
	UserID      uint   `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
	Score       int    `json:"score"`
}

// GetProfile 返回当前用户档案
func (a *API) GetProfile(c *gin.Context) {
	user, err := a.profiles.Get(currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profileView{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
		Score:       user.Score,
	}})
}

// CompleteProfile 完善档案（onboarding）
func (a *API) CompleteProfile(c *gin.Context) {
	var payload profilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	user, err := a.profiles.Complete(currentUserID(c), service.ProfileInput{
		Username:    payload.Username,
		DisplayName: payload.DisplayName,
		Timezone:    payload.Timezone,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profileView{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
		Score:       user.Score,
	}})
}

// CheckUsername 查询用户名是否可用
func (a *API) CheckUsername(c *gin.Context) {
	available, err := a.profiles.IsUsernameAvailable(c.Query("username"), currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}
