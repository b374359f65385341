package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("habitloop_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/register", api.Register)
		apiGroup.POST("/login", api.Login)
		apiGroup.POST("/logout", api.Logout)

		// 需要认证的路由
		auth := apiGroup.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/tasks", api.ListTasks)
			auth.POST("/tasks", api.CreateTask)
			auth.GET("/tasks/today", api.TodayTasks)
			auth.PATCH("/tasks/:id", api.UpdateTask)
			auth.DELETE("/tasks/:id", api.DeleteTask)
			auth.POST("/tasks/:id/complete", api.CompleteTask)

			auth.GET("/score", api.Score)
			auth.GET("/score/feed", api.ScoreFeed)
			auth.POST("/score/settle-missed", api.SettleMissed)
			auth.GET("/stats/last7", api.StatsLast7)

			auth.GET("/profile", api.GetProfile)
			auth.POST("/profile/complete", api.CompleteProfile)
			auth.GET("/profile/check-username", api.CheckUsername)

			auth.GET("/circles", api.MyCircles)
			auth.POST("/circles", api.CreateCircle)
			auth.POST("/circles/join", api.JoinCircle)
			auth.POST("/circles/leave", api.LeaveCircle)
			auth.GET("/circles/:id/leaderboard", api.CircleLeaderboard)
			auth.GET("/circles/:id/feed", api.CircleFeed)
		}
	}

	return r
}
