package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"golang.org/x/crypto/bcrypt"
)

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 注册新用户并直接登录
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	username := strings.TrimSpace(strings.ToLower(payload.Username))
	if len(username) < 3 || len(payload.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username min 3 chars, password min 8 chars"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := db.User{Username: username, Password: string(hashed)}
	if err := a.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	a.saveSession(c, &user)
}

// Login 处理用户登录请求
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	// 查找用户
	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(strings.ToLower(payload.Username))).
		First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	a.saveSession(c, &user)
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) saveSession(c *gin.Context, user *db.User) {
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": user.ID, "username": user.Username})
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")
		if userID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// currentUserID 从会话中取当前用户 ID
func currentUserID(c *gin.Context) uint {
	session := sessions.Default(c)
	if id, ok := session.Get("user_id").(uint); ok {
		return id
	}
	return 0
}
