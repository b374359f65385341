package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/scoring"
	"github.com/habitloop/internal/service"
)

// abortWithServiceError 把服务层的哨兵错误映射为 HTTP 状态码。
// 未识别的错误一律按存储故障处理，细节不回传给客户端。
func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCircleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotCircleMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateCompletion),
		errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTaskInactive),
		errors.Is(err, service.ErrInvalidTaskTitle),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidCircleName),
		errors.Is(err, scoring.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
