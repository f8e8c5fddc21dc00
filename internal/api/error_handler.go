package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// ErrorHandlerMiddleware 兜底错误处理
// 将 handler 通过 c.Error 上报的领域错误翻译成统一响应。
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			Error(c, http.StatusNotFound, "task not found", "")
		case errors.Is(err, service.ErrAlreadyResolved):
			Error(c, http.StatusConflict, "already resolved", "")
		default:
			Error(c, http.StatusInternalServerError, "internal server error", err.Error())
		}
	}
}
