package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 全局令牌桶限流
// 看板轮询客户端偶发突刺, 超额请求直接 429。
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			Error(c, http.StatusTooManyRequests, "too many requests", "")
			c.Abort()
			return
		}
		c.Next()
	}
}
