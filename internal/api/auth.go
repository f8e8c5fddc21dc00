package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// Claims API 令牌声明
type Claims struct {
	UserID uint       `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthController 令牌签发控制器
type AuthController struct {
	users service.UserService
	cfg   config.AuthConfig
}

// NewAuthController 创建令牌签发控制器
func NewAuthController(users service.UserService, cfg config.AuthConfig) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

// tokenRequest 换取令牌的请求
type tokenRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	APIKey     string `json:"api_key" binding:"required"`
}

// Token 为已注册用户签发访问令牌
// 调用方持部署时配置的共享密钥,面向内部看板而不是公网。
func (a *AuthController) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if a.cfg.JWTSecret == "" || req.APIKey != a.cfg.JWTSecret {
		Error(c, http.StatusUnauthorized, "invalid api key", "")
		return
	}

	user, err := a.users.Identify(req.TelegramID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to identify user", err.Error())
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not registered", "")
		return
	}

	ttl := time.Duration(a.cfg.TokenTTL) * time.Minute
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to sign token", err.Error())
		return
	}

	Success(c, gin.H{"token": token, "expires_in": int(ttl.Seconds())})
}

// AuthMiddleware 校验 Bearer 令牌并把身份放进上下文
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			Error(c, http.StatusUnauthorized, "missing bearer token", "")
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
		if err != nil || !token.Valid {
			Error(c, http.StatusUnauthorized, "invalid token", "")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireManager 只放行有管理能力的角色
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok || !model.CapabilitiesFor(role.(model.Role)).CanAssign() {
			Error(c, http.StatusForbidden, "manager role required", "")
			c.Abort()
			return
		}
		c.Next()
	}
}
