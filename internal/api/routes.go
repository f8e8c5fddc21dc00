package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// SetupRoutes 配置路由
// REST 面向内部看板: 任务查询与重派、团队与项目目录。
func SetupRoutes(cfg *config.Config, db *gorm.DB, tasks service.TaskService,
	users service.UserService, projects repository.ProjectRepository,
	logger *logrus.Logger) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	// 健康检查
	healthController := NewHealthController(db)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	authController := NewAuthController(users, cfg.Auth)
	taskController := NewTaskController(tasks, users)
	orgController := NewOrgController(users, projects)
	statsController := NewStatsController(service.NewStatisticsService(db))

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/token", authController.Token)

		secured := v1.Group("")
		secured.Use(AuthMiddleware(cfg.Auth.JWTSecret))
		{
			secured.GET("/tasks", taskController.List)
			secured.GET("/tasks/:id", taskController.Get)
			secured.POST("/tasks/:id/assign", RequireManager(), taskController.Assign)
			secured.POST("/tasks/:id/cc", RequireManager(), taskController.AddCc)
			secured.GET("/team", orgController.Team)
			secured.GET("/projects", orgController.Projects)

			stats := secured.Group("/stats", RequireManager())
			{
				stats.GET("", statsController.Summary)
				stats.GET("/status", statsController.ByStatus)
				stats.GET("/employees", statsController.ByEmployee)
				stats.GET("/projects", statsController.ByProject)
			}
		}
	}

	return router
}
