package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// StatsController 任务统计控制器
type StatsController struct {
	stats service.StatisticsService
}

// NewStatsController 创建统计控制器
func NewStatsController(stats service.StatisticsService) *StatsController {
	return &StatsController{stats: stats}
}

// Summary 完成情况汇总
func (sc *StatsController) Summary(c *gin.Context) {
	summary, err := sc.stats.CompletionSummary()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to build summary", err.Error())
		return
	}
	Success(c, summary)
}

// ByStatus 按状态统计
func (sc *StatsController) ByStatus(c *gin.Context) {
	stats, err := sc.stats.TasksByStatus()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to count by status", err.Error())
		return
	}
	Success(c, stats)
}

// ByEmployee 按执行人统计
func (sc *StatsController) ByEmployee(c *gin.Context) {
	stats, err := sc.stats.TasksByEmployee()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to count by employee", err.Error())
		return
	}
	Success(c, stats)
}

// ByProject 按项目统计
func (sc *StatsController) ByProject(c *gin.Context) {
	stats, err := sc.stats.TasksByProject()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to count by project", err.Error())
		return
	}
	Success(c, stats)
}
