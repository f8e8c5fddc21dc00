package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// OrgController 团队与项目目录控制器
type OrgController struct {
	users    service.UserService
	projects repository.ProjectRepository
}

// NewOrgController 创建目录控制器
func NewOrgController(users service.UserService, projects repository.ProjectRepository) *OrgController {
	return &OrgController{users: users, projects: projects}
}

// Team 列出操作者可见的团队成员
// 管理员看到全员,经理看到直属下属。
func (oc *OrgController) Team(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		Error(c, http.StatusUnauthorized, "missing identity", "")
		return
	}
	actor, err := oc.users.FindByID(userID.(uint))
	if err != nil {
		Error(c, http.StatusUnauthorized, "unknown user", "")
		return
	}

	team, err := oc.users.ListTeam(actor)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list team", err.Error())
		return
	}
	Success(c, team)
}

// Projects 列出活跃项目
func (oc *OrgController) Projects(c *gin.Context) {
	projects, err := oc.projects.FindActive()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list projects", err.Error())
		return
	}
	Success(c, projects)
}
