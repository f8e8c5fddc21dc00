package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// TaskController 任务控制器
type TaskController struct {
	tasks service.TaskService
	users service.UserService
}

// NewTaskController 创建任务控制器
func NewTaskController(tasks service.TaskService, users service.UserService) *TaskController {
	return &TaskController{tasks: tasks, users: users}
}

// List 查询任务列表,支持按状态、执行人、项目过滤
func (tc *TaskController) List(c *gin.Context) {
	filter := &repository.TaskFilter{}

	if v := c.Query("status"); v != "" {
		status := model.Status(v)
		filter.Status = &status
	}
	if v := c.Query("employee_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid employee_id", "")
			return
		}
		employeeID := uint(id)
		filter.EmployeeID = &employeeID
	}
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid project_id", "")
			return
		}
		projectID := uint(id)
		filter.ProjectID = &projectID
	}

	tasks, err := tc.tasks.ListByFilter(filter)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list tasks", err.Error())
		return
	}
	Success(c, tasks)
}

// Get 获取任务详情及抄送人
func (tc *TaskController) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := tc.tasks.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			Error(c, http.StatusNotFound, "task not found", "")
			return
		}
		Error(c, http.StatusInternalServerError, "failed to get task", err.Error())
		return
	}
	cc, err := tc.tasks.CcUsers(id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load watchers", err.Error())
		return
	}
	Success(c, gin.H{"task": task, "cc": cc})
}

// assignRequest 重新指派请求
type assignRequest struct {
	EmployeeID uint `json:"employee_id" binding:"required"`
}

// Assign 重新指派任务,状态重置为待办
func (tc *TaskController) Assign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	actor, ok := tc.actor(c)
	if !ok {
		return
	}
	task, err := tc.tasks.Assign(id, req.EmployeeID, actor)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			Error(c, http.StatusNotFound, "task not found", "")
			return
		}
		Error(c, http.StatusInternalServerError, "failed to assign task", err.Error())
		return
	}
	Success(c, task)
}

// ccRequest 添加抄送请求
type ccRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
}

// AddCc 为任务添加抄送人
func (tc *TaskController) AddCc(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ccRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	actor, ok := tc.actor(c)
	if !ok {
		return
	}
	if err := tc.tasks.AddCc(id, actor, req.UserIDs); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			Error(c, http.StatusNotFound, "task not found", "")
			return
		}
		Error(c, http.StatusInternalServerError, "failed to add watchers", err.Error())
		return
	}
	Success(c, nil)
}

// actor 根据令牌声明取出操作者
func (tc *TaskController) actor(c *gin.Context) (*model.User, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		Error(c, http.StatusUnauthorized, "missing identity", "")
		return nil, false
	}
	actor, err := tc.users.FindByID(userID.(uint))
	if err != nil {
		Error(c, http.StatusUnauthorized, "unknown user", "")
		return nil, false
	}
	return actor, true
}

// pathID 解析路径里的数字 ID
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid id", "")
		return 0, false
	}
	return uint(id), true
}
