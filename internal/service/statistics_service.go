package service

import (
	"fmt"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	TasksByStatus() ([]*TaskCountByStatus, error)
	TasksByEmployee() ([]*TaskCountByEmployee, error)
	TasksByProject() ([]*TaskCountByProject, error)
	CompletionSummary() (*CompletionSummary, error)
}

// TaskCountByStatus 按状态统计
type TaskCountByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TaskCountByEmployee 按执行人统计
type TaskCountByEmployee struct {
	EmployeeID   uint   `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Open         int64  `json:"open"`
	Completed    int64  `json:"completed"`
}

// TaskCountByProject 按项目统计
type TaskCountByProject struct {
	ProjectID   uint   `json:"project_id"`
	ProjectName string `json:"project_name"`
	Count       int64  `json:"count"`
}

// CompletionSummary 完成情况汇总
type CompletionSummary struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	Overdue        int64   `json:"overdue"`
	Rejected       int64   `json:"rejected"`
	CompletionRate float64 `json:"completion_rate"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// TasksByStatus 按状态统计任务数量
func (s *statisticsService) TasksByStatus() ([]*TaskCountByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.Task{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	stats := make([]*TaskCountByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &TaskCountByStatus{Status: r.Status, Count: r.Count})
	}
	return stats, nil
}

// TasksByEmployee 按执行人统计未完成与已完成任务
func (s *statisticsService) TasksByEmployee() ([]*TaskCountByEmployee, error) {
	var results []struct {
		EmployeeID uint
		Status     string
		Count      int64
	}

	err := s.db.Model(&model.Task{}).
		Select("employee_id, status, COUNT(*) as count").
		Group("employee_id, status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by employee: %w", err)
	}

	byEmployee := make(map[uint]*TaskCountByEmployee)
	order := make([]uint, 0)
	for _, r := range results {
		stat, ok := byEmployee[r.EmployeeID]
		if !ok {
			stat = &TaskCountByEmployee{EmployeeID: r.EmployeeID}
			byEmployee[r.EmployeeID] = stat
			order = append(order, r.EmployeeID)
		}
		if r.Status == string(model.StatusCompleted) {
			stat.Completed += r.Count
		} else if r.Status != string(model.StatusRejected) {
			stat.Open += r.Count
		}
	}

	stats := make([]*TaskCountByEmployee, 0, len(order))
	for _, id := range order {
		stat := byEmployee[id]
		var user model.User
		if err := s.db.First(&user, id).Error; err == nil {
			stat.EmployeeName = user.DisplayName()
		} else {
			stat.EmployeeName = "unknown"
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// TasksByProject 按项目统计任务数量
func (s *statisticsService) TasksByProject() ([]*TaskCountByProject, error) {
	var results []struct {
		ProjectID uint
		Count     int64
	}

	err := s.db.Model(&model.Task{}).
		Where("project_id IS NOT NULL").
		Select("project_id, COUNT(*) as count").
		Group("project_id").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by project: %w", err)
	}

	stats := make([]*TaskCountByProject, 0, len(results))
	for _, r := range results {
		stat := &TaskCountByProject{ProjectID: r.ProjectID, Count: r.Count}
		var project model.Project
		if err := s.db.First(&project, r.ProjectID).Error; err == nil {
			stat.ProjectName = project.Name
		} else {
			stat.ProjectName = "unknown"
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// CompletionSummary 获取完成情况汇总
func (s *statisticsService) CompletionSummary() (*CompletionSummary, error) {
	var total int64
	if err := s.db.Model(&model.Task{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var completed int64
	err := s.db.Model(&model.Task{}).
		Where("status = ?", model.StatusCompleted).
		Count(&completed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	var overdue int64
	err = s.db.Model(&model.Task{}).
		Where("status = ?", model.StatusOverdue).
		Count(&overdue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	var rejected int64
	err = s.db.Model(&model.Task{}).
		Where("status = ?", model.StatusRejected).
		Count(&rejected).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count rejected tasks: %w", err)
	}

	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}

	return &CompletionSummary{
		Total:          total,
		Completed:      completed,
		Overdue:        overdue,
		Rejected:       rejected,
		CompletionRate: rate,
	}, nil
}
