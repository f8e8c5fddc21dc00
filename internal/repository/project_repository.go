package repository

import (
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	Save(project *model.Project) error
	FindByID(id uint) (*model.Project, error)
	FindActive() ([]*model.Project, error)
	FindAll() ([]*model.Project, error)
}

// projectRepository 项目仓储实现
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Save 保存项目
func (r *projectRepository) Save(project *model.Project) error {
	return r.db.Save(project).Error
}

// FindByID 根据 ID 查找项目
func (r *projectRepository) FindByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindActive 查找所有活跃项目
func (r *projectRepository) FindActive() ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.Where("status = ?", "active").
		Order("name ASC").Find(&projects).Error
	return projects, err
}

// FindAll 查找所有项目
func (r *projectRepository) FindAll() ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.Order("name ASC").Find(&projects).Error
	return projects, err
}
