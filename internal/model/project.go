package model

import (
	"errors"
	"time"
)

// Project 项目数据模型,任务可选归属
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Status    string    `gorm:"type:varchar(16);not null;default:active" json:"status"` // active, archived
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// Validate 验证项目模型
func (p *Project) Validate() error {
	if p.Name == "" {
		return errors.New("project name is required")
	}
	return nil
}

// Active 判断项目是否处于活跃状态
func (p *Project) Active() bool {
	return p.Status == "active"
}
