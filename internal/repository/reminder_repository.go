package repository

import (
	"time"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"gorm.io/gorm"
)

// ReminderRepository 提醒仓储接口
type ReminderRepository interface {
	CreateForTask(taskID uint) error
	Ensure(taskID uint, typ model.ReminderType) (*model.Reminder, error)
	MarkSent(id uint, now time.Time) error
	Sent(taskID uint, typ model.ReminderType) (bool, error)
}

// reminderRepository 提醒仓储实现
type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository 创建提醒仓储
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

// CreateForTask 为任务预建全部提醒行
func (r *reminderRepository) CreateForTask(taskID uint) error {
	for _, typ := range model.AllReminderTypes {
		if _, err := r.Ensure(taskID, typ); err != nil {
			return err
		}
	}
	return nil
}

// Ensure 确保任务的某类提醒记录存在,已存在时返回现有记录
// 唯一索引保证每个任务的每类提醒只发一次。
func (r *reminderRepository) Ensure(taskID uint, typ model.ReminderType) (*model.Reminder, error) {
	reminder := model.Reminder{TaskID: taskID, Type: typ}
	err := r.db.Where("task_id = ? AND reminder_type = ?", taskID, typ).
		FirstOrCreate(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

// MarkSent 标记提醒已发送
func (r *reminderRepository) MarkSent(id uint, now time.Time) error {
	return r.db.Model(&model.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_sent": true, "sent_at": now}).Error
}

// Sent 查询某任务某类提醒是否已发送
func (r *reminderRepository) Sent(taskID uint, typ model.ReminderType) (bool, error) {
	var count int64
	err := r.db.Model(&model.Reminder{}).
		Where("task_id = ? AND reminder_type = ? AND is_sent = ?", taskID, typ, true).
		Count(&count).Error
	return count > 0, err
}
