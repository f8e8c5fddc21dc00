package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
)

// setupReminderDB 创建提醒测试数据库
func setupReminderDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.Reminder{})
	require.NoError(t, err)

	return db
}

// TestCreateForTask 测试为任务预建全部提醒行
func TestCreateForTask(t *testing.T) {
	db := setupReminderDB(t)
	repo := repository.NewReminderRepository(db)

	require.NoError(t, repo.CreateForTask(1))

	var count int64
	require.NoError(t, db.Model(&model.Reminder{}).Where("task_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(len(model.AllReminderTypes)), count)

	// 重复调用不产生新行
	require.NoError(t, repo.CreateForTask(1))
	require.NoError(t, db.Model(&model.Reminder{}).Where("task_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(len(model.AllReminderTypes)), count)
}

// TestReminderSendLifecycle 测试提醒发送标记
func TestReminderSendLifecycle(t *testing.T) {
	db := setupReminderDB(t)
	repo := repository.NewReminderRepository(db)

	reminder, err := repo.Ensure(7, model.ReminderTomorrow)
	require.NoError(t, err)

	sent, err := repo.Sent(7, model.ReminderTomorrow)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.MarkSent(reminder.ID, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)))

	sent, err = repo.Sent(7, model.ReminderTomorrow)
	require.NoError(t, err)
	assert.True(t, sent)

	// Ensure 返回已存在的同一行
	again, err := repo.Ensure(7, model.ReminderTomorrow)
	require.NoError(t, err)
	assert.Equal(t, reminder.ID, again.ID)
}
