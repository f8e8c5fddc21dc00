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

// setupTaskDB 创建任务测试数据库
func setupTaskDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.User{}, &model.Task{}, &model.TaskCc{})
	require.NoError(t, err)

	return db
}

// newPendingTask 创建一个待办任务
func newPendingTask(t *testing.T, repo repository.TaskRepository, due time.Time) *model.Task {
	task := &model.Task{
		Description: "prepare quarterly report",
		EmployeeID:  1,
		AssignedBy:  2,
		DueDate:     due,
		Status:      model.StatusPending,
	}
	require.NoError(t, repo.Create(task))
	return task
}

// TestTaskRepository_CreateAndFind 测试创建与查找
func TestTaskRepository_CreateAndFind(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	task := newPendingTask(t, repo, time.Now().Add(24*time.Hour))

	found, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Description, found.Description)
	assert.Equal(t, model.StatusPending, found.Status)

	_, err = repo.FindByID(9999)
	assert.Error(t, err)
}

// TestTaskRepository_TransitionStatus 测试条件状态迁移
func TestTaskRepository_TransitionStatus(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	task := newPendingTask(t, repo, time.Now().Add(24*time.Hour))

	approver := int64(5)
	updated, err := repo.TransitionStatus(task.ID, model.StatusPending, model.StatusCompleted,
		func(tk *model.Task) { tk.ApprovedBy = &approver })
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, approver, *updated.ApprovedBy)
}

// TestTaskRepository_TransitionStatus_Idempotent 测试重复裁决只生效一次
func TestTaskRepository_TransitionStatus_Idempotent(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	task := newPendingTask(t, repo, time.Now().Add(24*time.Hour))

	_, err := repo.TransitionStatus(task.ID, model.StatusPending, model.StatusCompleted, nil)
	require.NoError(t, err)

	// 第二次裁决时起始状态已变
	_, err = repo.TransitionStatus(task.ID, model.StatusPending, model.StatusCompleted, nil)
	assert.ErrorIs(t, err, repository.ErrAlreadyResolved)
}

// TestTaskRepository_TransitionStatus_InvalidEdge 测试非法状态边被拒绝
func TestTaskRepository_TransitionStatus_InvalidEdge(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	task := newPendingTask(t, repo, time.Now().Add(24*time.Hour))

	_, err := repo.TransitionStatus(task.ID, model.StatusCompleted, model.StatusPending, nil)
	assert.ErrorIs(t, err, repository.ErrAlreadyResolved)
}

// TestTaskRepository_SweepOverdue 测试逾期批量扫描
func TestTaskRepository_SweepOverdue(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	now := time.Now()

	overdue := newPendingTask(t, repo, now.Add(-time.Hour))
	future := newPendingTask(t, repo, now.Add(time.Hour))

	count, err := repo.SweepOverdue(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByID(overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, found.Status)

	found, err = repo.FindByID(future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, found.Status)

	// 再次扫描没有新的逾期
	count, err = repo.SweepOverdue(now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestTaskRepository_FindPendingForEmployee 测试可完成任务查询
func TestTaskRepository_FindPendingForEmployee(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	now := time.Now()

	newPendingTask(t, repo, now.Add(time.Hour))
	overdueTask := newPendingTask(t, repo, now.Add(-time.Hour))
	_, err := repo.SweepOverdue(now)
	require.NoError(t, err)

	done := &model.Task{
		Description: "already finished work",
		EmployeeID:  1,
		AssignedBy:  2,
		DueDate:     now,
		Status:      model.StatusCompleted,
	}
	require.NoError(t, repo.Create(done))

	tasks, err := repo.FindPendingForEmployee(1)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	// 按截止时间升序,逾期任务在前
	assert.Equal(t, overdueTask.ID, tasks[0].ID)
}

// TestTaskRepository_FindByFilter 测试过滤查询
func TestTaskRepository_FindByFilter(t *testing.T) {
	repo := repository.NewTaskRepository(setupTaskDB(t))
	now := time.Now()

	newPendingTask(t, repo, now.Add(time.Hour))
	other := &model.Task{
		Description: "review design document",
		EmployeeID:  9,
		AssignedBy:  2,
		DueDate:     now.Add(48 * time.Hour),
		Status:      model.StatusPending,
	}
	require.NoError(t, repo.Create(other))

	employeeID := uint(9)
	tasks, err := repo.FindByFilter(&repository.TaskFilter{EmployeeID: &employeeID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, other.ID, tasks[0].ID)

	dueBefore := now.Add(2 * time.Hour)
	tasks, err = repo.FindByFilter(&repository.TaskFilter{DueBefore: &dueBefore})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

// TestTaskRepository_Cc 测试抄送关联
func TestTaskRepository_Cc(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	task := newPendingTask(t, repo, time.Now().Add(time.Hour))

	watcher := &model.User{TelegramID: 700, FirstName: "Vik", Role: model.RoleEmployee}
	require.NoError(t, db.Create(watcher).Error)

	require.NoError(t, repo.AddCcUsers(task.ID, 2, []uint{watcher.ID}))
	// 重复抄送静默忽略
	require.NoError(t, repo.AddCcUsers(task.ID, 2, []uint{watcher.ID}))

	users, err := repo.CcUsers(task.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, watcher.ID, users[0].ID)
}
