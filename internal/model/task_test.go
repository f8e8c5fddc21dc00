package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
)

// TestCanTransition 测试状态转换表
func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to model.Status }{
		{model.StatusPendingApproval, model.StatusPending},
		{model.StatusPendingApproval, model.StatusCompleted},
		{model.StatusPendingApproval, model.StatusRejected},
		{model.StatusPending, model.StatusPendingApproval},
		{model.StatusPending, model.StatusOverdue},
		{model.StatusPending, model.StatusCompleted},
		{model.StatusOverdue, model.StatusPendingApproval},
		{model.StatusOverdue, model.StatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, model.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	// 终态没有出边
	assert.False(t, model.CanTransition(model.StatusCompleted, model.StatusPending))
	assert.False(t, model.CanTransition(model.StatusRejected, model.StatusPending))
	// 逾期不能直接回到待办
	assert.False(t, model.CanTransition(model.StatusOverdue, model.StatusPending))
	assert.False(t, model.CanTransition(model.StatusPendingApproval, model.StatusOverdue))
}

// TestTaskValidate 测试任务字段验证
func TestTaskValidate(t *testing.T) {
	task := &model.Task{
		Description: "prepare quarterly report",
		EmployeeID:  1,
		AssignedBy:  2,
		DueDate:     time.Now().Add(24 * time.Hour),
		Status:      model.StatusPending,
	}
	assert.NoError(t, task.Validate())

	short := *task
	short.Description = "abc"
	assert.Error(t, short.Validate())

	noDue := *task
	noDue.DueDate = time.Time{}
	assert.Error(t, noDue.Validate())

	pastDue := *task
	pastDue.DueDate = time.Now().Add(-time.Hour)
	assert.Error(t, pastDue.Validate())

	badPriority := *task
	badPriority.Priority = "urgent"
	assert.Error(t, badPriority.Validate())

	optionalPriority := *task
	optionalPriority.Priority = ""
	assert.NoError(t, optionalPriority.Validate())
}

// TestCapabilities 测试角色能力解析
func TestCapabilities(t *testing.T) {
	admin := model.CapabilitiesFor(model.RoleAdmin)
	assert.True(t, admin.Admin)
	assert.True(t, admin.Manager)
	assert.True(t, admin.CanAssign())

	manager := model.CapabilitiesFor(model.RoleManager)
	assert.False(t, manager.Admin)
	assert.True(t, manager.CanAssign())

	employee := model.CapabilitiesFor(model.RoleEmployee)
	assert.False(t, employee.CanAssign())
}

// TestInviteUsable 测试邀请可用性判定
func TestInviteUsable(t *testing.T) {
	now := time.Now()
	invite := &model.Invite{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, invite.Usable(now))

	used := uint(5)
	invite.UsedBy = &used
	assert.False(t, invite.Usable(now))

	expired := &model.Invite{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Usable(now))
}

// TestUserHelpers 测试用户模型辅助方法
func TestUserHelpers(t *testing.T) {
	u := &model.User{FirstName: "Asha", Username: "asha_k", TelegramID: 42}
	assert.Equal(t, "Asha", u.DisplayName())
	assert.True(t, u.Reachable())

	noName := &model.User{Username: "bot_user"}
	assert.Equal(t, "bot_user", noName.DisplayName())
	assert.False(t, noName.Reachable())

	sentinel := &model.User{Username: model.NoPersonUsername}
	assert.True(t, sentinel.IsNoPerson())
}
