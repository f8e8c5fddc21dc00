package approval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PFEPLTechHub/telegram-task/internal/approval"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
)

// TestDecideInitialStatus 测试创建任务的初始状态判定
func TestDecideInitialStatus(t *testing.T) {
	admin := model.CapabilitiesFor(model.RoleAdmin)
	manager := model.CapabilitiesFor(model.RoleManager)
	employee := model.CapabilitiesFor(model.RoleEmployee)

	cases := []struct {
		name         string
		creator      model.Capabilities
		targetRole   model.Role
		selfAssigned bool
		want         model.Status
	}{
		{"admin to employee", admin, model.RoleEmployee, false, model.StatusPending},
		{"admin to manager", admin, model.RoleManager, false, model.StatusPending},
		{"manager to employee", manager, model.RoleEmployee, false, model.StatusPending},
		{"manager to self", manager, model.RoleManager, true, model.StatusPending},
		{"manager to other manager", manager, model.RoleManager, false, model.StatusPendingApproval},
		{"employee to self", employee, model.RoleEmployee, true, model.StatusPendingApproval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := approval.DecideInitialStatus(tc.creator, tc.targetRole, tc.selfAssigned)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestCompletionBypass 测试完成免审批判定
func TestCompletionBypass(t *testing.T) {
	manager := model.CapabilitiesFor(model.RoleManager)
	employee := model.CapabilitiesFor(model.RoleEmployee)

	// 经理完成自建自领任务免审批
	assert.True(t, approval.CompletionBypass(manager, 7, 7, 7))
	// 任务不是自己创建的,需要审批
	assert.False(t, approval.CompletionBypass(manager, 7, 7, 3))
	// 任务不是派给自己的,需要审批
	assert.False(t, approval.CompletionBypass(manager, 7, 3, 7))
	// 员工永远走审批链
	assert.False(t, approval.CompletionBypass(employee, 7, 7, 7))
}

// TestResolveChain_DirectManagerFirst 测试直属经理优先收到请求
func TestResolveChain_DirectManagerFirst(t *testing.T) {
	sent := []int64{}
	send := func(chatID int64) bool {
		sent = append(sent, chatID)
		return true
	}

	result := approval.ResolveChain(100, 200, []model.User{
		{TelegramID: 300, Role: model.RoleManager},
	}, send)

	assert.Equal(t, approval.OutcomeNotified, result.Outcome)
	assert.Equal(t, int64(100), result.ApproverChatID)
	assert.Equal(t, []int64{100}, sent)
}

// TestResolveChain_FallbackToOtherManagers 测试直属经理不可达时回退
func TestResolveChain_FallbackToOtherManagers(t *testing.T) {
	sent := []int64{}
	send := func(chatID int64) bool {
		sent = append(sent, chatID)
		return chatID == 400
	}

	result := approval.ResolveChain(100, 200, []model.User{
		{TelegramID: 300},
		{TelegramID: 400},
	}, send)

	assert.Equal(t, approval.OutcomeNotified, result.Outcome)
	assert.Equal(t, int64(400), result.ApproverChatID)
	// 直属经理与第一个回退经理都失败,第二个胜出
	assert.Equal(t, []int64{100, 300, 400}, sent)
}

// TestResolveChain_SkipsRequester 测试链路跳过请求人自己
func TestResolveChain_SkipsRequester(t *testing.T) {
	sent := []int64{}
	send := func(chatID int64) bool {
		sent = append(sent, chatID)
		return true
	}

	// 直属经理就是请求人自己,跳过后回退到另一位经理
	result := approval.ResolveChain(200, 200, []model.User{
		{TelegramID: 200},
		{TelegramID: 300},
	}, send)

	assert.Equal(t, approval.OutcomeNotified, result.Outcome)
	assert.Equal(t, int64(300), result.ApproverChatID)
	assert.Equal(t, []int64{300}, sent)
}

// TestResolveChain_SkipsDirectManagerInFallback 测试回退阶段不重复尝试直属经理
func TestResolveChain_SkipsDirectManagerInFallback(t *testing.T) {
	attempts := map[int64]int{}
	send := func(chatID int64) bool {
		attempts[chatID]++
		return false
	}

	result := approval.ResolveChain(100, 200, []model.User{
		{TelegramID: 100},
		{TelegramID: 300},
	}, send)

	assert.Equal(t, approval.OutcomeAutoApproved, result.Outcome)
	assert.Equal(t, 1, attempts[100])
	assert.Equal(t, 1, attempts[300])
}

// TestResolveChain_AutoApprove 测试无可达审批人时自动通过
func TestResolveChain_AutoApprove(t *testing.T) {
	// 没有直属经理,经理列表里只有不可达用户
	result := approval.ResolveChain(0, 200, []model.User{
		{TelegramID: 0},
	}, func(int64) bool { return true })

	assert.Equal(t, approval.OutcomeAutoApproved, result.Outcome)
	assert.Zero(t, result.ApproverChatID)
}
