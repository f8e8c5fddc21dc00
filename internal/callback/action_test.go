package callback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
)

// TestParse_CreationBeforeCompletion 测试创建审批前缀先于完成审批前缀匹配
func TestParse_CreationBeforeCompletion(t *testing.T) {
	a := callback.Parse("approve_task_creation_42")
	assert.Equal(t, callback.KindApproveCreation, a.Kind)
	assert.Equal(t, uint(42), a.ID)

	a = callback.Parse("approve_task_42")
	assert.Equal(t, callback.KindApproveCompletion, a.Kind)
	assert.Equal(t, uint(42), a.ID)

	a = callback.Parse("reject_task_creation_7")
	assert.Equal(t, callback.KindRejectCreation, a.Kind)

	a = callback.Parse("reject_task_7")
	assert.Equal(t, callback.KindRejectCompletion, a.Kind)
}

// TestParse_RoundTrip 测试编码后再解析得到同一动作
func TestParse_RoundTrip(t *testing.T) {
	cases := []struct {
		data string
		kind callback.Kind
		id   uint
	}{
		{callback.SelectUser(3), callback.KindSelectUser, 3},
		{callback.SelectProject(9), callback.KindSelectProject, 9},
		{callback.CompleteTask(12), callback.KindCompleteTask, 12},
		{callback.ApproveCreation(1), callback.KindApproveCreation, 1},
		{callback.RejectCompletion(2), callback.KindRejectCompletion, 2},
		{callback.Cancel(), callback.KindCancel, 0},
		{callback.ConfirmCreate(), callback.KindConfirmCreate, 0},
		{callback.ConfirmAM(), callback.KindConfirmAM, 0},
		{callback.BackToTasks(), callback.KindBackToTasks, 0},
	}

	for _, tc := range cases {
		a := callback.Parse(tc.data)
		assert.Equal(t, tc.kind, a.Kind, tc.data)
		assert.Equal(t, tc.id, a.ID, tc.data)
	}
}

// TestParse_NoPersonBeforeUserID 测试哨兵载荷不会被当成用户编号
func TestParse_NoPersonBeforeUserID(t *testing.T) {
	a := callback.Parse(callback.SelectNoPerson())
	assert.Equal(t, callback.KindSelectNoPerson, a.Kind)
	assert.Zero(t, a.ID)
}

// TestParse_Priority 测试优先级载荷携带取值
func TestParse_Priority(t *testing.T) {
	a := callback.Parse(callback.SetPriority("high"))
	assert.Equal(t, callback.KindSetPriority, a.Kind)
	assert.Equal(t, "high", a.Arg)
}

// TestParse_Unknown 测试无法识别的载荷
func TestParse_Unknown(t *testing.T) {
	assert.Equal(t, callback.KindUnknown, callback.Parse("garbage").Kind)
	assert.Equal(t, callback.KindUnknown, callback.Parse("select_user_abc").Kind)
	assert.Equal(t, callback.KindUnknown, callback.Parse("").Kind)
}
