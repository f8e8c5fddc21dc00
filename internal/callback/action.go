// Package callback 定义内联按钮回调载荷的编解码。
// 载荷是紧凑的字符串,格式沿用旧库,便于和历史消息里的按钮兼容。
package callback

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind 动作类别
type Kind int

const (
	KindUnknown Kind = iota
	KindSelectUser
	KindSelectNoPerson
	KindCancel
	KindMainMenu
	KindConfirmAM
	KindConfirmPM
	KindSetPriority
	KindSkipPriority
	KindSelectProject
	KindSkipProject
	KindConfirmCreate
	KindEditDescription
	KindEditDueDate
	KindEditPriority
	KindEditProject
	KindCompleteTask
	KindAddReply
	KindSkipReply
	KindEditReply
	KindConfirmComplete
	KindBackToTasks
	KindApproveCreation
	KindRejectCreation
	KindApproveCompletion
	KindRejectCompletion
)

// Action 解析后的回调动作
// ID 仅对携带对象编号的类别有意义(用户、项目、任务)。
// Arg 携带类别的字符串参数(优先级取值)。
type Action struct {
	Kind Kind
	ID   uint
	Arg  string
}

const (
	prefixSelectUser      = "select_user_"
	prefixSetPriority     = "set_priority_"
	prefixSelectProject   = "select_project_"
	prefixCompleteTask    = "complete_task_"
	prefixApproveCreation = "approve_task_creation_"
	prefixRejectCreation  = "reject_task_creation_"
	prefixApproveComplete = "approve_task_"
	prefixRejectComplete  = "reject_task_"
	dataSelectNoPerson    = "select_user_no_person"
	dataCancel            = "action_cancel"
	dataMainMenu          = "action_main_menu"
	dataConfirmAM         = "confirm_am"
	dataConfirmPM         = "confirm_pm"
	dataSkipPriority      = "skip_priority"
	dataSkipProject       = "skip_project"
	dataConfirmCreate     = "confirm_create_task"
	dataEditDescription   = "edit_description"
	dataEditDueDate       = "edit_due_date"
	dataEditPriority      = "edit_priority"
	dataEditProject       = "edit_project"
	dataAddReply          = "add_reply"
	dataSkipReply         = "skip_reply"
	dataEditReply         = "edit_reply"
	dataConfirmComplete   = "confirm_complete"
	dataBackToTasks       = "back_to_tasks"
)

// Parse 解码回调载荷
// 无法识别的载荷返回 KindUnknown,由调用方静默忽略。
func Parse(data string) Action {
	switch data {
	case dataSelectNoPerson:
		return Action{Kind: KindSelectNoPerson}
	case dataCancel:
		return Action{Kind: KindCancel}
	case dataMainMenu:
		return Action{Kind: KindMainMenu}
	case dataConfirmAM:
		return Action{Kind: KindConfirmAM}
	case dataConfirmPM:
		return Action{Kind: KindConfirmPM}
	case dataSkipPriority:
		return Action{Kind: KindSkipPriority}
	case dataSkipProject:
		return Action{Kind: KindSkipProject}
	case dataConfirmCreate:
		return Action{Kind: KindConfirmCreate}
	case dataEditDescription:
		return Action{Kind: KindEditDescription}
	case dataEditDueDate:
		return Action{Kind: KindEditDueDate}
	case dataEditPriority:
		return Action{Kind: KindEditPriority}
	case dataEditProject:
		return Action{Kind: KindEditProject}
	case dataAddReply:
		return Action{Kind: KindAddReply}
	case dataSkipReply:
		return Action{Kind: KindSkipReply}
	case dataEditReply:
		return Action{Kind: KindEditReply}
	case dataConfirmComplete:
		return Action{Kind: KindConfirmComplete}
	case dataBackToTasks:
		return Action{Kind: KindBackToTasks}
	}

	// 带编号前缀的类别,顺序敏感: approve_task_creation_ 必须先于 approve_task_ 判断
	for _, p := range []struct {
		prefix string
		kind   Kind
	}{
		{prefixSelectUser, KindSelectUser},
		{prefixSelectProject, KindSelectProject},
		{prefixCompleteTask, KindCompleteTask},
		{prefixApproveCreation, KindApproveCreation},
		{prefixRejectCreation, KindRejectCreation},
		{prefixApproveComplete, KindApproveCompletion},
		{prefixRejectComplete, KindRejectCompletion},
	} {
		if strings.HasPrefix(data, p.prefix) {
			id, err := strconv.ParseUint(strings.TrimPrefix(data, p.prefix), 10, 32)
			if err != nil {
				return Action{Kind: KindUnknown}
			}
			return Action{Kind: p.kind, ID: uint(id)}
		}
	}

	if strings.HasPrefix(data, prefixSetPriority) {
		return Action{Kind: KindSetPriority, Arg: strings.TrimPrefix(data, prefixSetPriority)}
	}

	return Action{Kind: KindUnknown}
}

// SelectUser 选择执行人
func SelectUser(userID uint) string { return prefixSelectUser + itoa(userID) }

// SelectNoPerson 选择未分配哨兵
func SelectNoPerson() string { return dataSelectNoPerson }

// Cancel 取消当前向导
func Cancel() string { return dataCancel }

// MainMenu 返回主菜单
func MainMenu() string { return dataMainMenu }

// ConfirmAM 歧义小时确认为上午
func ConfirmAM() string { return dataConfirmAM }

// ConfirmPM 歧义小时确认为下午
func ConfirmPM() string { return dataConfirmPM }

// SetPriority 设置优先级,value 为 high/medium/low
func SetPriority(value string) string { return prefixSetPriority + value }

// SkipPriority 跳过优先级
func SkipPriority() string { return dataSkipPriority }

// SelectProject 选择项目
func SelectProject(projectID uint) string { return prefixSelectProject + itoa(projectID) }

// SkipProject 跳过项目
func SkipProject() string { return dataSkipProject }

// ConfirmCreate 确认创建任务
func ConfirmCreate() string { return dataConfirmCreate }

// EditDescription 返回修改描述
func EditDescription() string { return dataEditDescription }

// EditDueDate 返回修改截止日期
func EditDueDate() string { return dataEditDueDate }

// EditPriority 返回修改优先级
func EditPriority() string { return dataEditPriority }

// EditProject 返回修改项目
func EditProject() string { return dataEditProject }

// CompleteTask 选择要完成的任务
func CompleteTask(taskID uint) string { return prefixCompleteTask + itoa(taskID) }

// AddReply 添加完成备注
func AddReply() string { return dataAddReply }

// SkipReply 跳过完成备注
func SkipReply() string { return dataSkipReply }

// EditReply 修改完成备注
func EditReply() string { return dataEditReply }

// ConfirmComplete 确认提交完成
func ConfirmComplete() string { return dataConfirmComplete }

// BackToTasks 返回任务列表
func BackToTasks() string { return dataBackToTasks }

// ApproveCreation 批准任务创建
func ApproveCreation(taskID uint) string { return prefixApproveCreation + itoa(taskID) }

// RejectCreation 拒绝任务创建
func RejectCreation(taskID uint) string { return prefixRejectCreation + itoa(taskID) }

// ApproveCompletion 批准任务完成
func ApproveCompletion(taskID uint) string { return prefixApproveComplete + itoa(taskID) }

// RejectCompletion 拒绝任务完成
func RejectCompletion(taskID uint) string { return prefixRejectComplete + itoa(taskID) }

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}
