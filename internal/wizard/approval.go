package wizard

import (
	"errors"
	"fmt"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

// handleApproval 处理审批按钮
// 审批不依赖向导会话,按钮可能在消息里放了很久才被按下。
// 第一个裁决胜出,之后的重复点击得到已处理提示。
func (e *Engine) handleApproval(actor *model.User, act callback.Action) Prompt {
	caps := model.CapabilitiesFor(actor.Role)
	if !caps.CanAssign() {
		return noticeOnly("Only managers can approve tasks.")
	}

	var (
		task *model.Task
		err  error
		verb string
	)
	switch act.Kind {
	case callback.KindApproveCreation:
		task, err = e.tasks.ApproveCreation(act.ID, actor)
		verb = "approved"
	case callback.KindRejectCreation:
		task, err = e.tasks.RejectCreation(act.ID, actor)
		verb = "rejected"
	case callback.KindApproveCompletion:
		task, err = e.tasks.ApproveCompletion(act.ID, actor)
		verb = "approved"
	case callback.KindRejectCompletion:
		task, err = e.tasks.RejectCompletion(act.ID, actor)
		verb = "rejected"
	default:
		return silent()
	}

	if err != nil {
		if errors.Is(err, service.ErrAlreadyResolved) {
			return noticeOnly("This request was already handled.")
		}
		if errors.Is(err, service.ErrTaskNotFound) {
			return noticeOnly("This task no longer exists.")
		}
		e.log.WithError(err).WithField("task_id", act.ID).Error("approval action failed")
		return noticeOnly("Something went wrong.")
	}

	return Prompt{
		Text: fmt.Sprintf("You %s:\n%s", verb, task.Description),
		Done: true,
	}
}
