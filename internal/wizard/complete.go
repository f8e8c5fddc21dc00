package wizard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

const (
	// MinReplyLen 完成备注最小长度
	MinReplyLen = 3
	// MaxReplyLen 完成备注最大长度
	MaxReplyLen = 500
)

// taskLabelLen 任务按钮里描述的截断长度
const taskLabelLen = 30

// StartComplete 开启完成向导,列出执行人可标记完成的任务
func (e *Engine) StartComplete(chatID int64, actor *model.User) Prompt {
	tasks, err := e.tasks.ListCompletable(actor.ID)
	if err != nil {
		e.log.WithError(err).Error("failed to list completable tasks")
		return Prompt{Text: "Something went wrong. Please try again.", Done: true}
	}
	if len(tasks) == 0 {
		return Prompt{Text: "You have no tasks to complete. 🎉", Done: true}
	}

	e.sessions.Begin(chatID, FlowComplete, StepSelectTask)
	return taskListPrompt(tasks)
}

// taskListPrompt 渲染可完成任务列表
func taskListPrompt(tasks []*model.Task) Prompt {
	buttons := make([][]notify.Button, 0, len(tasks)+1)
	for _, t := range tasks {
		label := fmt.Sprintf("%s (%s)", truncate(t.Description, taskLabelLen), dateparse.FormatShort(t.DueDate))
		if t.Status == model.StatusOverdue {
			label = "⚠️ " + label
		}
		buttons = append(buttons, notify.Row(notify.Btn(label, callback.CompleteTask(t.ID))))
	}
	buttons = append(buttons, notify.Row(notify.Btn("❌ Cancel", callback.Cancel())))
	return Prompt{Text: "Which task did you complete?", Buttons: buttons}
}

// handleComplete 完成向导的步骤分发
func (e *Engine) handleComplete(s *Session, actor *model.User, in Input) Prompt {
	switch s.Step {
	case StepSelectTask:
		return e.completeSelectTask(s, actor, in)
	case StepReplyChoice:
		return e.completeReplyChoice(s, in)
	case StepReplyText:
		return e.completeReplyText(s, in)
	case StepConfirmComplete:
		return e.completeConfirm(s, actor, in)
	}
	return silent()
}

// completeSelectTask 处理任务选择
func (e *Engine) completeSelectTask(s *Session, actor *model.User, in Input) Prompt {
	if in.Action == nil || in.Action.Kind != callback.KindCompleteTask {
		return silent()
	}
	task, err := e.tasks.Get(in.Action.ID)
	if err != nil || task.EmployeeID != actor.ID {
		return noticeOnly("That task is no longer available.")
	}
	if task.Status != model.StatusPending && task.Status != model.StatusOverdue {
		return noticeOnly("That task is not open anymore.")
	}

	s.TaskID = task.ID
	s.Step = StepReplyChoice
	return Prompt{
		Text: fmt.Sprintf("Completing:\n%s\n\nAdd a reply for your manager?", task.Description),
		Buttons: [][]notify.Button{notify.Row(
			notify.Btn("💬 Add reply", callback.AddReply()),
			notify.Btn("⏭ Skip", callback.SkipReply()),
		)},
	}
}

// completeReplyChoice 处理是否添加完成备注
func (e *Engine) completeReplyChoice(s *Session, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindAddReply:
		s.Step = StepReplyText
		return Prompt{Text: fmt.Sprintf("Type your reply (%d-%d characters):", MinReplyLen, MaxReplyLen)}
	case callback.KindSkipReply:
		s.Reply = ""
		return e.completeSummary(s)
	}
	return silent()
}

// completeReplyText 捕获完成备注文本
func (e *Engine) completeReplyText(s *Session, in Input) Prompt {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Action != nil {
		return silent()
	}
	if n := utf8.RuneCountInString(text); n < MinReplyLen || n > MaxReplyLen {
		return Prompt{Text: fmt.Sprintf("Reply must be %d-%d characters. Try again:", MinReplyLen, MaxReplyLen)}
	}
	s.Reply = text
	return e.completeSummary(s)
}

// completeSummary 渲染完成确认页
func (e *Engine) completeSummary(s *Session) Prompt {
	s.Step = StepConfirmComplete

	task, err := e.tasks.Get(s.TaskID)
	if err != nil {
		e.sessions.Evict(s.ChatID)
		return Prompt{Text: "That task is no longer available.", Done: true}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mark as completed?\n\n%s\n", task.Description)
	if s.Reply != "" {
		fmt.Fprintf(&b, "Reply: %s\n", s.Reply)
	}

	return Prompt{
		Text: b.String(),
		Buttons: [][]notify.Button{
			notify.Row(notify.Btn("✅ Confirm", callback.ConfirmComplete())),
			notify.Row(
				notify.Btn("✏️ Edit reply", callback.EditReply()),
				notify.Btn("⬅️ Back", callback.BackToTasks()),
			),
		},
	}
}

// completeConfirm 处理完成确认页上的按钮
func (e *Engine) completeConfirm(s *Session, actor *model.User, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindConfirmComplete:
		return e.commitComplete(s, actor)
	case callback.KindEditReply:
		s.Step = StepReplyText
		return Prompt{Text: fmt.Sprintf("Type your reply (%d-%d characters):", MinReplyLen, MaxReplyLen)}
	case callback.KindBackToTasks:
		tasks, err := e.tasks.ListCompletable(actor.ID)
		if err != nil || len(tasks) == 0 {
			e.sessions.Evict(s.ChatID)
			return Prompt{Text: "You have no tasks to complete. 🎉", Done: true}
		}
		s.Step = StepSelectTask
		s.TaskID = 0
		s.Reply = ""
		return taskListPrompt(tasks)
	}
	return silent()
}

// commitComplete 提交完成申请并结束向导
func (e *Engine) commitComplete(s *Session, actor *model.User) Prompt {
	task, outcome, err := e.tasks.RequestCompletion(s.TaskID, actor, s.Reply)
	if err != nil {
		e.sessions.Evict(s.ChatID)
		if errors.Is(err, service.ErrAlreadyResolved) {
			return Prompt{Text: "This task is already awaiting approval.", Done: true}
		}
		e.log.WithError(err).Error("failed to request completion")
		return Prompt{Text: "Could not complete the task. Please try again.", Done: true}
	}
	e.sessions.Evict(s.ChatID)

	switch {
	case outcome.Completed && outcome.AutoApproved:
		return Prompt{Text: fmt.Sprintf("✅ Task #%d completed. No manager was available, so it was approved automatically.", task.ID), Done: true}
	case outcome.Completed:
		return Prompt{Text: fmt.Sprintf("✅ Task #%d completed.", task.ID), Done: true}
	default:
		return Prompt{Text: "📨 Completion sent to your manager for approval.", Done: true}
	}
}

// truncate 截断按钮文案,按符文计数避免拆坏多字节字符
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
