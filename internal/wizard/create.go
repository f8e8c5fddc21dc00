package wizard

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/service"
)

const (
	descriptionPrompt = "Enter the task description. You can put the due date on the last line:\n\nExample:\nPrepare the project report\n15 3:00pm"
	dueDatePrompt     = "When is this task due?\n\nExamples:\n- 20 dec 5:30pm\n- dec 20 5:30pm\n- 20 12 5:30pm\n- 5 5:00pm\n- 6:00pm (today)\n- 15 (the 15th, end of day)"

	dueDateRequiredPrompt  = "⚠️ Due date is required. " + dueDatePrompt
	pastDuePrompt          = "⚠️ Due date cannot be in the past. Please send a future date and time:"
	missingDescriptionText = "⚠️ Missing task description. Please send both the description and the due date.\n\nExample:\nPrepare the project report\n15 3:00pm"
)

// StartCreate 开启创建向导
// 有管理能力的用户先选执行人,普通员工直接给自己建任务。
func (e *Engine) StartCreate(chatID int64, actor *model.User) Prompt {
	caps := model.CapabilitiesFor(actor.Role)
	if !caps.CanAssign() {
		s := e.sessions.Begin(chatID, FlowCreate, StepDescription)
		s.EmployeeID = actor.ID
		s.EmployeeName = actor.DisplayName()
		return Prompt{Text: descriptionPrompt}
	}

	p, ok := e.selectEmployeePrompt()
	if !ok {
		return Prompt{Text: "Something went wrong. Please try again.", Done: true}
	}
	e.sessions.Begin(chatID, FlowCreate, StepSelectEmployee)
	return p
}

// selectEmployeePrompt 执行人选择键盘
func (e *Engine) selectEmployeePrompt() (Prompt, bool) {
	users, err := e.users.ListAssignable()
	if err != nil {
		e.log.WithError(err).Error("failed to list assignable users")
		return Prompt{}, false
	}
	buttons := make([][]notify.Button, 0, len(users)+2)
	for _, u := range users {
		buttons = append(buttons, notify.Row(notify.Btn(u.DisplayName(), callback.SelectUser(u.ID))))
	}
	buttons = append(buttons,
		notify.Row(notify.Btn("🚫 No Person", callback.SelectNoPerson())),
		notify.Row(notify.Btn("❌ Cancel", callback.Cancel())),
	)
	return Prompt{Text: "Who is this task for?", Buttons: buttons}, true
}

// handleCreate 创建向导的步骤分发
func (e *Engine) handleCreate(s *Session, actor *model.User, caps model.Capabilities, in Input) Prompt {
	switch s.Step {
	case StepSelectEmployee:
		return e.createSelectEmployee(s, caps, in)
	case StepDescription:
		return e.createDescription(s, in)
	case StepDueDate:
		return e.createDueDate(s, in)
	case StepClarifyMeridiem:
		return e.createClarifyMeridiem(s, in)
	case StepPriority:
		return e.createPriority(s, in)
	case StepProject:
		return e.createProject(s, in)
	case StepConfirmCreate:
		return e.createConfirm(s, actor, in)
	}
	return silent()
}

// createSelectEmployee 处理执行人选择
func (e *Engine) createSelectEmployee(s *Session, caps model.Capabilities, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindSelectUser:
		user, err := e.users.ListAssignable()
		if err != nil {
			e.log.WithError(err).Error("failed to list assignable users")
			return noticeOnly("Something went wrong.")
		}
		for _, u := range user {
			if u.ID == in.Action.ID {
				s.EmployeeID = u.ID
				s.EmployeeName = u.DisplayName()
				s.Step = StepDescription
				return Prompt{Text: descriptionPrompt}
			}
		}
		return noticeOnly("That user is no longer available.")
	case callback.KindSelectNoPerson:
		s.EmployeeID = 0
		s.EmployeeName = "No Person"
		s.NoPerson = true
		s.Step = StepDescription
		return Prompt{Text: descriptionPrompt}
	}
	return silent()
}

// createDescription 捕获任务描述,末行可以带截止日期
// 多行输入时最后一行先按日期试解析,解析成功则其余行是描述;
// 解析失败则整段都是描述,之后只补问日期。单独发一个日期会被拒绝。
func (e *Engine) createDescription(s *Session, in Input) Prompt {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		if in.Action != nil {
			return silent()
		}
		return Prompt{Text: descriptionPrompt}
	}

	if s.Editing {
		if utf8.RuneCountInString(text) < model.MinDescriptionLen {
			return shortDescriptionPrompt()
		}
		s.Description = text
		return e.createSummary(s)
	}

	lines := splitLines(text)
	if len(lines) == 1 {
		if r := dateparse.Parse(lines[0], e.now()); r.Valid {
			return Prompt{Text: missingDescriptionText}
		}
		if utf8.RuneCountInString(lines[0]) < model.MinDescriptionLen {
			return shortDescriptionPrompt()
		}
		s.Description = lines[0]
		return e.afterDescription(s)
	}

	last := lines[len(lines)-1]
	r := dateparse.Parse(last, e.now())
	if !r.Valid {
		joined := strings.Join(lines, "\n")
		if utf8.RuneCountInString(joined) < model.MinDescriptionLen {
			return shortDescriptionPrompt()
		}
		s.Description = joined
		return e.afterDescription(s)
	}

	desc := strings.Join(lines[:len(lines)-1], "\n")
	if utf8.RuneCountInString(desc) < model.MinDescriptionLen {
		// 日期已经解析出来,先存下,只补问一次描述
		s.DueDate = r.Date
		s.HasDueTime = r.HasTimeComponent
		if r.NeedsClarification {
			s.AmbiguousHour = r.AmbiguousHour
		}
		return shortDescriptionPrompt()
	}
	s.Description = desc
	return e.acceptDueDate(s, r)
}

// afterDescription 描述就位后的去向
// 同一条消息里可能已经带出截止日期,缺了才补问。
func (e *Engine) afterDescription(s *Session) Prompt {
	if s.DueDate.IsZero() {
		s.Step = StepDueDate
		return Prompt{Text: dueDateRequiredPrompt}
	}
	if s.AmbiguousHour != 0 {
		s.Step = StepClarifyMeridiem
		return clarifyPrompt(s.AmbiguousHour, s.DueDate.Minute())
	}
	if !s.DueDate.After(e.now()) {
		s.DueDate = time.Time{}
		s.HasDueTime = false
		s.Step = StepDueDate
		return Prompt{Text: pastDuePrompt}
	}
	return e.afterDueDate(s)
}

// createDueDate 解析截止日期输入
func (e *Engine) createDueDate(s *Session, in Input) Prompt {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return silent()
	}
	r := dateparse.Parse(text, e.now())
	if !r.Valid {
		return Prompt{Text: r.Err}
	}
	return e.acceptDueDate(s, r)
}

// acceptDueDate 落定解析出的截止时间
// 歧义小时先去确认 AM/PM,已经过去的时间要求重发。
func (e *Engine) acceptDueDate(s *Session, r dateparse.Result) Prompt {
	if r.NeedsClarification {
		s.DueDate = r.Date
		s.HasDueTime = true
		s.AmbiguousHour = r.AmbiguousHour
		s.Step = StepClarifyMeridiem
		return clarifyPrompt(r.AmbiguousHour, r.Date.Minute())
	}
	if !r.Date.After(e.now()) {
		s.Step = StepDueDate
		return Prompt{Text: pastDuePrompt}
	}
	s.DueDate = r.Date
	s.HasDueTime = r.HasTimeComponent
	return e.afterDueDate(s)
}

func clarifyPrompt(hour, minute int) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Is %d:%02d in the morning or afternoon?", hour, minute),
		Buttons: [][]notify.Button{notify.Row(
			notify.Btn("🌅 AM", callback.ConfirmAM()),
			notify.Btn("🌇 PM", callback.ConfirmPM()),
		)},
	}
}

func shortDescriptionPrompt() Prompt {
	return Prompt{Text: fmt.Sprintf("Description must be at least %d characters. Try again:", model.MinDescriptionLen)}
}

// splitLines 按行切分并丢掉空行
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// createClarifyMeridiem 处理歧义小时的 AM/PM 确认
func (e *Engine) createClarifyMeridiem(s *Session, in Input) Prompt {
	if in.Action == nil {
		return Prompt{Text: "Please choose AM or PM using the buttons above."}
	}
	switch in.Action.Kind {
	case callback.KindConfirmAM:
		s.DueDate = dateparse.ApplyMeridiem(s.DueDate, s.AmbiguousHour, false)
	case callback.KindConfirmPM:
		s.DueDate = dateparse.ApplyMeridiem(s.DueDate, s.AmbiguousHour, true)
	default:
		return silent()
	}
	s.HasDueTime = true
	s.AmbiguousHour = 0
	if !s.DueDate.After(e.now()) {
		s.DueDate = time.Time{}
		s.HasDueTime = false
		s.Step = StepDueDate
		return Prompt{Text: pastDuePrompt}
	}
	return e.afterDueDate(s)
}

// afterDueDate 截止日期确定后的下一步
func (e *Engine) afterDueDate(s *Session) Prompt {
	if s.Editing {
		return e.createSummary(s)
	}
	s.Step = StepPriority
	return e.priorityPrompt()
}

// priorityPrompt 优先级选择提示
func (e *Engine) priorityPrompt() Prompt {
	return Prompt{
		Text: "Set a priority?",
		Buttons: [][]notify.Button{
			notify.Row(
				notify.Btn("🔴 High", callback.SetPriority("high")),
				notify.Btn("🟡 Medium", callback.SetPriority("medium")),
				notify.Btn("🟢 Low", callback.SetPriority("low")),
			),
			notify.Row(notify.Btn("⏭ Skip", callback.SkipPriority())),
		},
	}
}

// createPriority 处理优先级选择
func (e *Engine) createPriority(s *Session, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindSetPriority:
		switch in.Action.Arg {
		case "high":
			s.Priority = model.PriorityHigh
		case "medium":
			s.Priority = model.PriorityMedium
		case "low":
			s.Priority = model.PriorityLow
		default:
			return silent()
		}
	case callback.KindSkipPriority:
		s.Priority = ""
	default:
		return silent()
	}
	if s.Editing {
		return e.createSummary(s)
	}
	return e.projectStep(s)
}

// projectStep 进入项目选择,没有活跃项目时直接跳到确认页
func (e *Engine) projectStep(s *Session) Prompt {
	projects, err := e.projects.FindActive()
	if err != nil {
		e.log.WithError(err).Error("failed to list projects")
		projects = nil
	}
	if len(projects) == 0 {
		return e.createSummary(s)
	}
	s.Step = StepProject
	buttons := make([][]notify.Button, 0, len(projects)+1)
	for _, p := range projects {
		buttons = append(buttons, notify.Row(notify.Btn(p.Name, callback.SelectProject(p.ID))))
	}
	buttons = append(buttons, notify.Row(notify.Btn("⏭ Skip", callback.SkipProject())))
	return Prompt{Text: "Attach to a project?", Buttons: buttons}
}

// createProject 处理项目选择
func (e *Engine) createProject(s *Session, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindSelectProject:
		project, err := e.projects.FindByID(in.Action.ID)
		if err != nil || !project.Active() {
			return noticeOnly("That project is no longer available.")
		}
		id := project.ID
		s.ProjectID = &id
		s.ProjectName = project.Name
	case callback.KindSkipProject:
		s.ProjectID = nil
		s.ProjectName = ""
	default:
		return silent()
	}
	return e.createSummary(s)
}

// createSummary 渲染确认页
func (e *Engine) createSummary(s *Session) Prompt {
	s.Step = StepConfirmCreate
	s.Editing = false

	var b strings.Builder
	b.WriteString("📋 Review your task:\n\n")
	fmt.Fprintf(&b, "Assignee: %s\n", s.EmployeeName)
	fmt.Fprintf(&b, "Description: %s\n", s.Description)
	fmt.Fprintf(&b, "Due: %s\n", dateparse.Format(s.DueDate, s.HasDueTime))
	if s.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", s.Priority)
	}
	if s.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", s.ProjectName)
	}

	return Prompt{
		Text: b.String(),
		Buttons: [][]notify.Button{
			notify.Row(notify.Btn("✅ Create task", callback.ConfirmCreate())),
			notify.Row(
				notify.Btn("✏️ Description", callback.EditDescription()),
				notify.Btn("📅 Due date", callback.EditDueDate()),
			),
			notify.Row(
				notify.Btn("⚡ Priority", callback.EditPriority()),
				notify.Btn("📁 Project", callback.EditProject()),
			),
			notify.Row(notify.Btn("❌ Cancel", callback.Cancel())),
		},
	}
}

// createConfirm 处理确认页上的按钮
func (e *Engine) createConfirm(s *Session, actor *model.User, in Input) Prompt {
	if in.Action == nil {
		return silent()
	}
	switch in.Action.Kind {
	case callback.KindConfirmCreate:
		if s.DueDate.IsZero() {
			s.Step = StepDueDate
			return Prompt{Text: dueDateRequiredPrompt}
		}
		return e.commitCreate(s, actor)
	case callback.KindEditDescription:
		s.Editing = true
		s.Step = StepDescription
		return Prompt{Text: "Enter the new description:"}
	case callback.KindEditDueDate:
		s.Editing = true
		s.Step = StepDueDate
		return Prompt{Text: dueDatePrompt}
	case callback.KindEditPriority:
		s.Editing = true
		s.Step = StepPriority
		return e.priorityPrompt()
	case callback.KindEditProject:
		s.Editing = true
		return e.projectStep(s)
	}
	return silent()
}

// createBack 创建向导回退一步,已收集的字段全部保留
// 从入口步骤再退才整个退出;编辑路上退一步是回到确认页。
func (e *Engine) createBack(s *Session) Prompt {
	if s.Editing {
		s.Editing = false
		return e.createSummary(s)
	}
	if s.Step == s.initial {
		e.sessions.Evict(s.ChatID)
		return Prompt{Text: "Cancelled.", Done: true}
	}
	switch s.Step {
	case StepDescription:
		p, ok := e.selectEmployeePrompt()
		if !ok {
			return noticeOnly("Something went wrong.")
		}
		s.Step = StepSelectEmployee
		return p
	case StepDueDate, StepClarifyMeridiem:
		s.AmbiguousHour = 0
		s.Step = StepDescription
		return Prompt{Text: descriptionPrompt}
	case StepPriority:
		s.Step = StepDueDate
		return Prompt{Text: dueDatePrompt}
	case StepProject:
		s.Step = StepPriority
		return e.priorityPrompt()
	case StepConfirmCreate:
		p := e.projectStep(s)
		if s.Step == StepConfirmCreate {
			// 没有可选项目,项目步被跳过,再退一格到优先级
			s.Step = StepPriority
			return e.priorityPrompt()
		}
		return p
	}
	e.sessions.Evict(s.ChatID)
	return Prompt{Text: "Cancelled.", Done: true}
}

// commitCreate 提交任务创建并结束向导
func (e *Engine) commitCreate(s *Session, actor *model.User) Prompt {
	req := &service.CreateTaskRequest{
		Description: s.Description,
		Creator:     actor,
		EmployeeID:  s.EmployeeID,
		DueDate:     s.DueDate,
		HasDueTime:  s.HasDueTime,
		Priority:    s.Priority,
		ProjectID:   s.ProjectID,
	}
	task, outcome, err := e.tasks.Create(req)
	if err != nil {
		e.log.WithError(err).Error("failed to create task")
		return Prompt{Text: "Could not create the task. Please try again.", Done: true}
	}
	e.sessions.Evict(s.ChatID)

	switch {
	case outcome.AwaitingApproval:
		return Prompt{Text: "📨 Task sent to your manager for approval.", Done: true}
	case outcome.AutoApproved:
		return Prompt{Text: fmt.Sprintf("✅ Task #%d created. No manager was available, so it was approved automatically.", task.ID), Done: true}
	default:
		return Prompt{Text: fmt.Sprintf("✅ Task #%d created.", task.ID), Done: true}
	}
}
