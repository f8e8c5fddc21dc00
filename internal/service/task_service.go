package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PFEPLTechHub/telegram-task/internal/approval"
	"github.com/PFEPLTechHub/telegram-task/internal/callback"
	"github.com/PFEPLTechHub/telegram-task/internal/dateparse"
	"github.com/PFEPLTechHub/telegram-task/internal/metrics"
	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"github.com/PFEPLTechHub/telegram-task/internal/notify"
	"github.com/PFEPLTechHub/telegram-task/internal/repository"
)

// ErrTaskNotFound 任务不存在
var ErrTaskNotFound = errors.New("task not found")

// ErrAlreadyResolved 操作指向的审批已被处理过
var ErrAlreadyResolved = repository.ErrAlreadyResolved

// ErrNotCompletable 任务不在可完成状态
var ErrNotCompletable = errors.New("task is not completable")

// TaskService 任务服务接口
type TaskService interface {
	Create(req *CreateTaskRequest) (*model.Task, *CreationOutcome, error)
	Get(id uint) (*model.Task, error)
	ListByFilter(filter *repository.TaskFilter) ([]*model.Task, error)
	ListForEmployee(employeeID uint) ([]*model.Task, error)
	ListCompletable(employeeID uint) ([]*model.Task, error)
	ApproveCreation(taskID uint, approver *model.User) (*model.Task, error)
	RejectCreation(taskID uint, approver *model.User) (*model.Task, error)
	RequestCompletion(taskID uint, actor *model.User, reply string) (*model.Task, *CompletionOutcome, error)
	ApproveCompletion(taskID uint, approver *model.User) (*model.Task, error)
	RejectCompletion(taskID uint, approver *model.User) (*model.Task, error)
	Assign(taskID, employeeID uint, actor *model.User) (*model.Task, error)
	AddCc(taskID uint, actor *model.User, userIDs []uint) error
	CcUsers(taskID uint) ([]*model.User, error)
	SweepOverdue(now time.Time) (int64, error)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Description string
	Creator     *model.User
	EmployeeID  uint // 0 表示指派给未分配哨兵
	DueDate     time.Time
	HasDueTime  bool
	Priority    model.Priority
	ProjectID   *uint
}

// CreationOutcome 创建后的审批去向
// AwaitingApproval 为 true 时 ApproverChatID 指向收到请求的审批人;
// AutoApproved 表示无可达审批人,任务已自动转入待办。
type CreationOutcome struct {
	AwaitingApproval bool
	AutoApproved     bool
	ApproverChatID   int64
}

// CompletionOutcome 完成申请的审批去向
type CompletionOutcome struct {
	Completed        bool // 已直接完成(免审批或自动通过)
	AutoApproved     bool
	AwaitingApproval bool
	ApproverChatID   int64
}

// taskService 任务服务实现
type taskService struct {
	tasks     repository.TaskRepository
	users     repository.UserRepository
	projects  repository.ProjectRepository
	reminders repository.ReminderRepository
	notifier  notify.Notifier
	log       *logrus.Logger
	now       func() time.Time
}

// NewTaskService 创建任务服务
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository,
	projects repository.ProjectRepository, reminders repository.ReminderRepository,
	notifier notify.Notifier, log *logrus.Logger) TaskService {
	return &taskService{
		tasks:     tasks,
		users:     users,
		projects:  projects,
		reminders: reminders,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// Create 创建任务并决定初始状态
// 管理员与经理的任务直接进入待办,员工自建任务进入审批链。
func (s *taskService) Create(req *CreateTaskRequest) (*model.Task, *CreationOutcome, error) {
	employee, err := s.resolveEmployee(req.EmployeeID)
	if err != nil {
		return nil, nil, err
	}

	caps := model.CapabilitiesFor(req.Creator.Role)
	selfAssigned := employee.ID == req.Creator.ID
	status := approval.DecideInitialStatus(caps, employee.Role, selfAssigned)

	task := &model.Task{
		Description: req.Description,
		EmployeeID:  employee.ID,
		AssignedBy:  req.Creator.ID,
		DueDate:     req.DueDate,
		HasDueTime:  req.HasDueTime,
		Status:      status,
		Priority:    req.Priority,
		ProjectID:   req.ProjectID,
	}
	if err := task.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, nil, fmt.Errorf("failed to create task: %w", err)
	}
	metrics.RecordTaskCreated()

	// 预建提醒行,失败不阻断创建,调度器会按需补齐
	if err := s.reminders.CreateForTask(task.ID); err != nil {
		s.log.WithError(err).WithField("task_id", task.ID).Warn("failed to create reminder rows")
	}

	outcome := &CreationOutcome{}
	if status == model.StatusPendingApproval {
		result := s.routeChain(req.Creator, s.creationRequestMessage(task, req.Creator))
		if result.Outcome == approval.OutcomeAutoApproved {
			approverID := model.AutoApproverID
			task, err = s.tasks.TransitionStatus(task.ID, model.StatusPendingApproval, model.StatusPending,
				func(t *model.Task) { t.ApprovedBy = &approverID })
			if err != nil {
				return nil, nil, err
			}
			metrics.RecordApproval("auto_approve")
			outcome.AutoApproved = true
		} else {
			outcome.AwaitingApproval = true
			outcome.ApproverChatID = result.ApproverChatID
		}
	} else {
		s.notifyAssignment(task, req.Creator, employee)
	}

	s.log.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"status":   task.Status,
		"employee": employee.ID,
		"creator":  req.Creator.ID,
	}).Info("task created")

	return task, outcome, nil
}

// Get 获取任务详情
func (s *taskService) Get(id uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByFilter 按过滤器查询任务
func (s *taskService) ListByFilter(filter *repository.TaskFilter) ([]*model.Task, error) {
	return s.tasks.FindByFilter(filter)
}

// ListForEmployee 查询某执行人的全部任务
func (s *taskService) ListForEmployee(employeeID uint) ([]*model.Task, error) {
	return s.tasks.FindByEmployee(employeeID)
}

// ListCompletable 查询某执行人可标记完成的任务
func (s *taskService) ListCompletable(employeeID uint) ([]*model.Task, error) {
	return s.tasks.FindPendingForEmployee(employeeID)
}

// ApproveCreation 批准任务创建,幂等
// 重复裁决返回 ErrAlreadyResolved,第一个裁决胜出。
func (s *taskService) ApproveCreation(taskID uint, approver *model.User) (*model.Task, error) {
	current, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if current.CompletionRequested {
		return nil, ErrAlreadyResolved
	}

	approverID := int64(approver.ID)
	task, err := s.tasks.TransitionStatus(taskID, model.StatusPendingApproval, model.StatusPending,
		func(t *model.Task) { t.ApprovedBy = &approverID })
	if err != nil {
		return nil, err
	}
	metrics.RecordApproval("approve")

	s.notifyRequester(task, fmt.Sprintf("✅ %s approved your task:\n%s", approver.DisplayName(), task.Description))
	return task, nil
}

// RejectCreation 拒绝任务创建,幂等
func (s *taskService) RejectCreation(taskID uint, approver *model.User) (*model.Task, error) {
	current, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if current.CompletionRequested {
		return nil, ErrAlreadyResolved
	}

	approverID := int64(approver.ID)
	task, err := s.tasks.TransitionStatus(taskID, model.StatusPendingApproval, model.StatusRejected,
		func(t *model.Task) { t.ApprovedBy = &approverID })
	if err != nil {
		return nil, err
	}
	metrics.RecordApproval("reject")

	s.notifyRequester(task, fmt.Sprintf("❌ %s rejected your task:\n%s", approver.DisplayName(), task.Description))
	return task, nil
}

// RequestCompletion 提交完成申请
// 经理完成自己派给自己的任务免审批;否则走审批链,无审批人时自动通过。
func (s *taskService) RequestCompletion(taskID uint, actor *model.User, reply string) (*model.Task, *CompletionOutcome, error) {
	task, err := s.Get(taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.EmployeeID != actor.ID {
		return nil, nil, ErrNotCompletable
	}
	from := task.Status
	if from != model.StatusPending && from != model.StatusOverdue {
		if from == model.StatusPendingApproval && task.CompletionRequested {
			return nil, nil, ErrAlreadyResolved
		}
		return nil, nil, ErrNotCompletable
	}

	caps := model.CapabilitiesFor(actor.Role)
	outcome := &CompletionOutcome{}

	if approval.CompletionBypass(caps, actor.ID, task.EmployeeID, task.AssignedBy) {
		approverID := int64(actor.ID)
		now := s.now()
		task, err = s.tasks.TransitionStatus(taskID, from, model.StatusCompleted, func(t *model.Task) {
			t.ApprovedBy = &approverID
			t.CompletedAt = &now
			t.CompletionReply = reply
		})
		if err != nil {
			return nil, nil, err
		}
		outcome.Completed = true
		s.notifyCcUsers(task, fmt.Sprintf("✔️ Task completed:\n%s", task.Description))
		return task, outcome, nil
	}

	result := s.routeChain(actor, s.completionRequestMessage(task, actor, reply))
	if result.Outcome == approval.OutcomeAutoApproved {
		approverID := model.AutoApproverID
		now := s.now()
		task, err = s.tasks.TransitionStatus(taskID, from, model.StatusCompleted, func(t *model.Task) {
			t.ApprovedBy = &approverID
			t.CompletedAt = &now
			t.CompletionReply = reply
		})
		if err != nil {
			return nil, nil, err
		}
		metrics.RecordApproval("auto_approve")
		outcome.Completed = true
		outcome.AutoApproved = true
		s.notifyCcUsers(task, fmt.Sprintf("✔️ Task completed:\n%s", task.Description))
		return task, outcome, nil
	}

	task, err = s.tasks.TransitionStatus(taskID, from, model.StatusPendingApproval, func(t *model.Task) {
		t.CompletionReply = reply
		t.CompletionRequested = true
	})
	if err != nil {
		return nil, nil, err
	}
	outcome.AwaitingApproval = true
	outcome.ApproverChatID = result.ApproverChatID
	return task, outcome, nil
}

// ApproveCompletion 批准完成申请,幂等
func (s *taskService) ApproveCompletion(taskID uint, approver *model.User) (*model.Task, error) {
	current, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusPendingApproval && !current.CompletionRequested {
		return nil, ErrAlreadyResolved
	}

	approverID := int64(approver.ID)
	now := s.now()
	task, err := s.tasks.TransitionStatus(taskID, model.StatusPendingApproval, model.StatusCompleted,
		func(t *model.Task) {
			t.ApprovedBy = &approverID
			t.CompletedAt = &now
		})
	if err != nil {
		return nil, err
	}
	metrics.RecordApproval("approve")

	s.notifyEmployee(task, fmt.Sprintf("✅ %s approved completion of:\n%s", approver.DisplayName(), task.Description))
	s.notifyCcUsers(task, fmt.Sprintf("✔️ Task completed:\n%s", task.Description))
	return task, nil
}

// RejectCompletion 驳回完成申请,任务退回待办
func (s *taskService) RejectCompletion(taskID uint, approver *model.User) (*model.Task, error) {
	current, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusPendingApproval && !current.CompletionRequested {
		return nil, ErrAlreadyResolved
	}

	task, err := s.tasks.TransitionStatus(taskID, model.StatusPendingApproval, model.StatusPending,
		func(t *model.Task) {
			t.ApprovedBy = nil
			t.CompletedAt = nil
			t.CompletionReply = ""
			t.CompletionRequested = false
		})
	if err != nil {
		return nil, err
	}
	metrics.RecordApproval("reject")

	s.notifyEmployee(task, fmt.Sprintf("❌ %s rejected completion of:\n%s\nThe task is back in your pending list.",
		approver.DisplayName(), task.Description))
	return task, nil
}

// Assign 重新指派任务并重置为待办
func (s *taskService) Assign(taskID, employeeID uint, actor *model.User) (*model.Task, error) {
	task, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	employee, err := s.users.FindByID(employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}

	task.EmployeeID = employee.ID
	task.Status = model.StatusPending
	task.ApprovedBy = nil
	task.CompletedAt = nil
	task.CompletionReply = ""
	task.CompletionRequested = false
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	s.notifyAssignment(task, actor, employee)
	return task, nil
}

// AddCc 为任务追加抄送人并逐个通知
func (s *taskService) AddCc(taskID uint, actor *model.User, userIDs []uint) error {
	task, err := s.Get(taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.AddCcUsers(taskID, actor.ID, userIDs); err != nil {
		return err
	}

	text := fmt.Sprintf("👀 %s added you as a watcher on:\n%s\nDue: %s",
		actor.DisplayName(), task.Description, dateparse.Format(task.DueDate, task.HasDueTime))
	for _, uid := range userIDs {
		user, err := s.users.FindByID(uid)
		if err != nil || !user.Reachable() {
			continue
		}
		sent := s.notifier.Send(user.TelegramID, notify.Message{Text: text})
		metrics.RecordNotification(sent)
	}
	return nil
}

// CcUsers 查询任务的抄送人
func (s *taskService) CcUsers(taskID uint) ([]*model.User, error) {
	return s.tasks.CcUsers(taskID)
}

// SweepOverdue 把过期待办批量置为逾期,可重复执行
func (s *taskService) SweepOverdue(now time.Time) (int64, error) {
	count, err := s.tasks.SweepOverdue(now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.RecordOverdueSwept(count)
		s.log.WithField("count", count).Info("tasks marked overdue")
	}
	return count, nil
}

// resolveEmployee 解析执行人,0 映射到未分配哨兵用户
func (s *taskService) resolveEmployee(employeeID uint) (*model.User, error) {
	if employeeID == 0 {
		return s.users.EnsureNoPerson()
	}
	user, err := s.users.FindByID(employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return user, nil
}

// routeChain 解析请求人的审批链并投递请求消息
func (s *taskService) routeChain(requester *model.User, msg notify.Message) approval.ChainResult {
	var directChatID int64
	if requester.ManagerID != nil {
		if mgr, err := s.users.FindByID(*requester.ManagerID); err == nil && mgr.Reachable() {
			directChatID = mgr.TelegramID
		}
	}
	managers, err := s.users.FindManagers()
	if err != nil {
		s.log.WithError(err).Error("failed to load managers for approval chain")
		managers = nil
	}

	pool := make([]model.User, 0, len(managers))
	for _, m := range managers {
		pool = append(pool, *m)
	}
	return approval.ResolveChain(directChatID, requester.TelegramID, pool, func(chatID int64) bool {
		sent := s.notifier.Send(chatID, msg)
		metrics.RecordNotification(sent)
		return sent
	})
}

// creationRequestMessage 组装创建审批请求消息
func (s *taskService) creationRequestMessage(task *model.Task, requester *model.User) notify.Message {
	text := fmt.Sprintf("📝 Task approval request\nFrom: %s\nTask: %s\nDue: %s",
		requester.DisplayName(), task.Description, dateparse.Format(task.DueDate, task.HasDueTime))
	return notify.Message{
		Text: text,
		Buttons: [][]notify.Button{notify.Row(
			notify.Btn("✅ Approve", callback.ApproveCreation(task.ID)),
			notify.Btn("❌ Reject", callback.RejectCreation(task.ID)),
		)},
	}
}

// completionRequestMessage 组装完成审批请求消息
func (s *taskService) completionRequestMessage(task *model.Task, actor *model.User, reply string) notify.Message {
	text := fmt.Sprintf("🔍 Completion approval request\nFrom: %s\nTask: %s", actor.DisplayName(), task.Description)
	if reply != "" {
		text += fmt.Sprintf("\nReply: %s", reply)
	}
	return notify.Message{
		Text: text,
		Buttons: [][]notify.Button{notify.Row(
			notify.Btn("✅ Approve", callback.ApproveCompletion(task.ID)),
			notify.Btn("❌ Reject", callback.RejectCompletion(task.ID)),
		)},
	}
}

// notifyAssignment 通知执行人有新任务
func (s *taskService) notifyAssignment(task *model.Task, actor *model.User, employee *model.User) {
	if employee == nil || !employee.Reachable() || employee.ID == actor.ID {
		return
	}
	text := fmt.Sprintf("📋 %s assigned you a task:\n%s\nDue: %s",
		actor.DisplayName(), task.Description, dateparse.Format(task.DueDate, task.HasDueTime))
	sent := s.notifier.Send(employee.TelegramID, notify.Message{Text: text})
	metrics.RecordNotification(sent)
}

// notifyRequester 通知任务创建人
func (s *taskService) notifyRequester(task *model.Task, text string) {
	user, err := s.users.FindByID(task.AssignedBy)
	if err != nil || !user.Reachable() {
		return
	}
	sent := s.notifier.Send(user.TelegramID, notify.Message{Text: text})
	metrics.RecordNotification(sent)
}

// notifyEmployee 通知任务执行人
func (s *taskService) notifyEmployee(task *model.Task, text string) {
	user, err := s.users.FindByID(task.EmployeeID)
	if err != nil || !user.Reachable() {
		return
	}
	sent := s.notifier.Send(user.TelegramID, notify.Message{Text: text})
	metrics.RecordNotification(sent)
}

// notifyCcUsers 向全部抄送人广播状态变更
func (s *taskService) notifyCcUsers(task *model.Task, text string) {
	ccUsers, err := s.tasks.CcUsers(task.ID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", task.ID).Warn("failed to load cc users")
		return
	}
	for _, user := range ccUsers {
		if !user.Reachable() {
			continue
		}
		sent := s.notifier.Send(user.TelegramID, notify.Message{Text: text})
		metrics.RecordNotification(sent)
	}
}
