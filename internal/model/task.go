package model

import (
	"errors"
	"time"
)

// Status 任务状态
type Status string

const (
	// StatusPendingApproval 等待经理审批（员工自建任务或完成申请）
	StatusPendingApproval Status = "pending_approval"
	// StatusPending 已分配,等待完成
	StatusPending Status = "pending"
	// StatusOverdue 已逾期(由定时扫描从 pending 派生,不由用户操作直接设置)
	StatusOverdue Status = "overdue"
	// StatusCompleted 已完成(终态)
	StatusCompleted Status = "completed"
	// StatusRejected 创建申请被拒绝(终态)
	StatusRejected Status = "rejected"
)

// AutoApproverID 自动审批的哨兵审批人 ID
// 当审批链中没有任何经理可达时写入存储层,沿用旧库的魔数约定
const AutoApproverID int64 = -1

// validTransitions 状态转换表,只允许表中列出的边
var validTransitions = map[Status][]Status{
	StatusPendingApproval: {StatusPending, StatusCompleted, StatusRejected},
	StatusPending:         {StatusPendingApproval, StatusOverdue, StatusCompleted},
	StatusOverdue:         {StatusPendingApproval, StatusCompleted},
}

// CanTransition 判断状态转换是否合法
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Priority 任务优先级,可选字段
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ValidPriority 判断优先级取值是否合法
func ValidPriority(p Priority) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// MinDescriptionLen 任务描述最小长度
const MinDescriptionLen = 5

// Task 任务数据模型
type Task struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	EmployeeID      uint       `gorm:"not null;index" json:"employee_id"` // 执行人(可能是 No Person 哨兵用户)
	AssignedBy      uint       `gorm:"not null;index" json:"assigned_by"` // 创建人
	DueDate         time.Time  `gorm:"not null;index" json:"due_date"`
	HasDueTime      bool       `gorm:"not null;default:false" json:"has_due_time"` // 截止日期是否带时分
	Status          Status     `gorm:"type:varchar(32);not null;index" json:"status"`
	Priority        Priority   `gorm:"type:varchar(16)" json:"priority,omitempty"`
	ProjectID       *uint      `gorm:"index" json:"project_id,omitempty"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"` // 审批人用户 ID,自动审批时为 AutoApproverID
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletionReply string     `gorm:"type:text" json:"completion_reply,omitempty"`
	// CompletionRequested 区分 pending_approval 是创建审批还是完成审批
	CompletionRequested bool      `gorm:"not null;default:false" json:"completion_requested"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (t *Task) Validate() error {
	if len(t.Description) < MinDescriptionLen {
		return errors.New("task description must be at least 5 characters")
	}
	if t.AssignedBy == 0 {
		return errors.New("task assigner is required")
	}
	if t.DueDate.IsZero() {
		return errors.New("task due date is required")
	}
	if !t.DueDate.After(time.Now()) {
		return errors.New("task due date must be in the future")
	}
	if t.Status == "" {
		return errors.New("task status is required")
	}
	if t.Priority != "" && !ValidPriority(t.Priority) {
		return errors.New("invalid task priority")
	}
	return nil
}

// IsSelfAssigned 判断是否自建自领任务
func (t *Task) IsSelfAssigned() bool {
	return t.EmployeeID == t.AssignedBy
}

// TaskCc 任务抄送关联,抄送用户在任务状态变化时收到通知
type TaskCc struct {
	ID        uint `gorm:"primaryKey"`
	TaskID    uint `gorm:"not null;uniqueIndex:idx_task_cc_pair"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_task_cc_pair"`
	AddedBy   uint `gorm:"not null"`
	CreatedAt time.Time
}

// TableName 指定表名
func (TaskCc) TableName() string {
	return "task_cc"
}
