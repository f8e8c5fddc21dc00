package repository

import (
	"errors"
	"time"

	"github.com/PFEPLTechHub/telegram-task/internal/model"
	"gorm.io/gorm"
)

// ErrAlreadyResolved 状态迁移时任务已不在期望的起始状态
var ErrAlreadyResolved = errors.New("task already resolved")

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(task *model.Task) error
	Save(task *model.Task) error
	FindByID(id uint) (*model.Task, error)
	FindByEmployee(employeeID uint) ([]*model.Task, error)
	FindByFilter(filter *TaskFilter) ([]*model.Task, error)
	FindPendingForEmployee(employeeID uint) ([]*model.Task, error)
	TransitionStatus(id uint, from, to model.Status, mutate func(*model.Task)) (*model.Task, error)
	SweepOverdue(now time.Time) (int64, error)
	AddCcUsers(taskID, addedBy uint, userIDs []uint) error
	CcUsers(taskID uint) ([]*model.User, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	Status     *model.Status
	EmployeeID *uint
	AssignedBy *uint
	ProjectID  *uint
	DueBefore  *time.Time
	DueAfter   *time.Time
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 新建任务
func (r *taskRepository) Create(task *model.Task) error {
	return r.db.Create(task).Error
}

// Save 保存任务
func (r *taskRepository) Save(task *model.Task) error {
	return r.db.Save(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByEmployee 查找指派给某执行人的全部任务
func (r *taskRepository) FindByEmployee(employeeID uint) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.Where("employee_id = ?", employeeID).
		Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

// FindPendingForEmployee 查找执行人可标记完成的任务,待办与逾期都算
func (r *taskRepository) FindPendingForEmployee(employeeID uint) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.Where("employee_id = ? AND status IN ?", employeeID,
		[]model.Status{model.StatusPending, model.StatusOverdue}).
		Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.Task, error) {
	var tasks []*model.Task
	query := r.db.Model(&model.Task{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.EmployeeID != nil {
			query = query.Where("employee_id = ?", *filter.EmployeeID)
		}
		if filter.AssignedBy != nil {
			query = query.Where("assigned_by = ?", *filter.AssignedBy)
		}
		if filter.ProjectID != nil {
			query = query.Where("project_id = ?", *filter.ProjectID)
		}
		if filter.DueBefore != nil {
			query = query.Where("due_date <= ?", *filter.DueBefore)
		}
		if filter.DueAfter != nil {
			query = query.Where("due_date >= ?", *filter.DueAfter)
		}
	}

	err := query.Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

// TransitionStatus 比较并迁移任务状态
// 用条件更新保证同一裁决只生效一次,起始状态已变时返回
// ErrAlreadyResolved,调用方据此提示重复操作。
func (r *taskRepository) TransitionStatus(id uint, from, to model.Status, mutate func(*model.Task)) (*model.Task, error) {
	if !model.CanTransition(from, to) {
		return nil, ErrAlreadyResolved
	}

	var task model.Task
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	task.Status = to
	if mutate != nil {
		mutate(&task)
	}

	res := r.db.Model(&model.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":               task.Status,
			"approved_by":          task.ApprovedBy,
			"completed_at":         task.CompletedAt,
			"completion_reply":     task.CompletionReply,
			"completion_requested": task.CompletionRequested,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyResolved
	}
	return &task, nil
}

// SweepOverdue 把截止时间已过的待办任务批量置为逾期,返回影响行数
func (r *taskRepository) SweepOverdue(now time.Time) (int64, error) {
	res := r.db.Model(&model.Task{}).
		Where("status = ? AND due_date < ?", model.StatusPending, now).
		Updates(map[string]interface{}{"status": model.StatusOverdue, "updated_at": now})
	return res.RowsAffected, res.Error
}

// AddCcUsers 为任务追加抄送人,重复抄送静默忽略
func (r *taskRepository) AddCcUsers(taskID, addedBy uint, userIDs []uint) error {
	for _, uid := range userIDs {
		cc := model.TaskCc{TaskID: taskID, UserID: uid, AddedBy: addedBy}
		if err := r.db.Where("task_id = ? AND user_id = ?", taskID, uid).
			FirstOrCreate(&cc).Error; err != nil {
			return err
		}
	}
	return nil
}

// CcUsers 查找任务的抄送人列表
func (r *taskRepository) CcUsers(taskID uint) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Model(&model.User{}).
		Joins("JOIN task_cc ON task_cc.user_id = users.id").
		Where("task_cc.task_id = ?", taskID).
		Find(&users).Error
	return users, err
}
